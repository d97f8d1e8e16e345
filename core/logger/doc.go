// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production).
//
// # Context Awareness
//
// Pipeline logs are correlated by run and by table. WithRun attaches the run_id of a
// batch and WithTable attaches the normalized table key, so every line emitted while
// processing one table unit can be grouped together.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Batch started")
//
//	l := logger.WithTable(log, table)
//	l.Warn("Scan timed out, using fallback profiler", zap.Error(err))
package logger
