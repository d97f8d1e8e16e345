// Package scan manages the lifecycle of managed profiling scans.
//
// A scan resource is created lazily for each table and never deleted:
//
//	ABSENT --ensure--> IDLE --trigger--> RUNNING --poll--> SUCCEEDED | FAILED
//	SUCCEEDED | FAILED --trigger--> RUNNING
//
// The Manager routes every call to the Service through the shared throttle.Limiter and
// the retry.Policy. Not-found, already-exists and permission errors are never retried.
//
// # Usage
//
//	svc, _ := scan.NewClient(cfg.Scan)
//	manager := scan.NewManager(svc, limiter, policy, log)
//	res, err := manager.Refresh(ctx, table, scan.RefreshOptions{
//	    FreshnessWindow: 24 * time.Hour,
//	    Timeout:         10 * time.Minute,
//	    PollInterval:    15 * time.Second,
//	})
//	if scan.IsTimeout(err) {
//	    // fall back to direct profiling
//	}
package scan
