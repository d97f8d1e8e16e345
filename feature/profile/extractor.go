package profile

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"metadata-sync/core/logger"
	"metadata-sync/core/metrics"
	"metadata-sync/core/model"
)

// DefaultFreshnessWindow is how old a managed result may be before it is ignored.
const DefaultFreshnessWindow = 24 * time.Hour

// ResultSource fetches the raw FULL result of a scan. scan.Manager implements it.
type ResultSource interface {
	Result(ctx context.Context, handle *model.ScanResource) ([]byte, error)
}

// Extractor turns a scan handle into a canonical profile, falling back to direct
// queries when the managed result cannot be used.
type Extractor struct {
	results  ResultSource
	fallback Profiler
	window   time.Duration
	now      func() time.Time
	log      *zap.Logger
	metrics  *metrics.Recorder
}

// NewExtractor creates an extractor. A nil results source always uses the fallback.
func NewExtractor(results ResultSource, fallback Profiler, window time.Duration, log *zap.Logger, rec *metrics.Recorder) *Extractor {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		results:  results,
		fallback: fallback,
		window:   window,
		now:      time.Now,
		log:      log.Named("extract"),
		metrics:  rec,
	}
}

// Extract returns the profile of table. handle is nil when the managed path is disabled
// or the scan could not be resolved; its state decides whether the managed result is
// used.
func (e *Extractor) Extract(ctx context.Context, table model.TableDescriptor, schema []model.ColumnSchema, handle *model.ScanResource) (*model.TableProfile, error) {
	log := logger.WithTable(e.log, table)

	reason := e.fallbackReason(handle)
	if reason == "" {
		p, err := e.managed(ctx, handle, schema)
		if err == nil {
			return p, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		reason = err.Error()
	}

	log.Info("Using fallback profiler", zap.String("reason", reason))
	e.metrics.Fallback()

	p, err := e.fallback.Profile(ctx, table, schema)
	if err != nil {
		return nil, fmt.Errorf("fallback profile of %s failed (%s): %w", table, reason, err)
	}
	return p, nil
}

func (e *Extractor) managed(ctx context.Context, handle *model.ScanResource, schema []model.ColumnSchema) (*model.TableProfile, error) {
	payload, err := e.results.Result(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("scan result unavailable: %w", err)
	}
	p, err := Decode(payload, schema)
	if err != nil {
		return nil, fmt.Errorf("scan result not decodable: %w", err)
	}
	return p, nil
}

// fallbackReason returns why the managed result cannot be used, or "" when it can.
func (e *Extractor) fallbackReason(handle *model.ScanResource) string {
	switch {
	case e.results == nil:
		return "managed scans disabled"
	case handle == nil:
		return "no scan resource"
	case handle.State == model.ScanAbsent:
		return "scan absent"
	case handle.State == model.ScanFailed:
		return "scan failed"
	case handle.State != model.ScanSucceeded:
		return fmt.Sprintf("scan not finished (%s)", handle.State)
	case !handle.IsFresh(e.now(), e.window):
		return "scan result older than freshness window"
	}
	return ""
}
