package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"metadata-sync/core/model"
	"metadata-sync/core/retry"
	"metadata-sync/core/throttle"
)

// Engine decides and performs create/update/skip for metadata documents.
// It is safe for concurrent use as long as the Index is.
type Engine struct {
	index   Index
	limiter *throttle.Limiter
	policy  retry.Policy
	log     *zap.Logger
}

// NewEngine creates an engine. A nil limiter disables rate limiting, a nil logger
// disables logging.
func NewEngine(index Index, limiter *throttle.Limiter, policy retry.Policy, log *zap.Logger) *Engine {
	if limiter == nil {
		limiter = throttle.Unlimited()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{index: index, limiter: limiter, policy: policy, log: log.Named("index-sync")}
}

// Upsert synchronizes one document. Equal content hashes never cause a write.
func (e *Engine) Upsert(ctx context.Context, doc *model.MetadataDocument) (*Result, error) {
	if doc == nil || doc.ID == "" {
		return nil, retry.Permanent(errors.New("document without id"))
	}

	existing, err := e.get(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	decision := decide(existing, doc)
	res := &Result{
		DocumentID: doc.ID,
		Action:     decision.Action,
		Regressed:  decision.Regressed,
		Lost:       decision.Lost,
	}

	switch decision.Action {
	case ActionSkipped:
		return res, nil
	case ActionCreated:
		err = e.call(ctx, func(ctx context.Context) error { return e.index.Create(ctx, doc) })
		if errors.Is(err, ErrDocumentExists) {
			// Lost a create race; the document is there now, so replace it.
			e.log.Debug("Document appeared concurrently, updating", zap.String("id", doc.ID))
			res.Action = ActionUpdated
			err = e.call(ctx, func(ctx context.Context) error { return e.index.Update(ctx, doc.ID, doc) })
		}
	case ActionUpdated:
		err = e.call(ctx, func(ctx context.Context) error { return e.index.Update(ctx, doc.ID, doc) })
	}
	if err != nil {
		return nil, fmt.Errorf("failed to sync document %s: %w", doc.ID, err)
	}

	if res.Regressed {
		e.log.Warn("Partial document replaced a more complete one",
			zap.String("id", doc.ID),
			zap.Strings("lost_columns", res.Lost))
	}
	return res, nil
}

// SyncBatch upserts docs with at most concurrency documents in flight.
// A failing document never stops the others.
func (e *Engine) SyncBatch(ctx context.Context, docs []*model.MetadataDocument, concurrency int) *BatchResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(docs) {
		concurrency = len(docs)
	}

	results := make([]*Result, len(docs))
	errs := make([]error, len(docs))

	jobs := make(chan int, len(docs))
	for i := range docs {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i], errs[i] = e.Upsert(ctx, docs[i])
			}
		}()
	}
	wg.Wait()

	batch := &BatchResult{Results: results}
	for i, res := range results {
		if errs[i] != nil {
			batch.Failed = append(batch.Failed, Failure{Doc: docs[i], Err: errs[i]})
			continue
		}
		switch res.Action {
		case ActionCreated:
			batch.Created++
		case ActionUpdated:
			batch.Updated++
		case ActionSkipped:
			batch.Skipped++
		}
	}
	return batch
}

func (e *Engine) get(ctx context.Context, id string) (*model.IndexRecord, error) {
	rec, err := retry.Run(ctx, e.policy, func() (*model.IndexRecord, error) {
		return throttle.Call(ctx, e.limiter, func(ctx context.Context) (*model.IndexRecord, error) {
			return e.index.Get(ctx, id)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read index record %s: %w", id, err)
	}
	return rec, nil
}

// call runs one write through the limiter and the retry policy. ErrDocumentExists
// is returned immediately so the caller can switch to an update.
func (e *Engine) call(ctx context.Context, fn func(context.Context) error) error {
	policy := e.policy
	retryable := policy.Retryable
	if retryable == nil {
		retryable = retry.IsTransient
	}
	policy.Retryable = func(err error) bool {
		return !errors.Is(err, ErrDocumentExists) && retryable(err)
	}
	return retry.Do(ctx, policy, func() error {
		return e.limiter.Do(ctx, fn)
	})
}

type decision struct {
	Action    Action
	Reason    string
	Regressed bool
	Lost      []string
}

// decide compares the stored record with the incoming document.
func decide(existing *model.IndexRecord, doc *model.MetadataDocument) decision {
	if existing == nil {
		return decision{Action: ActionCreated, Reason: "absent from index"}
	}
	if existing.LastSyncedHash == doc.ContentHash {
		return decision{Action: ActionSkipped, Reason: "content unchanged"}
	}

	d := decision{Action: ActionUpdated, Reason: "content changed"}
	d.Lost = lostColumns(existing.Fidelity, doc.Fidelity())
	if doc.Partial && !existing.Partial {
		d.Regressed = true
		d.Reason = "content changed; partial profile replaces complete profile"
	} else if len(d.Lost) > 0 {
		d.Regressed = true
		d.Reason = "content changed; high-fidelity columns lost"
	}
	return d
}

// lostColumns returns the names in before that are missing from after. Both are sorted.
func lostColumns(before, after []string) []string {
	var lost []string
	j := 0
	for _, name := range before {
		for j < len(after) && after[j] < name {
			j++
		}
		if j >= len(after) || after[j] != name {
			lost = append(lost, name)
		}
	}
	return lost
}
