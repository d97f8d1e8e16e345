package reconcile

import (
	"context"

	"metadata-sync/core/model"
)

// Plan classifies docs against the index without writing anything.
// Read failures are collected; they do not stop the plan.
func (e *Engine) Plan(ctx context.Context, docs []*model.MetadataDocument) *SyncPlan {
	plan := &SyncPlan{Actions: make([]PlannedAction, 0, len(docs))}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			plan.Failed = append(plan.Failed, Failure{Doc: doc, Err: err})
			plan.Summary.Failed++
			continue
		}

		existing, err := e.get(ctx, doc.ID)
		if err != nil {
			plan.Failed = append(plan.Failed, Failure{Doc: doc, Err: err})
			plan.Summary.Failed++
			continue
		}

		d := decide(existing, doc)
		plan.Actions = append(plan.Actions, PlannedAction{
			DocumentID: doc.ID,
			Action:     d.Action,
			Reason:     d.Reason,
			Regressed:  d.Regressed,
			Lost:       d.Lost,
		})

		switch d.Action {
		case ActionCreated:
			plan.Summary.Create++
		case ActionUpdated:
			plan.Summary.Update++
		case ActionSkipped:
			plan.Summary.Skip++
		}
		if d.Regressed {
			plan.Summary.Regression++
		}
	}

	return plan
}
