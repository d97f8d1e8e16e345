package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metadata-sync/core/model"
	"metadata-sync/core/retry"
)

func TestPlan_ClassifiesWithoutWriting(t *testing.T) {
	index := newMemoryIndex()
	index.store(newDoc("tbl_same", "h"))
	index.store(fidelityDoc("tbl_regress", "h1", false, "a"))
	index.failGet["tbl_broken"] = retry.Permanent(errors.New("401 unauthorized"))
	writesBefore := index.writes

	docs := []*model.MetadataDocument{
		newDoc("tbl_new", "h"),
		newDoc("tbl_same", "h"),
		fidelityDoc("tbl_regress", "h2", true, "a"),
		newDoc("tbl_broken", "h"),
	}

	plan := NewEngine(index, nil, testPolicy(), nil).Plan(context.Background(), docs)

	assert.Equal(t, writesBefore, index.writes)
	assert.Equal(t, PlanSummary{Create: 1, Update: 1, Skip: 1, Regression: 1, Failed: 1}, plan.Summary)
	require.Len(t, plan.Actions, 3)
	assert.Equal(t, ActionCreated, plan.Actions[0].Action)
	assert.Equal(t, ActionSkipped, plan.Actions[1].Action)
	assert.True(t, plan.Actions[2].Regressed)
	require.Len(t, plan.Failed, 1)
	assert.Equal(t, "tbl_broken", plan.Failed[0].Doc.ID)
}

func TestPlan_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := NewEngine(newMemoryIndex(), nil, testPolicy(), nil).Plan(ctx, []*model.MetadataDocument{newDoc("tbl_a", "h")})
	assert.Equal(t, 1, plan.Summary.Failed)
	assert.Empty(t, plan.Actions)
}
