package services

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/testutil"
	"github.com/dukex/aiflow/pkg/workflow"
)

func TestExecution_RunAndList(t *testing.T) {
	f := newFixture(t)
	executions := NewExecution(slog.Default(), f.store, f.executor)

	wf := testutil.CreateTestWorkflow(testutil.WithName("Newsletter"))
	require.NoError(t, f.store.SaveWorkflow(t.Context(), wf))

	run, err := executions.Run(t.Context(), wf.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusCompleted, run.Status)

	record, err := executions.Get(t.Context(), run.ExecutionID)
	require.NoError(t, err)
	assert.Equal(t, "Newsletter", record.WorkflowName)

	list, err := executions.List(t.Context(), persistence.ListExecutionsOptions{Search: "news"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.TotalCount)

	output, err := executions.LatestOutput(t.Context(), "output-1")
	require.NoError(t, err)
	assert.Equal(t, "test content", output.Content)

	_, err = executions.LatestOutput(t.Context(), "trigger-1")
	assert.True(t, IsNotFoundError(err))
}

func TestExecution_Run_Inactive(t *testing.T) {
	f := newFixture(t)
	executions := NewExecution(slog.Default(), f.store, f.executor)

	wf := testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusInactive))
	require.NoError(t, f.store.SaveWorkflow(t.Context(), wf))

	_, err := executions.Run(t.Context(), wf.ID, nil)
	assert.ErrorIs(t, err, workflow.ErrWorkflowInactive)
}

func TestExecution_StopAndDelete(t *testing.T) {
	f := newFixture(t)
	executions := NewExecution(slog.Default(), f.store, f.executor)

	wf := testutil.CreateTestWorkflow()
	wf.Nodes[1].Data = &models.OutputData{
		OutputType:   models.OutputTypeWebhook,
		WebhookURL:   "https://hooks.example.com/out",
		DelayEnabled: true,
		DelayValue:   5,
		DelayUnit:    "minutes",
	}
	require.NoError(t, f.store.SaveWorkflow(t.Context(), wf))

	run, err := executions.Run(t.Context(), wf.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusScheduled, run.Status)

	pending := f.scheduler.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, now.Add(5*time.Minute), pending[0].FireAt)

	require.NoError(t, executions.StopAndDelete(t.Context(), run.ExecutionID))

	assert.Empty(t, f.scheduler.Pending())

	_, err = executions.Get(t.Context(), run.ExecutionID)
	assert.True(t, persistence.IsExecutionNotFound(err))

	err = executions.StopAndDelete(t.Context(), run.ExecutionID)
	assert.True(t, IsNotFoundError(err))
}
