package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// RunPersistenceSuite checks the behavior every persistence backend shares.
// open must return an empty store.
func RunPersistenceSuite(t *testing.T, open func(t *testing.T) persistence.Persistence) {
	t.Helper()

	t.Run("workflows", func(t *testing.T) { testWorkflows(t, open(t)) })
	t.Run("executions lifecycle", func(t *testing.T) { testExecutionLifecycle(t, open(t)) })
	t.Run("executions finalize", func(t *testing.T) { testExecutionFinalize(t, open(t)) })
	t.Run("executions list", func(t *testing.T) { testExecutionList(t, open(t)) })
	t.Run("outputs", func(t *testing.T) { testOutputs(t, open(t)) })
	t.Run("content", func(t *testing.T) { testContent(t, open(t)) })
}

func testWorkflows(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()

	require.NoError(t, p.HealthCheck(ctx))

	workflows, err := p.Workflows(ctx)
	require.NoError(t, err)
	assert.Empty(t, workflows)

	end := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	first := CreateTestWorkflow(WithName("first"), WithSchedule(&models.Schedule{
		Enabled: true, Interval: 2, Unit: models.ScheduleUnitHour, EndDate: &end,
	}))
	first.Nodes = append(first.Nodes,
		CreateTestNode(WithID("hook"), WithData(&models.OutputData{OutputType: models.OutputTypeWebhook, WebhookURL: "https://example.com/hook"})),
		&models.Node{ID: "x", Type: "custom", Data: &models.RawData{NodeType: "custom", Fields: map[string]any{"k": "v"}}},
	)
	first.Edges = append(first.Edges, &models.Edge{Source: "trigger-1", Target: "hook", SourceHandle: "true"})

	require.NoError(t, p.SaveWorkflow(ctx, first))
	require.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second := CreateTestWorkflow(WithName("second"), WithStatus(models.WorkflowStatusInactive))
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	require.NoError(t, p.SaveWorkflow(ctx, second))

	loaded, err := p.WorkflowByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", loaded.Name)
	assert.Equal(t, models.WorkflowStatusActive, loaded.Status)
	require.Len(t, loaded.Nodes, 4)
	assert.Equal(t, &models.TriggerData{Content: "test content"}, loaded.Nodes[0].Data)
	assert.Equal(t, "https://example.com/hook", loaded.Nodes[2].Data.(*models.OutputData).WebhookURL)
	assert.Equal(t, map[string]any{"k": "v"}, loaded.Nodes[3].Data.(*models.RawData).Fields)
	require.Len(t, loaded.Edges, 2)
	assert.Equal(t, "true", loaded.Edges[1].SourceHandle)
	require.NotNil(t, loaded.Schedule)
	assert.Equal(t, 2, loaded.Schedule.Interval)
	assert.True(t, end.Equal(*loaded.Schedule.EndDate))

	executed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	loaded.LastExecuted = &executed
	loaded.Nodes[0].Executed = true
	require.NoError(t, p.SaveWorkflow(ctx, loaded))

	reloaded, err := p.WorkflowByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.LastExecuted)
	assert.True(t, executed.Equal(*reloaded.LastExecuted))
	assert.True(t, reloaded.Nodes[0].Executed)
	assert.WithinDuration(t, first.CreatedAt, reloaded.CreatedAt, time.Millisecond)

	workflows, err = p.Workflows(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 2)
	assert.Equal(t, "first", workflows[0].Name)
	assert.Equal(t, "second", workflows[1].Name)

	require.NoError(t, p.DeleteWorkflow(ctx, first.ID))

	_, err = p.WorkflowByID(ctx, first.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.DeleteWorkflow(ctx, first.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	workflows, err = p.Workflows(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 1)
}

func testExecutionLifecycle(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()
	repo := p.ExecutionRepository()

	execution := &models.Execution{
		WorkflowID:   "wf",
		WorkflowName: "Newsletter",
		Status:       models.ExecutionStatusProcessing,
		InputData:    map[string]any{"email": "a@b.c"},
	}
	require.NoError(t, repo.CreateExecution(ctx, execution))
	require.NotEmpty(t, execution.ID)

	err := repo.CreateExecution(ctx, &models.Execution{ID: execution.ID, WorkflowID: "wf"})
	require.ErrorIs(t, err, persistence.ErrExecutionExists)

	require.NoError(t, repo.AppendStatus(ctx, execution.ID, models.StatusEntry{
		Status:  models.ExecutionStatusProcessing,
		Message: "Executed trigger node",
		NodeID:  "t",
	}))

	fireAt := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetStatus(ctx, execution.ID, models.ExecutionStatusScheduled, &fireAt))

	results := models.NewResultMap()
	require.NoError(t, results.Set("t", models.NodeResult{Type: "trigger", Content: "hi"}))
	require.NoError(t, repo.FinalizeExecution(ctx, execution.ID, models.ExecutionStatusCompleted, results))

	loaded, err := repo.ExecutionByID(ctx, execution.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusScheduled, loaded.Status)
	require.NotNil(t, loaded.ScheduledAt)
	assert.True(t, fireAt.Equal(*loaded.ScheduledAt))
	require.Len(t, loaded.OutputData, 1)
	assert.Equal(t, "t", loaded.OutputData[0].NodeID)
	assert.False(t, loaded.OutputData[0].Timestamp.IsZero())
	require.NotNil(t, loaded.Result)
	assert.Equal(t, []string{"t"}, loaded.Result.Keys())
	assert.Equal(t, map[string]any{"email": "a@b.c"}, loaded.InputData)

	require.NoError(t, repo.DeleteExecution(ctx, execution.ID))

	_, err = repo.ExecutionByID(ctx, execution.ID)
	assert.True(t, persistence.IsExecutionNotFound(err))
	assert.True(t, persistence.IsExecutionNotFound(repo.AppendStatus(ctx, execution.ID, models.StatusEntry{})))
	assert.True(t, persistence.IsExecutionNotFound(repo.DeleteExecution(ctx, execution.ID)))
}

func testExecutionFinalize(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()
	repo := p.ExecutionRepository()

	for _, status := range []models.ExecutionStatus{models.ExecutionStatusProcessing, models.ExecutionStatusTerminated} {
		execution := &models.Execution{WorkflowID: "wf", Status: status}
		require.NoError(t, repo.CreateExecution(ctx, execution))
		require.NoError(t, repo.FinalizeExecution(ctx, execution.ID, models.ExecutionStatusCompleted, models.NewResultMap()))

		loaded, err := repo.ExecutionByID(ctx, execution.ID)
		require.NoError(t, err)

		if status == models.ExecutionStatusTerminated {
			assert.Equal(t, models.ExecutionStatusTerminated, loaded.Status)
		} else {
			assert.Equal(t, models.ExecutionStatusCompleted, loaded.Status)
		}
	}
}

func testExecutionList(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()
	repo := p.ExecutionRepository()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Daily Digest", "Newsletter", "digest weekly"} {
		require.NoError(t, repo.CreateExecution(ctx, &models.Execution{
			WorkflowID:   name,
			WorkflowName: name,
			Status:       models.ExecutionStatusCompleted,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}))
	}

	all, err := repo.Executions(ctx, persistence.ListExecutionsOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.TotalCount)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.PageSize)
	require.Len(t, all.Executions, 3)
	assert.Equal(t, "digest weekly", all.Executions[0].WorkflowName)

	searched, err := repo.Executions(ctx, persistence.ListExecutionsOptions{Search: "DIGEST", PageSize: 1, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), searched.TotalCount)
	assert.Equal(t, 2, searched.TotalPages)
	require.Len(t, searched.Executions, 1)
	assert.Equal(t, "Daily Digest", searched.Executions[0].WorkflowName)

	byWorkflow, err := repo.Executions(ctx, persistence.ListExecutionsOptions{WorkflowID: "Newsletter"})
	require.NoError(t, err)
	assert.Len(t, byWorkflow.Executions, 1)

	beyond, err := repo.Executions(ctx, persistence.ListExecutionsOptions{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, beyond.Executions)
	assert.Equal(t, int64(3), beyond.TotalCount)
}

func testOutputs(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()
	repo := p.OutputRepository()

	_, err := repo.LatestOutput(ctx, "out")
	require.True(t, persistence.IsOutputNotFound(err))

	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveOutput(ctx, &models.SavedOutput{NodeID: "out", Content: "first", Status: "success", CreatedAt: at}))
	require.NoError(t, repo.SaveOutput(ctx, &models.SavedOutput{NodeID: "out", Content: "second", Status: "warning", Message: "slow", CreatedAt: at}))
	require.NoError(t, repo.SaveOutput(ctx, &models.SavedOutput{NodeID: "other", Content: "elsewhere"}))

	latest, err := repo.LatestOutput(ctx, "out")
	require.NoError(t, err)
	assert.Equal(t, "second", latest.Content)
	assert.Equal(t, "slow", latest.Message)
	assert.NotEmpty(t, latest.ID)
	assert.True(t, at.Equal(latest.CreatedAt))
}

func testContent(t *testing.T, p persistence.Persistence) {
	ctx := context.Background()
	repo := p.ContentRepository()

	id, err := repo.CreateEntity(ctx, map[string]any{"post_title": "Hello"})
	require.NoError(t, err)

	require.NoError(t, repo.SetField(ctx, id, "source", "newsletter"))
	require.NoError(t, repo.SetField(ctx, id, "rank", 3))

	entity, err := repo.EntityByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello", entity.Fields["post_title"])
	assert.Equal(t, map[string]any{"source": "newsletter", "rank": float64(3)}, entity.CustomFields)

	err = repo.SetField(ctx, "missing", "a", 1)
	assert.True(t, persistence.IsEntityNotFound(err))

	_, err = repo.EntityByID(ctx, "missing")
	assert.True(t, persistence.IsEntityNotFound(err))
}
