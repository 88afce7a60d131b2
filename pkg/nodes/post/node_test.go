package post_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/aiflow/pkg/mocks"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/nodes/post"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newPostNode(content *mocks.MockContentRepository) *post.PostNode {
	return post.NewPostNode(protocol.Dependencies{
		Logger:  slog.Default(),
		Content: content,
		Now:     func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	})
}

func aiInputs(t *testing.T) *models.ResultMap {
	t.Helper()

	inputs := models.NewResultMap()
	require.NoError(t, inputs.Set("ai", models.NodeResult{Type: "aiModel", Content: map[string]any{"title": "Hello", "body": "World"}}))

	return inputs
}

func TestPostNode_FieldMappings(t *testing.T) {
	t.Parallel()

	content := &mocks.MockContentRepository{}
	content.On("CreateEntity", mock.Anything, map[string]any{
		"post_type":    "page",
		"post_status":  "draft",
		"post_title":   "Hello",
		"post_content": "World",
	}).Return("42", nil)
	content.On("SetField", mock.Anything, "42", "source", "newsletter").Return(nil)

	node := &models.Node{ID: "p", Type: models.NodeTypePost, Data: &models.PostData{
		PostType:   "page",
		PostStatus: "draft",
		FieldMappings: map[string]string{
			"post_title":   "[[title] from ai]",
			"post_content": "[[body] from ai]",
			"acf_source":   "newsletter",
		},
	}}

	result := newPostNode(content).Execute(context.Background(), node, aiInputs(t), protocol.Execution{ID: "e"})

	assert.Equal(t, models.NodeResult{Type: post.ResultType, Content: "Post created with ID: 42"}, result)
	content.AssertExpectations(t)
}

func TestPostNode_Defaults(t *testing.T) {
	t.Parallel()

	content := &mocks.MockContentRepository{}
	content.On("CreateEntity", mock.Anything, map[string]any{
		"post_type":    "post",
		"post_status":  "publish",
		"post_title":   "Auto-generated post 2025-01-02 03:04:05",
		"post_content": `{"body":"World","title":"Hello"}`,
	}).Return("7", nil)

	node := &models.Node{ID: "p", Type: models.NodeTypePost, Data: &models.PostData{}}

	result := newPostNode(content).Execute(context.Background(), node, aiInputs(t), protocol.Execution{})

	assert.Equal(t, "Post created with ID: 7", result.Content)
	content.AssertExpectations(t)
}

func TestPostNode_FutureStatus(t *testing.T) {
	t.Parallel()

	t.Run("with scheduled date", func(t *testing.T) {
		t.Parallel()

		content := &mocks.MockContentRepository{}
		content.On("CreateEntity", mock.Anything, mock.MatchedBy(func(fields map[string]any) bool {
			return fields["post_status"] == "future" &&
				fields["post_date"] == "2025-02-01 09:00:00" &&
				fields["post_date_gmt"] == "2025-02-01 09:00:00"
		})).Return("1", nil)

		node := &models.Node{ID: "p", Type: models.NodeTypePost, Data: &models.PostData{PostStatus: "future", ScheduledDate: "2025-02-01 09:00:00"}}

		result := newPostNode(content).Execute(context.Background(), node, nil, protocol.Execution{})

		assert.False(t, result.IsError())
		content.AssertExpectations(t)
	})

	t.Run("without scheduled date publishes now", func(t *testing.T) {
		t.Parallel()

		content := &mocks.MockContentRepository{}
		content.On("CreateEntity", mock.Anything, mock.MatchedBy(func(fields map[string]any) bool {
			_, hasDate := fields["post_date"]

			return fields["post_status"] == "publish" && !hasDate
		})).Return("2", nil)

		node := &models.Node{ID: "p", Type: models.NodeTypePost, Data: &models.PostData{PostStatus: "future"}}

		result := newPostNode(content).Execute(context.Background(), node, nil, protocol.Execution{})

		assert.Equal(t, "Post created with ID: 2", result.Content)
		content.AssertExpectations(t)
	})
}

func TestPostNode_CreateFails(t *testing.T) {
	t.Parallel()

	content := &mocks.MockContentRepository{}
	content.On("CreateEntity", mock.Anything, mock.Anything).Return("", errors.New("store unavailable"))

	node := &models.Node{ID: "p", Type: models.NodeTypePost, Data: &models.PostData{FieldMappings: map[string]string{"acf_x": "y"}}}

	result := newPostNode(content).Execute(context.Background(), node, nil, protocol.Execution{})

	assert.Equal(t, models.ErrorResult("store unavailable"), result)
	content.AssertNumberOfCalls(t, "SetField", 0)
}
