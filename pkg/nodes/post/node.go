// Package post provides the node that publishes a content entity.
package post

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/template"
)

const (
	ResultType = "post"

	FieldType        = "post_type"
	FieldStatus      = "post_status"
	FieldTitle       = "post_title"
	FieldContent     = "post_content"
	FieldDate        = "post_date"
	FieldDateGMT     = "post_date_gmt"
	customFieldsTag  = "acf_"
	defaultPostType  = "post"
	statusPublish    = "publish"
	statusFuture     = "future"
	timeLayout       = "2006-01-02 15:04:05"
	defaultTitleText = "Auto-generated post "
)

var dateLayouts = []string{time.RFC3339, timeLayout, "2006-01-02T15:04", "2006-01-02"}

type PostNode struct {
	logger  *slog.Logger
	content persistence.ContentRepository
	now     func() time.Time
}

func NewPostNode(deps protocol.Dependencies) *PostNode {
	return &PostNode{
		logger:  deps.Logger.With("module", "post_node"),
		content: deps.Content,
		now:     deps.Clock,
	}
}

func (n *PostNode) Type() models.NodeType {
	return models.NodeTypePost
}

// Execute maps configured fields, resolved against the inputs, onto a new
// entity. Keys tagged "acf_" are written as custom fields after creation.
func (n *PostNode) Execute(ctx context.Context, node *models.Node, inputs *models.ResultMap, exec protocol.Execution) models.NodeResult {
	data, ok := node.Data.(*models.PostData)
	if !ok {
		return models.ErrorResult("invalid post node configuration")
	}

	if n.content == nil {
		return models.ErrorResult("no content store configured")
	}

	fields, custom := n.buildFields(data, inputs)

	logger := n.logger.With("node_id", node.ID, "execution_id", exec.ID)
	logger.DebugContext(ctx, "Post data prepared", "fields", fields, "custom_fields", custom)

	id, err := n.content.CreateEntity(ctx, fields)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to create post", "error", err)

		return models.ErrorResult(err.Error())
	}

	for _, name := range sortedKeys(custom) {
		err := n.content.SetField(ctx, id, name, custom[name])
		if err != nil {
			logger.WarnContext(ctx, "Failed to set custom field", "entity_id", id, "field", name, "error", err)
		}
	}

	return models.NodeResult{Type: ResultType, Content: "Post created with ID: " + id}
}

func (n *PostNode) buildFields(data *models.PostData, inputs *models.ResultMap) (map[string]any, map[string]any) {
	postType := data.PostType
	if postType == "" {
		postType = defaultPostType
	}

	postStatus := data.PostStatus
	if postStatus == "" {
		postStatus = statusPublish
	}

	fields := map[string]any{
		FieldType:   postType,
		FieldStatus: postStatus,
	}
	custom := make(map[string]any)

	for key, value := range data.FieldMappings {
		resolved := template.Resolve(value, inputs)

		if name, ok := strings.CutPrefix(key, customFieldsTag); ok {
			custom[name] = resolved
		} else {
			fields[key] = resolved
		}
	}

	if _, ok := fields[FieldTitle]; !ok {
		fields[FieldTitle] = defaultTitleText + n.now().UTC().Format(timeLayout)
	}

	if _, ok := fields[FieldContent]; !ok {
		fields[FieldContent] = template.JoinContents(inputs)
	}

	if fields[FieldStatus] == statusFuture {
		if data.ScheduledDate == "" {
			fields[FieldStatus] = statusPublish
		} else {
			fields[FieldDate] = data.ScheduledDate

			if date, ok := parseDate(data.ScheduledDate); ok {
				fields[FieldDateGMT] = date.UTC().Format(timeLayout)
			}
		}
	}

	return fields, custom
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		date, err := time.Parse(layout, value)
		if err == nil {
			return date, true
		}
	}

	return time.Time{}, false
}

func sortedKeys(values map[string]any) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	return keys
}
