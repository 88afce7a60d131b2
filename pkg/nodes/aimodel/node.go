// Package aimodel provides the node that sends a prompt to a completion model.
package aimodel

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dukex/aiflow/pkg/ai"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/template"
)

const (
	ResultType    = "aiModel"
	DefaultPrompt = "Default prompt"
	DefaultModel  = "gpt-4o-mini"
)

type AIModelNode struct {
	logger    *slog.Logger
	completer ai.Completer
}

func NewAIModelNode(logger *slog.Logger, completer ai.Completer) *AIModelNode {
	return &AIModelNode{
		logger:    logger.With("module", "aimodel_node"),
		completer: completer,
	}
}

func (n *AIModelNode) Type() models.NodeType {
	return models.NodeTypeAIModel
}

// Execute resolves input tags in the prompt and image references, calls the
// completion model and formats the answer as HTML.
func (n *AIModelNode) Execute(ctx context.Context, node *models.Node, inputs *models.ResultMap, exec protocol.Execution) models.NodeResult {
	data, ok := node.Data.(*models.AIModelData)
	if !ok {
		return models.ErrorResult("invalid aiModel node configuration")
	}

	prompt := DefaultPrompt
	if data.Content != nil {
		prompt = template.Resolve(*data.Content, inputs)
	}

	model := data.Model
	if model == "" {
		model = DefaultModel
	}

	imageURLs := make([]string, 0, len(data.ImageURLs))
	for _, url := range data.ImageURLs {
		imageURLs = append(imageURLs, template.Resolve(url, inputs))
	}

	logger := n.logger.With("node_id", node.ID, "execution_id", exec.ID, "model", model)
	logger.DebugContext(ctx, "Calling completion model", "prompt", prompt, "image_urls", imageURLs)

	if n.completer == nil {
		return models.ErrorResult("Error: " + ai.ErrMissingAPIKey.Error())
	}

	response, err := n.completer.Complete(ctx, prompt, model, imageURLs)
	if err != nil {
		logger.ErrorContext(ctx, "Completion failed", "error", err)

		return models.ErrorResult("Error: " + err.Error())
	}

	return models.NodeResult{Type: ResultType, Content: FormatResponse(response)}
}

var (
	boldPattern      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	listItemPattern  = regexp.MustCompile(`(?m)^\s*-\s+`)
	itemClosePattern = regexp.MustCompile(`(?s)(<li>.*?)(\n|$)`)
	listPattern      = regexp.MustCompile(`((?:<li>.*?</li>\s*)+)`)
)

// FormatResponse turns the markdown subset models answer with (bold and dash
// lists) into HTML and converts remaining line breaks to <br>.
func FormatResponse(response string) string {
	text := strings.ReplaceAll(response, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")

	text = boldPattern.ReplaceAllString(text, "<strong>$1</strong>")
	text = listItemPattern.ReplaceAllString(text, "<li>")
	text = itemClosePattern.ReplaceAllString(text, "$1</li>$2")
	text = listPattern.ReplaceAllString(text, "<ul>$1</ul>")
	text = breakLines(text)

	return strings.ReplaceAll(text, "</li><li>", "</li>\n<li>")
}

// breakLines replaces a newline with <br> unless it follows a '>' or precedes a '<'.
func breakLines(text string) string {
	var b strings.Builder

	b.Grow(len(text))

	for i := 0; i < len(text); i++ {
		if text[i] != '\n' {
			b.WriteByte(text[i])

			continue
		}

		afterTag := i > 0 && text[i-1] == '>'
		beforeTag := i+1 < len(text) && text[i+1] == '<'

		if afterTag || beforeTag {
			b.WriteByte('\n')
		} else {
			b.WriteString("<br>")
		}
	}

	return b.String()
}
