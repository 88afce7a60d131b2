package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/dukex/aiflow/pkg/models"
)

// NeedsRendering reports whether text holds Go template actions.
func NeedsRendering(text string) bool {
	return strings.Contains(text, "{{")
}

// RenderWithInputs evaluates a Go template against the node inputs. Inputs are
// exposed as .inputs.<id> (content) and .results.<id> (full result), the
// payload that started the run as .trigger.
func RenderWithInputs(text string, inputs *models.ResultMap, trigger any) (any, error) {
	contents := map[string]any{}
	results := map[string]any{}

	inputs.Each(func(nodeID string, result models.NodeResult) {
		content, _ := sourceContent(inputs, nodeID)
		contents[nodeID] = content
		results[nodeID] = map[string]any{
			"type":    result.Type,
			"content": result.Content,
			"status":  result.Status,
			"message": result.Message,
		}
	})

	return Render(text, map[string]any{
		"inputs":  contents,
		"results": results,
		"trigger": trigger,
	})
}

// Render executes templateStr with data and coerces the output to JSON,
// a number or a boolean when it looks like one.
func Render(templateStr string, data any) (any, error) {
	tmpl, err := template.
		New("expression").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"contains": strings.Contains,
			"lower":    strings.ToLower,
			"trim":     strings.TrimSpace,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template '%s': %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template '%s': %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		err := json.Unmarshal([]byte(result), &jsonResult)
		if err != nil {
			return nil, fmt.Errorf("failed to parse json '%s': %w", templateStr, err)
		}

		return jsonResult, nil
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}
