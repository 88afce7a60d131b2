// Package template substitutes upstream node results into node configuration text.
package template

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/dukex/aiflow/pkg/models"
)

var (
	inputTag = regexp.MustCompile(`\[Input from ([\w-]+)\]`)
	fieldTag = regexp.MustCompile(`\[\[([^\]]+)\] from ([\w-]+)\]`)
)

// Resolve replaces "[Input from <id>]" with the content of the input produced
// by <id>, then "[[<field>] from <id>]" with one field of that content. Tags
// that cannot be resolved are left untouched.
func Resolve(text string, inputs *models.ResultMap) string {
	text = inputTag.ReplaceAllStringFunc(text, func(tag string) string {
		match := inputTag.FindStringSubmatch(tag)

		content, ok := sourceContent(inputs, match[1])
		if !ok {
			return tag
		}

		return Stringify(content)
	})

	return fieldTag.ReplaceAllStringFunc(text, func(tag string) string {
		match := fieldTag.FindStringSubmatch(tag)

		content, ok := sourceContent(inputs, match[2])
		if !ok {
			return tag
		}

		fields, ok := content.(map[string]any)
		if !ok {
			return tag
		}

		value, ok := fields[match[1]]
		if !ok || value == nil {
			return tag
		}

		if list, ok := value.([]any); ok {
			return joinNonEmpty(list)
		}

		return Stringify(value)
	})
}

// sourceContent returns the content produced by nodeID. Condition nodes are
// transparent: their own first input stands in for them.
func sourceContent(inputs *models.ResultMap, nodeID string) (any, bool) {
	result, ok := inputs.Get(nodeID)
	if !ok {
		return nil, false
	}

	if result.Type == string(models.NodeTypeCondition) {
		upstream, ok := result.Inputs.First()
		if !ok {
			return nil, false
		}

		return upstream.Content, true
	}

	return result.Content, true
}

func joinNonEmpty(values []any) string {
	parts := make([]string, 0, len(values))

	for _, value := range values {
		text := Stringify(value)
		if text == "" || text == "0" || text == "false" {
			continue
		}

		parts = append(parts, text)
	}

	return strings.Join(parts, " ")
}

// Stringify renders content as text. Structured content is JSON encoded.
func Stringify(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	}

	var buf bytes.Buffer

	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)

	err := encoder.Encode(content)
	if err != nil {
		return ""
	}

	return strings.TrimSuffix(buf.String(), "\n")
}

// JoinContents concatenates the content of every input, in input order,
// separated by a blank line. Inputs without content are skipped.
func JoinContents(inputs *models.ResultMap) string {
	var b strings.Builder

	inputs.Each(func(_ string, result models.NodeResult) {
		if result.Content == nil {
			return
		}

		b.WriteString(Stringify(result.Content))
		b.WriteString("\n\n")
	})

	return strings.TrimSpace(b.String())
}
