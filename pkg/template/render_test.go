package template

import (
	"testing"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_CoercesOutput(t *testing.T) {
	t.Parallel()

	data := map[string]any{
		"user":   map[string]any{"name": "Alice", "id": 123},
		"orders": []any{1, 2},
	}

	result, err := Render("{{ .user.name }}", data)
	require.NoError(t, err)
	assert.Equal(t, "Alice", result)

	result, err = Render("{{ .user.id }}", data)
	require.NoError(t, err)
	assert.Equal(t, 123.0, result)

	result, err = Render(`{{ eq .user.name "Alice" }}`, data)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = Render(`{"count": {{ len .orders }}}`, data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": 2.0}, result)
}

func TestRender_Errors(t *testing.T) {
	t.Parallel()

	_, err := Render("{{ nonexistent.field }}", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse template")

	_, err = Render("{ broken }", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse json")
}

func TestRenderWithInputs(t *testing.T) {
	t.Parallel()

	upstream := models.NewResultMap()
	require.NoError(t, upstream.Set("a", models.NodeResult{Type: "aiModel", Content: "APPROVED"}))

	inputs := models.NewResultMap()
	require.NoError(t, inputs.Set("a", models.NodeResult{Type: "aiModel", Content: "APPROVED"}))
	require.NoError(t, inputs.Set("c", models.NodeResult{Type: "condition", Content: true, Inputs: upstream}))

	result, err := RenderWithInputs(`{{ contains .inputs.a "APPROVED" }}`, inputs, nil)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = RenderWithInputs(`{{ .inputs.c }}`, inputs, nil)
	require.NoError(t, err)
	assert.Equal(t, "APPROVED", result)

	result, err = RenderWithInputs(`{{ .results.a.type }}`, inputs, nil)
	require.NoError(t, err)
	assert.Equal(t, "aiModel", result)

	result, err = RenderWithInputs(`{{ .trigger.plan }}`, inputs, map[string]any{"plan": "pro"})
	require.NoError(t, err)
	assert.Equal(t, "pro", result)
}

func TestNeedsRendering(t *testing.T) {
	t.Parallel()

	assert.True(t, NeedsRendering("{{ .inputs.a }}"))
	assert.False(t, NeedsRendering("[Input from a]"))
}
