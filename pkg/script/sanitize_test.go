package script_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor/pkg/script"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"plain", "Hello", "Hello", nil},
		{"keeps whitespace controls", "a\tb\r\nc", "a\tb\r\nc", nil},
		{"strips escape and bell", "\x1b[31mred\x07", "[31mred", nil},
		{"invalid utf8", "\xff\xfe", "", script.ErrInvalidUTF8},
		{"exact limit", strings.Repeat("a", script.DefaultMaxValueSize), strings.Repeat("a", script.DefaultMaxValueSize), nil},
		{"over limit", strings.Repeat("a", script.DefaultMaxValueSize+1), "", script.ErrValueTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := script.SanitizeString(tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeString_EnvLimit(t *testing.T) {
	t.Setenv(script.EnvMaxValueSize, "3")
	_, err := script.SanitizeString("abcd")
	assert.ErrorIs(t, err, script.ErrValueTooLarge)
}

func TestStep_Sanitize(t *testing.T) {
	step, err := script.NewStep(script.OpAdd, map[string]any{
		"parent": "ROOT",
		"nodes": []any{map[string]any{
			"id": "a", "type": "h3",
			"props": map[string]any{
				"text":  "hi\x00",
				"style": map[string]any{"color": "\x1bred"},
				"tags":  []any{"x\x07", 3},
			},
		}},
	})
	require.NoError(t, err)
	require.NoError(t, step.Sanitize())

	props := step.Args.(*script.AddArgs).Nodes[0].Props
	assert.Equal(t, "hi", props["text"])
	assert.Equal(t, map[string]any{"color": "red"}, props["style"])
	assert.Equal(t, []any{"x", 3}, props["tags"])

	step, err = script.NewStep(script.OpSetProp, map[string]any{
		"node": "a", "set": map[string]any{"text": "\xff"},
	})
	require.NoError(t, err)
	assert.ErrorIs(t, step.Sanitize(), script.ErrInvalidUTF8)
}
