package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", "testdata/none.yaml"))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	t.Run("version", func(t *testing.T) {
		out, err := execute(t, "version")
		require.NoError(t, err)
		assert.Contains(t, out, "arbor version ")
	})

	t.Run("run", func(t *testing.T) {
		out, err := execute(t, "run", "testdata/hero.yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "ok     3 move         ERROR_MOVE_TO_DESCENDANT")
		assert.Contains(t, out, "title")
		assert.Contains(t, out, "text=Welcome")
	})

	t.Run("run fails on unexpected rejection", func(t *testing.T) {
		out, err := execute(t, "run", "testdata/broken.yaml")
		require.Error(t, err)
		assert.Contains(t, out, "FAIL   2 move         ERROR_MOVE_TO_DESCENDANT")
	})

	t.Run("validate", func(t *testing.T) {
		out, err := execute(t, "validate", "testdata/hero.yaml", "testdata/broken.yaml")
		require.Error(t, err)
		assert.Contains(t, out, "testdata/hero.yaml is valid!")
		assert.ErrorContains(t, err, "testdata/broken.yaml")
	})

	t.Run("graph", func(t *testing.T) {
		out, err := execute(t, "graph", "testdata/hero.yaml", "--overlay")
		require.NoError(t, err)
		assert.Contains(t, out, "graph TD\n")
		assert.Contains(t, out, `hero -- "1" --> cta`)
		assert.Contains(t, out, "class title active;")
	})
}
