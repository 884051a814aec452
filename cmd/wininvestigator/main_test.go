package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")}, args...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "wininvestigator dev\n", execute(t, "version"))
}

func TestToolsCommandPrintsCatalog(t *testing.T) {
	var catalog []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	require.NoError(t, json.Unmarshal([]byte(execute(t, "tools")), &catalog))
	require.Len(t, catalog, 43)
	assert.Equal(t, "list_event_logs", catalog[0].Name)
	for _, tool := range catalog {
		assert.NotEmpty(t, tool.Description, tool.Name)
	}
}
