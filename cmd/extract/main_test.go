package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfantasy/sheetform/internal/sheet/sheettest"
)

func runTo(t *testing.T, run func(*cobra.Command, []string) error, args ...string) map[string]any {
	t.Helper()
	outputPath = filepath.Join(t.TempDir(), "out.json")
	t.Cleanup(func() { outputPath = "" })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())
	require.NoError(t, run(cmd, args))

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestFormCommand(t *testing.T) {
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))

	out := runTo(t, runForm, path)
	names := out["worksheets"].(map[string]any)
	assert.Equal(t, sheettest.DisplaySheet, names["display"])
	assert.Equal(t, sheettest.EntrySheet, names["entry"])
	assert.Len(t, out["entry"], 2)
	assert.Contains(t, out, "field_rules")
}

func TestSchemaCommand(t *testing.T) {
	path := sheettest.WriteFile(t, sheettest.DisplayWorkbook(t))
	configSheet = sheettest.ConfigSheet
	t.Cleanup(func() { configSheet = "" })

	out := runTo(t, runSchema, path, sheettest.EntrySheet)
	assert.NotEmpty(t, out["fields"])
}

func TestNewAccessor(t *testing.T) {
	_, err := newAccessor(filepath.Join(t.TempDir(), "missing.xlsx"), newLogger())
	assert.Error(t, err)

	t.Setenv("GRAPH_TOKEN", "")
	_, err = newAccessor("https://contoso.sharepoint.com/sites/x/Shared Documents/a.xlsx", newLogger())
	assert.ErrorContains(t, err, "token")

	graphToken = "t"
	t.Cleanup(func() { graphToken = "" })
	acc, err := newAccessor("https://contoso.sharepoint.com/sites/x/Shared Documents/a.xlsx", newLogger())
	require.NoError(t, err)
	assert.NotNil(t, acc)
}
