package main

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rmanova/internal/report"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulateComputeVerify(t *testing.T) {
	dir := t.TempDir()
	design := filepath.Join(dir, "design.xlsx")
	results := filepath.Join(dir, "results.xlsx")

	_, err := run(t, "simulate", design, "--subjects", "8", "--conditions", "3", "--slices", "3", "--effect", "0,0.5,1")
	require.NoError(t, err)

	out, err := run(t, "compute", design, "--json", "--out", results, "--workers", "2")
	require.NoError(t, err)
	var payload report.Payload
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, []int{3}, payload.BatchShape)
	assert.Equal(t, 2, payload.DFCondition)
	assert.Equal(t, 14, payload.DFError)
	assert.Equal(t, []string{"slice_1", "slice_2", "slice_3"}, payload.Labels)
	assert.FileExists(t, results)

	out, err = run(t, "compute", design, "--sheets", "slice_2")
	require.NoError(t, err)
	assert.Contains(t, out, "condition")

	out, err = run(t, "verify", design)
	require.NoError(t, err)
	assert.Contains(t, out, "slice_3")
}

func TestCompute_MissingFile(t *testing.T) {
	_, err := run(t, "compute", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestCompute_RequiresFile(t *testing.T) {
	_, err := run(t, "compute")
	assert.Error(t, err)
}

func TestCompute_OutFlagNamesWorkbook(t *testing.T) {
	flag := newComputeCmd(&app{}).Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Contains(t, flag.Usage, "xlsx")
	assert.NotContains(t, flag.Usage, "csv")
}
