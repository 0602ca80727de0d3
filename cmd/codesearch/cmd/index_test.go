package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempRepo(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"),
		[]byte("package main\n\nfunc main() {\n\tprintln(\"hello world\")\n}\n"), 0o644))
	return root
}

func TestIndexCmd_IndexesAndReportsStats(t *testing.T) {
	root := writeTempRepo(t)

	cmd := newIndexCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetArgs([]string{root})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Indexed")
}

func TestIndexCmd_RejectsUnknownSplitter(t *testing.T) {
	root := writeTempRepo(t)

	cmd := newIndexCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{root, "--splitter", "bogus"})

	err := cmd.Execute()
	require.Error(t, err)
}

func TestSearchCmd_AfterIndex_FindsResult(t *testing.T) {
	root := writeTempRepo(t)

	indexCmd := newIndexCmd()
	indexCmd.SetOut(&bytes.Buffer{})
	indexCmd.SetArgs([]string{root})
	require.NoError(t, indexCmd.Execute())

	searchCmd := newSearchCmd()
	buf := &bytes.Buffer{}
	searchCmd.SetOut(buf)
	searchCmd.SetArgs([]string{"--path", root, "hello", "world"})
	require.NoError(t, searchCmd.Execute())

	assert.Contains(t, buf.String(), "main.go")
}

func TestStatusCmd_ReflectsIndexingState(t *testing.T) {
	root := writeTempRepo(t)

	status := newStatusCmd()
	buf := &bytes.Buffer{}
	status.SetOut(buf)
	status.SetArgs([]string{root})
	require.NoError(t, status.Execute())
	assert.Contains(t, buf.String(), "not indexed")

	indexCmd := newIndexCmd()
	indexCmd.SetOut(&bytes.Buffer{})
	indexCmd.SetArgs([]string{root})
	require.NoError(t, indexCmd.Execute())

	buf.Reset()
	status = newStatusCmd()
	status.SetOut(buf)
	status.SetArgs([]string{root})
	require.NoError(t, status.Execute())
	assert.Contains(t, buf.String(), "indexed (")
}

func TestClearCmd_RemovesIndex(t *testing.T) {
	root := writeTempRepo(t)

	indexCmd := newIndexCmd()
	indexCmd.SetOut(&bytes.Buffer{})
	indexCmd.SetArgs([]string{root})
	require.NoError(t, indexCmd.Execute())

	clear := newClearCmd()
	buf := &bytes.Buffer{}
	clear.SetOut(buf)
	clear.SetArgs([]string{root})
	require.NoError(t, clear.Execute())
	assert.Contains(t, buf.String(), "Cleared index")
}
