package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/siherrmann/codegraph/core/extractor"
	"github.com/siherrmann/codegraph/core/graph"
	"github.com/siherrmann/codegraph/core/parser"
	"github.com/siherrmann/codegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd(t *testing.T) {
	t.Run("Subcommands are registered", func(t *testing.T) {
		cmd := rootCmd(&bytes.Buffer{})
		for _, name := range []string{"analyze", "embed", "search", "ask", "summary", "traverse", "details", "parse"} {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "Expected subcommand %s", name)
			assert.Equal(t, name, sub.Name())
		}
	})

	t.Run("Missing arguments fail before connecting", func(t *testing.T) {
		cmd := rootCmd(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"search"})
		assert.Error(t, cmd.Execute(), "Expected search without query to fail")
	})

	t.Run("Invalid node id", func(t *testing.T) {
		cmd := rootCmd(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"traverse", "not-a-uuid"})
		assert.ErrorContains(t, cmd.Execute(), "invalid node id")
	})
}

func TestParseCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.py")
	require.NoError(t, os.WriteFile(path, []byte("def foo():\n    print(\"x\")\n"), 0o644))

	t.Run("Syntax tree dump", func(t *testing.T) {
		var out bytes.Buffer
		cmd := rootCmd(&out)
		cmd.SetArgs([]string{"parse", path})
		require.NoError(t, cmd.Execute())

		var nodes []parser.SyntaxNode
		require.NoError(t, json.Unmarshal(out.Bytes(), &nodes))
		require.NotEmpty(t, nodes, "Expected at least the root node")
		assert.Equal(t, "module", nodes[0].Type)
		assert.Equal(t, -1, nodes[0].ParentID)
	})

	t.Run("Extracted entities", func(t *testing.T) {
		var out bytes.Buffer
		cmd := rootCmd(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"parse", path, "--entities"})
		require.NoError(t, cmd.Execute())

		var result extractor.Result
		require.NoError(t, json.Unmarshal(out.Bytes(), &result))
		names := []string{}
		for _, entity := range result.Entities {
			names = append(names, entity.Name)
		}
		assert.ElementsMatch(t, []string{path, "foo", "print"}, names)
	})

	t.Run("Unsupported language", func(t *testing.T) {
		notes := filepath.Join(t.TempDir(), "notes.txt")
		require.NoError(t, os.WriteFile(notes, []byte("hello"), 0o644))

		cmd := rootCmd(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"parse", notes})
		assert.ErrorIs(t, cmd.Execute(), parser.ErrUnsupportedLanguage)
	})
}

func TestTraversalOptions(t *testing.T) {
	t.Run("Valid options", func(t *testing.T) {
		opts, err := traversalOptions(3, "both", []string{"CALLS", "CONTAINS"})
		require.NoError(t, err)
		assert.Equal(t, graph.Options{MaxHops: 3, Direction: graph.Both, RelTypes: []model.RelationType{model.RelationCalls, model.RelationContains}}, opts)
	})

	t.Run("Invalid direction and type", func(t *testing.T) {
		_, err := traversalOptions(1, "sideways", nil)
		assert.Error(t, err)
		_, err = traversalOptions(1, "out", []string{"DEFINES"})
		assert.Error(t, err)
	})
}

func TestWriteJSON(t *testing.T) {
	t.Run("Indented output", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, writeJSON(&out, model.SearchConfig{TopK: 5}))
		assert.Equal(t, "{\n  \"top_k\": 5\n}\n", out.String())
	})
}
