package retrieval

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/siherrmann/codegraph/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "a.py")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadSnippet(t *testing.T) {
	path := writeFile(t, "def foo():\n    return 1\n\nx = foo()\n")

	t.Run("Inclusive one based range", func(t *testing.T) {
		assert.Equal(t, "def foo():\n    return 1", ReadSnippet(path, 1, 2))
		assert.Equal(t, "x = foo()", ReadSnippet(path, 4, 4))
	})

	t.Run("Out of bounds", func(t *testing.T) {
		snippet := ReadSnippet(path, 3, 9)
		assert.True(t, model.IsSnippetError(snippet))
		assert.Equal(t, "ERROR: line range 3-9 out of bounds for "+path+" (4 lines)", snippet)
		assert.True(t, model.IsSnippetError(ReadSnippet(path, 0, 1)))
		assert.True(t, model.IsSnippetError(ReadSnippet(path, 3, 2)))
	})

	t.Run("Missing file", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "gone.py")
		assert.Equal(t, "ERROR: file not found: "+missing, ReadSnippet(missing, 1, 1))
	})

	t.Run("Unreadable path", func(t *testing.T) {
		snippet := ReadSnippet(t.TempDir(), 1, 1)
		assert.Contains(t, snippet, "ERROR: error reading file:")
	})

	t.Run("File without trailing newline", func(t *testing.T) {
		noNewline := writeFile(t, "a\nb")
		assert.Equal(t, "b", ReadSnippet(noNewline, 2, 2))
	})
}
