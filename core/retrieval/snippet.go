package retrieval

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/siherrmann/codegraph/model"
)

// ReadSnippet returns the lines first to last of the file at path, 1-indexed
// and inclusive, joined by newlines. Failures are returned as an error string
// starting with model.SnippetErrorPrefix instead of an error.
func ReadSnippet(path string, first, last int) string {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Sprintf("%sfile not found: %s", model.SnippetErrorPrefix, path)
	}
	if err != nil {
		return fmt.Sprintf("%serror reading file: %v", model.SnippetErrorPrefix, err)
	}

	lines := strings.Split(string(content), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	if first < 1 || last < first || last > len(lines) {
		return fmt.Sprintf("%sline range %d-%d out of bounds for %s (%d lines)", model.SnippetErrorPrefix, first, last, path, len(lines))
	}

	return strings.Join(lines[first-1:last], "\n")
}
