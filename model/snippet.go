package model

import "strings"

// NoSourceSnippet is the code snippet of entities without a source location.
const NoSourceSnippet = "No source code available for this node."

// SnippetErrorPrefix starts every code snippet that carries a read error instead of code.
const SnippetErrorPrefix = "ERROR: "

// IsSnippetError reports whether a code snippet is an embedded error message.
func IsSnippetError(snippet string) bool {
	return strings.HasPrefix(snippet, SnippetErrorPrefix)
}
