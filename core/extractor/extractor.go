package extractor

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/siherrmann/codegraph/core/parser"
	"github.com/siherrmann/codegraph/model"
)

//go:embed queries/*.scm
var defaultQueries embed.FS

// Capture names used by the query files.
const (
	CaptureFunctionName       = "function.name"
	CaptureClassName          = "class.name"
	CaptureVariableName       = "variable.name"
	CaptureMethodName         = "method.name"
	CaptureCallTargetName     = "call.target.name"
	CaptureImportModule       = "import.module"
	CaptureImportName         = "import.name"
	CaptureImportNameOriginal = "import.name_original"
	CaptureImportAlias        = "import.alias"
	CaptureWildcardImport     = "wildcard_import"
)

// localNamespace is the UUIDv5 namespace of deterministic local ids.
var localNamespace = uuid.MustParse("b3d1f0a2-8c4e-4f6b-9d27-5e1a7c3b9f40")

// Config configures an Extractor.
type Config struct {
	// DeterministicIDs derives local ids from file path, type, name and row
	// instead of minting random ones, so re-analysis of unchanged files merges.
	DeterministicIDs bool
	// Queries holds one <language>.scm query file per language.
	// Defaults to the embedded queries.
	Queries fs.FS
}

// Result holds the entities and relationships extracted from one file.
type Result struct {
	Entities      []*model.Entity       `json:"entities"`
	Relationships []*model.Relationship `json:"relationships"`
}

// Extractor turns syntax trees into code graph entities and relationships.
type Extractor struct {
	config  Config
	log     *slog.Logger
	mu      sync.Mutex
	queries map[model.Language]*sitter.Query
}

// NewExtractor creates an Extractor. A nil logger uses slog.Default.
func NewExtractor(config Config, logger *slog.Logger) *Extractor {
	if config.Queries == nil {
		queries, _ := fs.Sub(defaultQueries, "queries")
		config.Queries = queries
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		config:  config,
		log:     logger,
		queries: map[model.Language]*sitter.Query{},
	}
}

// Supports reports whether a query file exists for lang.
func (x *Extractor) Supports(lang model.Language) bool {
	_, err := fs.Stat(x.config.Queries, string(lang)+".scm")
	return err == nil
}

// Extract runs the language query over tree and returns the file entity, the
// entities it defines and references, and the relationships between them.
// Without a usable query the result is empty. Problems during traversal are
// logged and the entities found so far are returned.
func (x *Extractor) Extract(ctx context.Context, tree *parser.SyntaxTree, filePath string) (result *Result) {
	query, err := x.query(tree.Language)
	if err != nil {
		x.log.Error("Failed to load query", slog.String("language", string(tree.Language)), slog.String("file_path", filePath), slog.String("error", err.Error()))
		return &Result{}
	}
	if query == nil {
		x.log.Debug("No extractor for language", slog.String("language", string(tree.Language)), slog.String("file_path", filePath))
		return &Result{}
	}

	e := newExtraction(x, tree.Source, filePath)
	result = e.result

	defer func() {
		if r := recover(); r != nil {
			x.log.Error("Extraction aborted", slog.String("file_path", filePath), slog.Any("panic", r))
			result = e.result
		}
	}()

	for _, c := range collectCaptures(query, tree.Root()) {
		if err := ctx.Err(); err != nil {
			x.log.Warn("Extraction cancelled", slog.String("file_path", filePath), slog.String("error", err.Error()))
			break
		}
		e.handle(c.name, c.node)
	}

	x.log.Debug("Extracted file", slog.String("file_path", filePath), slog.Int("entities", len(result.Entities)), slog.Int("relationships", len(result.Relationships)))

	return result
}

// query returns the compiled query of lang, or nil if there is no query file for it.
func (x *Extractor) query(lang model.Language) (*sitter.Query, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if q, ok := x.queries[lang]; ok {
		return q, nil
	}

	if !x.Supports(lang) {
		return nil, nil
	}

	source, err := fs.ReadFile(x.config.Queries, string(lang)+".scm")
	if err != nil {
		return nil, fmt.Errorf("error reading %s query: %w", lang, err)
	}

	grammar, err := parser.Grammar(lang)
	if err != nil {
		return nil, err
	}

	q, err := sitter.NewQuery(source, grammar)
	if err != nil {
		return nil, fmt.Errorf("error compiling %s query: %w", lang, err)
	}

	x.queries[lang] = q
	return q, nil
}

type capture struct {
	name string
	node *sitter.Node
}

// collectCaptures returns all captures of query in source order.
// A node captured twice under the same name is returned once.
func collectCaptures(query *sitter.Query, root *sitter.Node) []capture {
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(query, root)

	type key struct {
		name       string
		start, end uint32
	}
	seen := map[key]bool{}

	var captures []capture
	for {
		match, ok := cursor.NextMatch()
		if !ok {
			break
		}
		for _, c := range match.Captures {
			name := query.CaptureNameForId(c.Index)
			k := key{name: name, start: c.Node.StartByte(), end: c.Node.EndByte()}
			if seen[k] {
				continue
			}
			seen[k] = true
			captures = append(captures, capture{name: name, node: c.Node})
		}
	}

	sort.SliceStable(captures, func(i, j int) bool {
		return captures[i].node.StartByte() < captures[j].node.StartByte()
	})

	return captures
}
