package parser

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/siherrmann/codegraph/model"
)

var (
	// ErrUnsupportedLanguage is returned for languages without a grammar.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrParseFailed is returned if the grammar produced no tree.
	ErrParseFailed = errors.New("parse failed")
)

var grammars = map[model.Language]func() *sitter.Language{
	model.LanguagePython:     python.GetLanguage,
	model.LanguageJavaScript: javascript.GetLanguage,
	model.LanguageTypeScript: typescript.GetLanguage,
	model.LanguageGo:         golang.GetLanguage,
	model.LanguageJava:       java.GetLanguage,
}

// Grammar returns the tree-sitter grammar of a language.
func Grammar(lang model.Language) (*sitter.Language, error) {
	grammar, ok := grammars[lang]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	return grammar(), nil
}

// Supported reports whether a grammar exists for lang.
func Supported(lang model.Language) bool {
	_, ok := grammars[lang]
	return ok
}

// SyntaxTree is a parsed source file. It must be closed after use.
type SyntaxTree struct {
	Tree     *sitter.Tree
	Source   []byte
	Language model.Language
}

// Root returns the root node of the tree.
func (t *SyntaxTree) Root() *sitter.Node {
	return t.Tree.RootNode()
}

// HasErrors reports whether the grammar had to recover from syntax errors.
func (t *SyntaxTree) HasErrors() bool {
	return t.Root().HasError()
}

// Close releases the native tree.
func (t *SyntaxTree) Close() {
	if t != nil && t.Tree != nil {
		t.Tree.Close()
	}
}

// Parse parses source as lang. Parsers are not reused, Parse is safe for concurrent use.
func Parse(ctx context.Context, source []byte, lang model.Language) (*SyntaxTree, error) {
	grammar, err := Grammar(lang)
	if err != nil {
		return nil, err
	}

	p := sitter.NewParser()
	defer p.Close()
	p.SetLanguage(grammar)

	tree, err := p.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if tree == nil {
		return nil, ErrParseFailed
	}

	return &SyntaxTree{
		Tree:     tree,
		Source:   source,
		Language: lang,
	}, nil
}
