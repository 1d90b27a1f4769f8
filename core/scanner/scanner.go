package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/siherrmann/codegraph/model"
)

// DefaultExcludes are skipped by Collect unless Config.Excludes is set.
var DefaultExcludes = []string{
	".git",
	"__pycache__",
	"node_modules",
	".DS_Store",
	".vscode",
	"venv",
	".env",
	"*.min.js",
	"*.map",
}

// Config configures a Collect call.
type Config struct {
	// Excludes are doublestar patterns matched against the base name and
	// the slash separated path relative to the root.
	Excludes []string
	// Languages limits the collected files. Empty collects every known language.
	Languages []model.Language
}

// File is a source file found by Collect.
type File struct {
	Path     string         `json:"path"`
	Language model.Language `json:"language"`
}

// Collect walks root and returns the source files of a known language
// whose paths match none of the exclude patterns, in lexical order.
func Collect(root string, config Config) ([]File, error) {
	excludes := config.Excludes
	if excludes == nil {
		excludes = DefaultExcludes
	}
	for _, pattern := range excludes {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern: %s", pattern)
		}
	}

	languages := map[model.Language]bool{}
	for _, lang := range config.Languages {
		languages[lang] = true
	}

	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel != "." && excluded(excludes, d.Name(), filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		lang := model.DetectLanguage(path)
		if lang == model.LanguageUnknown {
			return nil
		}
		if len(languages) > 0 && !languages[lang] {
			return nil
		}

		files = append(files, File{Path: path, Language: lang})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking %s: %w", root, err)
	}

	return files, nil
}

func excluded(patterns []string, name string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}
