package model

import (
	"path/filepath"
	"strings"
)

// Language is a source language known to the parser.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageGo         Language = "go"
	LanguageJava       Language = "java"
	LanguageUnknown    Language = "unknown"
)

// Languages returns every language with a known file extension.
func Languages() []Language {
	return []Language{LanguagePython, LanguageJavaScript, LanguageTypeScript, LanguageGo, LanguageJava}
}

var extensionLanguages = map[string]Language{
	".py":   LanguagePython,
	".js":   LanguageJavaScript,
	".jsx":  LanguageJavaScript,
	".mjs":  LanguageJavaScript,
	".cjs":  LanguageJavaScript,
	".ts":   LanguageTypeScript,
	".tsx":  LanguageTypeScript,
	".go":   LanguageGo,
	".java": LanguageJava,
}

// DetectLanguage returns the language of a file based on its extension.
func DetectLanguage(path string) Language {
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}
	return LanguageUnknown
}
