package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseEntityType(t *testing.T) {
	t.Run("Known types are kept", func(t *testing.T) {
		for _, name := range []string{"File", "Function", "Class", "Variable", "Module", "ImportedName", "ExternalCallTarget"} {
			assert.Equal(t, EntityType(name), ParseEntityType(name), "Expected %s to be a known type", name)
		}
	})

	t.Run("Unknown strings fall back to Unknown", func(t *testing.T) {
		assert.Equal(t, EntityTypeUnknown, ParseEntityType("Person"))
		assert.Equal(t, EntityTypeUnknown, ParseEntityType("file"), "Expected parsing to be case sensitive")
		assert.Equal(t, EntityTypeUnknown, ParseEntityType("Func; DROP"))
		assert.False(t, EntityType("Method").Valid())
	})
}

func TestParseRelationType(t *testing.T) {
	t.Run("Known types are kept", func(t *testing.T) {
		assert.Equal(t, RelationCalls, ParseRelationType("CALLS"))
		assert.Equal(t, RelationImportsAliasedOriginal, ParseRelationType("IMPORTS_ALIASED_ORIGINAL"))
	})

	t.Run("Unknown strings fall back to RELATED_TO", func(t *testing.T) {
		assert.Equal(t, RelationRelatedTo, ParseRelationType("INHERITS"))
		assert.True(t, RelationRelatedTo.Valid())
	})
}

func TestGlobalEntityID(t *testing.T) {
	t.Run("Same type and name give same id", func(t *testing.T) {
		a := GlobalEntityID(EntityTypeExternalCallTarget, "print")
		b := GlobalEntityID(EntityTypeExternalCallTarget, "print")
		assert.Equal(t, a, b, "Expected deterministic placeholder ids")
	})

	t.Run("Type is part of the key", func(t *testing.T) {
		a := GlobalEntityID(EntityTypeModule, "os")
		b := GlobalEntityID(EntityTypeImportedName, "os")
		assert.NotEqual(t, a, b, "Expected module and imported name to be different nodes")
	})

	t.Run("Global entity has no location", func(t *testing.T) {
		e := NewGlobalEntity(EntityTypeModule, "os")
		assert.Equal(t, EntityScopeGlobal, e.Scope)
		assert.False(t, e.HasLocation())
		assert.Equal(t, "os", e.Text(), "Expected name as text without raw text")
	})
}

func TestDetectLanguage(t *testing.T) {
	t.Run("Known extensions", func(t *testing.T) {
		assert.Equal(t, LanguagePython, DetectLanguage("/src/app/main.py"))
		assert.Equal(t, LanguageJavaScript, DetectLanguage("index.JSX"), "Expected extension match to ignore case")
		assert.Equal(t, LanguageTypeScript, DetectLanguage("component.tsx"))
		assert.Equal(t, LanguageGo, DetectLanguage("server.go"))
	})

	t.Run("Unknown extension", func(t *testing.T) {
		assert.Equal(t, LanguageUnknown, DetectLanguage("README.md"))
		assert.Equal(t, LanguageUnknown, DetectLanguage("Makefile"))
	})

	t.Run("Every listed language has an extension", func(t *testing.T) {
		for _, lang := range Languages() {
			found := false
			for _, l := range extensionLanguages {
				found = found || l == lang
			}
			assert.True(t, found, "Expected an extension for %s", lang)
		}
	})
}
