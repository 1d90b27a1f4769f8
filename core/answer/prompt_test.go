package answer

import (
	"testing"

	"github.com/google/uuid"
	"github.com/siherrmann/codegraph/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt(t *testing.T) {
	path := "/src/app.py"
	code := &model.ContextBundle{
		NodeID:      uuid.New(),
		FilePath:    &path,
		Type:        model.EntityTypeFunction,
		Name:        "foo",
		CodeSnippet: "def foo():\n    return 1",
		Relations: []model.Neighbor{
			{RelType: model.RelationCalls, TargetNodeName: "print", TargetNodeType: model.EntityTypeExternalCallTarget},
		},
	}
	placeholder := &model.ContextBundle{
		NodeID:      uuid.New(),
		Type:        model.EntityTypeModule,
		Name:        "os",
		CodeSnippet: model.NoSourceSnippet,
		Relations:   []model.Neighbor{{RelType: model.RelationImportsModule, TargetNodeName: path}},
	}

	t.Run("Code template when a snippet exists", func(t *testing.T) {
		prompt := BuildPrompt("what does foo do?", []*model.ContextBundle{code, placeholder})

		assert.Equal(t, codeSystemPrompt, prompt.System)
		assert.Contains(t, prompt.User, "**Query:**\nwhat does foo do?")
		assert.Contains(t, prompt.User, "```python\ndef foo():\n    return 1\n```")
		assert.Contains(t, prompt.User, "**Code snippet:** none", "Expected placeholder bundles without code")
		assert.Contains(t, prompt.User, "- **Relationship:** CALLS, **Target node:** print, **Target type:** ExternalCallTarget")
		assert.Contains(t, prompt.User, "**File path:** N/A")
	})

	t.Run("Structure template without snippets", func(t *testing.T) {
		prompt := BuildPrompt("where is os used?", []*model.ContextBundle{placeholder})

		assert.Equal(t, structureSystemPrompt, prompt.System)
		assert.NotContains(t, prompt.User, "Code snippet")
		assert.Contains(t, prompt.User, "**Target type:** N/A")
	})

	t.Run("Snippet errors count as no code", func(t *testing.T) {
		broken := *code
		broken.CodeSnippet = "ERROR: file not found: /src/app.py"

		prompt := BuildPrompt("query", []*model.ContextBundle{&broken})
		assert.Equal(t, structureSystemPrompt, prompt.System)
	})
}
