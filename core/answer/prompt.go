package answer

import (
	"fmt"
	"strings"

	"github.com/siherrmann/codegraph/model"
)

const (
	codeSystemPrompt = "You are a helpful code assistant. Answer the question using the code snippets and the code graph relationships provided. Give a complete and friendly answer based only on the given information."

	structureSystemPrompt = "You are a helpful code assistant answering questions about the structure of a code base. The information provided is graph structure, not source code. Explain why no snippet can be shown, point out that the actual code is needed for details, and answer with the structural information given."
)

// Prompt is a system prompt and a user message for a language model.
type Prompt struct {
	System string
	User   string
}

// BuildPrompt renders the context bundles of a query into a prompt.
// If any bundle carries source code the code template is used, otherwise the
// structure template that only lists relationships.
func BuildPrompt(query string, bundles []*model.ContextBundle) Prompt {
	withCode := false
	for _, b := range bundles {
		if b.HasSource() {
			withCode = true
			break
		}
	}

	var sb strings.Builder
	system := structureSystemPrompt
	if withCode {
		system = codeSystemPrompt
		fmt.Fprintf(&sb, "Here is the query and the related code context (snippets and relationships).\n\n**Query:**\n%s\n\n**Related code context:**\n---", query)
	} else {
		fmt.Fprintf(&sb, "Here is the query and the related structural information.\n\n**Query:**\n%s\n\n**Related structural information:**\n---", query)
	}

	for _, b := range bundles {
		filePath := "N/A"
		if b.FilePath != nil && *b.FilePath != "" {
			filePath = *b.FilePath
		}
		fmt.Fprintf(&sb, "\n\n**File path:** %s", filePath)
		fmt.Fprintf(&sb, "\n**Node type:** %s", b.Type)
		fmt.Fprintf(&sb, "\n**Node name:** %s", b.Name)

		if withCode {
			if b.HasSource() {
				fmt.Fprintf(&sb, "\n**Code snippet:**\n```%s\n%s\n```", fence(filePath), strings.TrimSpace(b.CodeSnippet))
			} else {
				sb.WriteString("\n**Code snippet:** none")
			}
		}

		if len(b.Relations) > 0 {
			sb.WriteString("\n**Related relationships and nodes:**")
			for _, r := range b.Relations {
				fmt.Fprintf(&sb, "\n- **Relationship:** %s, **Target node:** %s, **Target type:** %s", r.RelType, orNA(r.TargetNodeName), orNA(string(r.TargetNodeType)))
			}
		}
		sb.WriteString("\n---")
	}

	return Prompt{System: system, User: sb.String()}
}

func fence(path string) string {
	lang := model.DetectLanguage(path)
	if lang == model.LanguageUnknown {
		return ""
	}
	return string(lang)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
