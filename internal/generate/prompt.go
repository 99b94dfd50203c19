package generate

import (
	"fmt"
	"strings"
)

const basePersona = `You are a helpful voice assistant for a technology services company.
Keep answers short and conversational, two or three sentences at most, because
they will be spoken aloud. Do not use markdown, bullet points, or code blocks.
If you do not know the answer, say so plainly instead of guessing.`

// BuildPreamble composes the system prompt for a fresh conversation. When
// knowledge text is available it is appended so the model can answer
// company-specific questions; otherwise the bare persona is used.
func BuildPreamble(knowledge string) string {
	knowledge = strings.TrimSpace(knowledge)
	if knowledge == "" {
		return basePersona
	}
	return fmt.Sprintf("%s\n\nUse the following company knowledge when relevant:\n\n%s", basePersona, knowledge)
}
