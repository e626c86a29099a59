package backend

import (
	"fmt"
	"strings"

	"github.com/PabloGalante/sourcechat/internal/app/mention"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

const answerSystemPrompt = `
You answer questions for a team using only the knowledge sources listed below.

Style guidelines:
- Answer in the SAME LANGUAGE as the question.
- Be concise and factual; use short paragraphs or bullet points.
- If the sources do not cover the question, say so instead of guessing.
- Mention which source you relied on by its @label.
`

const suggestSystemPrompt = `
You route questions to the single most relevant knowledge source.
Reply with exactly one label from the list, without "@", quotes or any other text.
If none fits, reply with the first label.
`

// BuildSuggestPrompt lists the candidate labels for source selection.
func BuildSuggestPrompt(query string, sources []domain.Source) string {
	var b strings.Builder
	b.WriteString("Sources:\n")
	writeSources(&b, sources)
	b.WriteString("\nQuestion:\n")
	b.WriteString(query)
	return b.String()
}

// BuildAnswerPrompt describes the sources the answer may draw from.
func BuildAnswerPrompt(query string, sources []domain.Source) string {
	var b strings.Builder
	if len(sources) > 0 {
		b.WriteString("Knowledge sources:\n")
		writeSources(&b, sources)
		b.WriteString("\n")
	}
	b.WriteString("Question:\n")
	b.WriteString(query)
	return b.String()
}

func writeSources(b *strings.Builder, sources []domain.Source) {
	for _, s := range sources {
		fmt.Fprintf(b, "- @%s (%s)", s.Label(), s.Type)
		if s.Description != "" {
			b.WriteString(": ")
			b.WriteString(s.Description)
		}
		b.WriteString("\n")
	}
}

// matchLabel maps a model reply back onto a known label, or "".
func matchLabel(reply string, sources []domain.Source) string {
	reply = strings.TrimSpace(reply)
	reply = strings.Trim(reply, "\"'`.")
	reply = strings.TrimPrefix(reply, "@")
	if reply == "" {
		return ""
	}
	for _, c := range mention.Candidates(sources) {
		if strings.EqualFold(c.Label, reply) {
			return c.Label
		}
	}
	return ""
}

// sourcesFor keeps the source a label points to, or all of them when label is empty or unknown.
func sourcesFor(label string, sources []domain.Source) []domain.Source {
	if label == "" {
		return sources
	}
	for _, c := range mention.Candidates(sources) {
		if c.Label == label {
			return []domain.Source{c.Source}
		}
	}
	return sources
}
