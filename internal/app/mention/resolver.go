package mention

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PabloGalante/sourcechat/internal/domain"
)

// Candidate is a label that can follow "@" and the source it points to.
type Candidate struct {
	Label  string
	Source domain.Source
}

// Candidates lists every mentionable label, nicknames before fallback names,
// longest first. Equal lengths keep that order so a nickname wins a tie.
func Candidates(sources []domain.Source) []Candidate {
	seen := make(map[string]struct{}, len(sources)*2)
	out := make([]Candidate, 0, len(sources)*2)

	add := func(label string, src domain.Source) {
		if label == "" {
			return
		}
		if _, ok := seen[label]; ok {
			return
		}
		seen[label] = struct{}{}
		out = append(out, Candidate{Label: label, Source: src})
	}

	for _, s := range sources {
		add(s.Nickname, s)
	}
	for _, s := range sources {
		add(s.Name, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Label) > len(out[j].Label)
	})
	return out
}

// Resolve returns the label of the best "@label" mention in text.
// A match needs a boundary on both sides: start/end of text, whitespace or a non-word rune.
func Resolve(text string, sources []domain.Source) (string, bool) {
	c, ok := ResolveCandidate(text, sources)
	if !ok {
		return "", false
	}
	return c.Label, true
}

// ResolveCandidate is Resolve but also returns the matched source.
func ResolveCandidate(text string, sources []domain.Source) (Candidate, bool) {
	if text == "" || len(sources) == 0 {
		return Candidate{}, false
	}

	for _, c := range Candidates(sources) {
		if mentioned(text, "@"+c.Label) {
			return c, true
		}
	}
	return Candidate{}, false
}

// mentioned scans every occurrence of token, not just the first.
func mentioned(text, token string) bool {
	offset := 0
	for {
		i := strings.Index(text[offset:], token)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(token)

		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		offset = start + 1
	}
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return !isWordRune(r)
}

// isWordRune matches the ASCII word class [A-Za-z0-9_]; whitespace is never a word rune.
func isWordRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
