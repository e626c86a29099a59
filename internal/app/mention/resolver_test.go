package mention_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/sourcechat/internal/app/mention"
	"github.com/PabloGalante/sourcechat/internal/domain"
)

func src(id, nickname, name string) domain.Source {
	return domain.Source{ID: domain.SourceID(id), Nickname: nickname, Name: name, Type: domain.SourceDocument}
}

func TestResolvePrefersLongestLabel(t *testing.T) {
	sources := []domain.Source{
		src("1", "meeting", ""),
		src("2", "meeting notes", ""),
	}

	label, ok := mention.Resolve("please check @meeting notes now", sources)
	require.True(t, ok)
	assert.Equal(t, "meeting notes", label)
}

func TestResolveWordBoundary(t *testing.T) {
	sources := []domain.Source{src("1", "revenue", "")}

	tests := []struct {
		name  string
		text  string
		match bool
	}{
		{"word rune after", "@revenueQ4 numbers", false},
		{"digit after", "@revenue2024", false},
		{"underscore after", "@revenue_v2", false},
		{"hyphen after counts as boundary", "@revenue-2024 numbers", true},
		{"end of text", "show me @revenue", true},
		{"punctuation after", "what about @revenue?", true},
		{"word rune before", "mail me@revenue today", false},
		{"punctuation before", "(@revenue)", true},
		{"second occurrence valid", "@revenueQ4 vs @revenue", true},
		{"no mention", "revenue numbers", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := mention.Resolve(tt.text, sources)
			assert.Equal(t, tt.match, ok)
			if tt.match {
				assert.Equal(t, "revenue", label)
			}
		})
	}
}

func TestResolveNoSources(t *testing.T) {
	_, ok := mention.Resolve("@anything here", nil)
	assert.False(t, ok)
}

func TestResolveFallsBackToName(t *testing.T) {
	sources := []domain.Source{src("1", "", "Quarterly Report.pdf")}

	label, ok := mention.Resolve("summarize @Quarterly Report.pdf please", sources)
	require.True(t, ok)
	assert.Equal(t, "Quarterly Report.pdf", label)
}

func TestResolveNicknameWinsTieWithName(t *testing.T) {
	sources := []domain.Source{
		src("1", "", "wiki"),
		src("2", "docs", ""),
	}

	candidates := mention.Candidates(sources)
	require.Len(t, candidates, 2)
	assert.Equal(t, "docs", candidates[0].Label)
	assert.Equal(t, "wiki", candidates[1].Label)
}

func TestResolveLongestWinsOverFirstOccurring(t *testing.T) {
	sources := []domain.Source{
		src("1", "ops", ""),
		src("2", "ops runbook", ""),
	}

	c, ok := mention.ResolveCandidate("@ops first, then @ops runbook", sources)
	require.True(t, ok)
	assert.Equal(t, "ops runbook", c.Label)
	assert.Equal(t, domain.SourceID("2"), c.Source.ID)
}
