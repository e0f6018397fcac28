package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/jobhunter/internal/common"
)

func TestEffectiveKeywordsNoSite(t *testing.T) {
	global := common.KeywordsConfig{
		MustHaveAny: []string{"golang", "go"},
		MustNotHave: []string{"unpaid"},
	}

	got := EffectiveKeywords(global, nil)
	assert.Equal(t, []string{"golang", "go"}, got.MustHaveAny)
	assert.Equal(t, []string{"unpaid"}, got.MustNotHave)
	assert.Empty(t, got.TitleMustHaveAny)
}

func TestEffectiveKeywordsOverrideReplaces(t *testing.T) {
	global := common.KeywordsConfig{MustHaveAny: []string{"golang"}}
	site := &SiteKeywords{Override: true, MustHaveAny: []string{"rust"}}

	got := EffectiveKeywords(global, site)
	assert.Equal(t, []string{"rust"}, got.MustHaveAny)
	assert.Empty(t, got.MustNotHave)
}

func TestEffectiveKeywordsUnion(t *testing.T) {
	global := common.KeywordsConfig{
		MustHaveAny: []string{"Golang", "kubernetes"},
		MustNotHave: []string{"junior"},
	}
	site := &SiteKeywords{
		MustHaveAny: []string{"golang", "terraform"}, // golang is a dup (case-insensitive)
		MustNotHave: []string{"intern"},
	}

	got := EffectiveKeywords(global, site)
	assert.Equal(t, []string{"Golang", "kubernetes", "terraform"}, got.MustHaveAny)
	assert.Equal(t, []string{"junior", "intern"}, got.MustNotHave)
}

func TestUnionFoldSkipsBlanks(t *testing.T) {
	got := unionFold([]string{"a", "", "  "}, []string{"A", "b"})
	assert.Equal(t, []string{"a", "b"}, got)
}
