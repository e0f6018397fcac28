package config

import (
	"strings"

	"github.com/ternarybob/jobhunter/internal/common"
)

// KeywordLists is the effective three-rule keyword configuration for one site
type KeywordLists struct {
	MustHaveAny      []string
	MustNotHave      []string
	TitleMustHaveAny []string
}

// EffectiveKeywords merges the global keyword lists with a site's overrides.
// When the site sets override, its lists replace the global ones entirely;
// otherwise the lists are unioned with case-insensitive de-duplication.
func EffectiveKeywords(global common.KeywordsConfig, site *SiteKeywords) KeywordLists {
	if site == nil {
		return KeywordLists{
			MustHaveAny:      global.MustHaveAny,
			MustNotHave:      global.MustNotHave,
			TitleMustHaveAny: global.TitleMustHaveAny,
		}
	}

	if site.Override {
		return KeywordLists{
			MustHaveAny:      site.MustHaveAny,
			MustNotHave:      site.MustNotHave,
			TitleMustHaveAny: site.TitleMustHaveAny,
		}
	}

	return KeywordLists{
		MustHaveAny:      unionFold(global.MustHaveAny, site.MustHaveAny),
		MustNotHave:      unionFold(global.MustNotHave, site.MustNotHave),
		TitleMustHaveAny: unionFold(global.TitleMustHaveAny, site.TitleMustHaveAny),
	}
}

// unionFold unions two keyword lists, collapsing case-insensitive duplicates
// while preserving first-seen order and casing.
func unionFold(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	var out []string
	for _, list := range [][]string{a, b} {
		for _, kw := range list {
			key := strings.ToLower(strings.TrimSpace(kw))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, kw)
		}
	}
	return out
}
