package pipeline

import (
	"strings"

	"github.com/ternarybob/jobhunter/internal/config"
	"github.com/ternarybob/jobhunter/internal/models"
)

// Keyword rejection reasons
const (
	reasonNoRequiredKeyword = "no_required_keyword"
	reasonExcludedKeyword   = "has_excluded_keyword:"
	reasonTitleMissingRole  = "title_missing_role_keyword"
)

// FilterByKeywords applies the three-rule keyword test to one job. Returns
// accepted=true with an empty reason, or accepted=false with the rejection
// reason. All comparisons are case-insensitive substring matches.
func FilterByKeywords(job *models.Job, keywords config.KeywordLists) (bool, string) {
	text := strings.ToLower(job.Title + " " + job.Description + " " + job.Requirements)

	if len(keywords.MustHaveAny) > 0 && !containsAny(text, keywords.MustHaveAny) {
		return false, reasonNoRequiredKeyword
	}

	for _, kw := range keywords.MustNotHave {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return false, reasonExcludedKeyword + kw
		}
	}

	if len(keywords.TitleMustHaveAny) > 0 && !containsAny(strings.ToLower(job.Title), keywords.TitleMustHaveAny) {
		return false, reasonTitleMissingRole
	}

	return true, ""
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
