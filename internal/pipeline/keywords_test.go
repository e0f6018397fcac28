package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/jobhunter/internal/config"
	"github.com/ternarybob/jobhunter/internal/models"
)

func keywordJob(title, description string) *models.Job {
	return &models.Job{Title: title, Description: description}
}

func TestFilterByKeywords(t *testing.T) {
	keywords := config.KeywordLists{
		MustHaveAny:      []string{"golang", "go "},
		MustNotHave:      []string{"unpaid", "internship"},
		TitleMustHaveAny: []string{"engineer", "developer"},
	}

	tests := []struct {
		name       string
		job        *models.Job
		wantOK     bool
		wantReason string
	}{
		{
			name:   "accepted",
			job:    keywordJob("Senior Go Engineer", "We use Golang and Kubernetes"),
			wantOK: true,
		},
		{
			name:       "no required keyword",
			job:        keywordJob("Java Engineer", "Spring Boot microservices"),
			wantOK:     false,
			wantReason: "no_required_keyword",
		},
		{
			name:       "excluded keyword",
			job:        keywordJob("Go Engineer", "This is an unpaid internship using Golang"),
			wantOK:     false,
			wantReason: "has_excluded_keyword:unpaid",
		},
		{
			name:       "title missing role keyword",
			job:        keywordJob("Golang Evangelist", "Write Go all day"),
			wantOK:     false,
			wantReason: "title_missing_role_keyword",
		},
		{
			name:   "case insensitive match",
			job:    keywordJob("GOLANG DEVELOPER", "GO services"),
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, reason := FilterByKeywords(tt.job, keywords)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestFilterByKeywordsEmptyListsAcceptEverything(t *testing.T) {
	ok, reason := FilterByKeywords(keywordJob("Anything", ""), config.KeywordLists{})
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestFilterByKeywordsSearchesRequirements(t *testing.T) {
	keywords := config.KeywordLists{MustHaveAny: []string{"terraform"}}
	job := &models.Job{Title: "Platform Engineer", Requirements: "Terraform experience required"}

	ok, _ := FilterByKeywords(job, keywords)
	assert.True(t, ok, "requirements text participates in the match")
}
