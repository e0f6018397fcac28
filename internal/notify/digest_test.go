package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

func digestMatch(title string, score int) *interfaces.MatchMessage {
	return &interfaces.MatchMessage{
		Job:   &models.Job{Title: title, Company: "Acme", Location: "Sydney"},
		Score: &models.ScoredJob{Score: score},
	}
}

func TestRenderDigestHTMLSortsByScore(t *testing.T) {
	matches := []*interfaces.MatchMessage{
		digestMatch("Middle Role", 65),
		digestMatch("Top Role", 78),
		digestMatch("Bottom Role", 61),
	}

	body := renderDigestHTML(matches)

	top := strings.Index(body, "Top Role")
	middle := strings.Index(body, "Middle Role")
	bottom := strings.Index(body, "Bottom Role")
	require.NotEqual(t, -1, top)
	require.NotEqual(t, -1, middle)
	require.NotEqual(t, -1, bottom)
	assert.Less(t, top, middle, "highest score renders first")
	assert.Less(t, middle, bottom)

	// Queue order is preserved for the caller
	assert.Equal(t, "Middle Role", matches[0].Job.Title)
}

func TestRenderDigestHTMLEscapesContent(t *testing.T) {
	match := digestMatch("Engineer <script>", 70)
	match.Job.URL = "https://example.com/jobs?a=1&b=2"

	body := renderDigestHTML([]*interfaces.MatchMessage{match})
	assert.Contains(t, body, "Engineer &lt;script&gt;")
	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "a=1&amp;b=2")
}

func TestSendDigestDisabledIsNoOp(t *testing.T) {
	mailer := NewMailer(&common.SMTPConfig{}, common.GetLogger())
	assert.False(t, mailer.Enabled())
	require.NoError(t, mailer.SendDigest(context.Background(), []*interfaces.MatchMessage{digestMatch("Role", 70)}))
}
