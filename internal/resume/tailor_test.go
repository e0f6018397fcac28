package resume

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/config"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/models"
)

// fakeClient routes tailor and verify calls separately: verify replies are
// consumed in order, tailor calls always return the same body.
type fakeClient struct {
	tailorBody    string
	verifyReplies []string
	tailorCalls   int
	verifyCalls   int
}

func (f *fakeClient) Complete(_ context.Context, req *interfaces.CompletionRequest) (*interfaces.CompletionResponse, error) {
	system := req.Messages[0].Content
	if strings.Contains(system, "fact checker") {
		reply := f.verifyReplies[f.verifyCalls]
		f.verifyCalls++
		return &interfaces.CompletionResponse{Content: reply, Provider: "local"}, nil
	}
	f.tailorCalls++
	return &interfaces.CompletionResponse{Content: f.tailorBody, Provider: "local"}, nil
}

func (f *fakeClient) LastProviderUsed() string { return "local" }

// fakeRenderer writes a placeholder file so path checks work
type fakeRenderer struct {
	calls int
}

func (f *fakeRenderer) RenderPDF(_ context.Context, _ string, outputPath string) error {
	f.calls++
	return os.WriteFile(outputPath, []byte("%PDF-1.4 fake"), 0644)
}

func testMaster(t *testing.T) *config.MasterResume {
	t.Helper()
	path := filepath.Join(t.TempDir(), "master.toml")
	require.NoError(t, os.WriteFile(path, []byte("[personal]\nname = \"Jane Smith\"\n"), 0644))
	master, err := config.LoadMasterResume(path)
	require.NoError(t, err)
	return master
}

func testJob() *models.Job {
	return &models.Job{
		ID:       models.NewJobID("Go Engineer", "Acme Corp", "Sydney"),
		Title:    "Go Engineer",
		Company:  "Acme Corp",
		Location: "Sydney",
	}
}

func TestTailorPassesFirstAttempt(t *testing.T) {
	client := &fakeClient{
		tailorBody:    "<h1>Jane Smith</h1>",
		verifyReplies: []string{`{"pass": true, "issues": []}`},
	}
	renderer := &fakeRenderer{}
	outputDir := t.TempDir()

	tailor := NewTailor(client, renderer, testMaster(t), outputDir, common.GetLogger())
	record, err := tailor.Tailor(context.Background(), testJob(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 1, client.tailorCalls)
	assert.Equal(t, 1, client.verifyCalls)
	assert.Equal(t, 1, renderer.calls)
	assert.True(t, record.Verified)
	assert.Empty(t, record.VerificationIssues)

	assert.Contains(t, filepath.Base(record.PDFPath), "Acme_Corp_Go_Engineer_")
	assert.Contains(t, filepath.Base(record.PDFPath), models.ShortID(testJob().ID))

	html, err := os.ReadFile(record.HTMLPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), "<h1>Jane Smith</h1>")
	assert.Contains(t, string(html), "<!DOCTYPE html>", "body is wrapped in a full document")

	_, err = os.Stat(record.PDFPath)
	assert.NoError(t, err)
}

func TestTailorRetriesUntilVerified(t *testing.T) {
	client := &fakeClient{
		tailorBody: "<p>resume</p>",
		verifyReplies: []string{
			`{"pass": false, "issues": ["invented certification"]}`,
			`{"pass": false, "issues": ["inflated title"]}`,
			`{"pass": true, "issues": []}`,
		},
	}
	renderer := &fakeRenderer{}

	tailor := NewTailor(client, renderer, testMaster(t), t.TempDir(), common.GetLogger())
	record, err := tailor.Tailor(context.Background(), testJob(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, 3, client.tailorCalls)
	assert.Equal(t, 3, client.verifyCalls)
	assert.Equal(t, 1, renderer.calls, "only the passing draft is rendered")
	assert.True(t, record.Verified)
}

func TestTailorGivesUpAfterThreeFailures(t *testing.T) {
	client := &fakeClient{
		tailorBody: "<p>resume</p>",
		verifyReplies: []string{
			`{"pass": false, "issues": ["fabricated employer"]}`,
			`{"pass": false, "issues": ["fabricated employer"]}`,
			`{"pass": false, "issues": ["fabricated employer"]}`,
		},
	}
	renderer := &fakeRenderer{}

	tailor := NewTailor(client, renderer, testMaster(t), t.TempDir(), common.GetLogger())
	record, err := tailor.Tailor(context.Background(), testJob(), "run-1")

	require.ErrorIs(t, err, ErrVerificationFailed)
	assert.Nil(t, record)
	assert.Equal(t, 3, client.tailorCalls)
	assert.Equal(t, 3, client.verifyCalls)
	assert.Equal(t, 0, renderer.calls, "failed drafts are never rendered")
}

func TestTailorStripsFencedBody(t *testing.T) {
	client := &fakeClient{
		tailorBody:    "```html\n<h1>Jane Smith</h1>\n```",
		verifyReplies: []string{`{"pass": true, "issues": []}`},
	}
	tailor := NewTailor(client, &fakeRenderer{}, testMaster(t), t.TempDir(), common.GetLogger())

	record, err := tailor.Tailor(context.Background(), testJob(), "run-1")
	require.NoError(t, err)

	html, err := os.ReadFile(record.HTMLPath)
	require.NoError(t, err)
	assert.NotContains(t, string(html), "```")
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme Corp", "Acme_Corp"},
		{"Acme, Inc. (AU)", "Acme_Inc_AU"},
		{"  spaces  ", "spaces"},
		{"C++/Go Engineer", "C_Go_Engineer"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in))
	}
}
