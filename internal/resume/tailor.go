// Package resume generates a tailored resume for each matched job: the model
// rewrites the master resume toward the listing, a second model pass verifies
// that nothing was fabricated, and the result is rendered to PDF.
package resume

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/config"
	"github.com/ternarybob/jobhunter/internal/interfaces"
	"github.com/ternarybob/jobhunter/internal/llm"
	"github.com/ternarybob/jobhunter/internal/models"
)

const maxTailorAttempts = 3

// ErrVerificationFailed means every tailor attempt contained unsupported
// claims. The job gets no resume; a notification may still go out without an
// attachment.
var ErrVerificationFailed = errors.New("resume verification failed after all attempts")

const tailorSystemPrompt = `You are a resume writer. Rewrite the candidate's resume to emphasize the experience and skills most relevant to the given job listing. STRICT RULES: use only facts present in the master resume; never invent employers, titles, dates, certifications or skills; reordering and rephrasing are allowed, fabrication is not. Output ONLY the HTML body content of the resume (headings, paragraphs, lists) with no <html>, <head> or <body> tags, no markdown and no commentary.`

const verifySystemPrompt = `You are a fact checker. Compare a tailored resume against the master resume it was derived from. Flag any claim in the tailored resume that is not supported by the master resume: invented employers, inflated titles, changed dates, added certifications or skills. Respond with ONLY a JSON object: {"pass": <bool>, "issues": ["<issue>", ...]} where issues is empty when pass is true.`

const documentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
body { font-family: Georgia, serif; font-size: 11pt; color: #1a1a1a; max-width: 720px; margin: 0 auto; padding: 24px; }
h1 { font-size: 18pt; margin-bottom: 2px; }
h2 { font-size: 13pt; border-bottom: 1px solid #999; padding-bottom: 2px; margin-top: 18px; }
ul { margin-top: 4px; }
li { margin-bottom: 2px; }
</style>
</head>
<body>
%s
</body>
</html>
`

// verifyReply is the JSON shape the verification pass returns
type verifyReply struct {
	Pass   bool     `json:"pass"`
	Issues []string `json:"issues"`
}

// Tailor generates, verifies and renders tailored resumes
type Tailor struct {
	client    interfaces.ModelClient
	renderer  interfaces.PDFRenderer
	master    *config.MasterResume
	outputDir string
	logger    arbor.ILogger
}

// NewTailor creates the tailoring service. Generated files land under
// <outputDir>/resumes.
func NewTailor(client interfaces.ModelClient, renderer interfaces.PDFRenderer, master *config.MasterResume, outputDir string, logger arbor.ILogger) *Tailor {
	return &Tailor{
		client:    client,
		renderer:  renderer,
		master:    master,
		outputDir: outputDir,
		logger:    logger,
	}
}

// Tailor produces the resume for one job. Generation and verification loop up
// to three times; only a draft that passes verification is rendered and
// recorded. When all attempts fail the job gets no resume and the error wraps
// ErrVerificationFailed.
func (t *Tailor) Tailor(ctx context.Context, job *models.Job, runID string) (*models.TailoredResume, error) {
	var issues []string

	for attempt := 1; attempt <= maxTailorAttempts; attempt++ {
		body, err := t.generate(ctx, job, issues)
		if err != nil {
			return nil, fmt.Errorf("tailoring %s: %w", models.ShortID(job.ID), err)
		}

		issues, err = t.verify(ctx, body)
		if err != nil {
			return nil, fmt.Errorf("verifying %s: %w", models.ShortID(job.ID), err)
		}
		if len(issues) > 0 {
			t.logger.Warn().
				Str("job_id", models.ShortID(job.ID)).
				Int("attempt", attempt).
				Int("issues", len(issues)).
				Msg("Tailored resume failed verification")
			continue
		}

		htmlPath, pdfPath, err := t.write(ctx, job, body)
		if err != nil {
			return nil, err
		}

		return &models.TailoredResume{
			JobID:       job.ID,
			HTMLPath:    htmlPath,
			PDFPath:     pdfPath,
			Verified:    true,
			GeneratedAt: time.Now().UTC(),
			RunID:       runID,
		}, nil
	}

	return nil, fmt.Errorf("%w for %s: %s", ErrVerificationFailed, models.ShortID(job.ID), strings.Join(issues, "; "))
}

// generate asks the model for the tailored body HTML. Issues from a failed
// verification round are fed back so the next attempt can correct them.
func (t *Tailor) generate(ctx context.Context, job *models.Job, priorIssues []string) (string, error) {
	var b strings.Builder
	b.WriteString("MASTER RESUME:\n")
	b.WriteString(t.master.Text())
	b.WriteString("\n\nJOB LISTING:\n")
	fmt.Fprintf(&b, "Title: %s\nCompany: %s\nLocation: %s\n", job.Title, job.Company, job.Location)
	if job.Description != "" {
		fmt.Fprintf(&b, "\nDescription:\n%s\n", job.Description)
	}
	if job.Requirements != "" {
		fmt.Fprintf(&b, "\nRequirements:\n%s\n", job.Requirements)
	}
	if len(priorIssues) > 0 {
		b.WriteString("\nYour previous attempt contained unsupported claims. Fix these issues:\n")
		for _, issue := range priorIssues {
			fmt.Fprintf(&b, "- %s\n", issue)
		}
	}

	resp, err := t.client.Complete(ctx, &interfaces.CompletionRequest{
		Messages: []interfaces.Message{
			{Role: "system", Content: tailorSystemPrompt},
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		return "", err
	}
	return llm.StripFences(resp.Content), nil
}

// verify runs the fact-check pass and returns the unsupported claims found
func (t *Tailor) verify(ctx context.Context, tailored string) ([]string, error) {
	prompt := "MASTER RESUME:\n" + t.master.Text() + "\n\nTAILORED RESUME:\n" + tailored

	resp, err := t.client.Complete(ctx, &interfaces.CompletionRequest{
		JSONMode: true,
		Messages: []interfaces.Message{
			{Role: "system", Content: verifySystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return nil, err
	}

	var reply verifyReply
	if err := json.Unmarshal([]byte(llm.StripFences(resp.Content)), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse verification reply: %w", err)
	}
	if reply.Pass {
		return nil, nil
	}
	if len(reply.Issues) == 0 {
		// A failing verdict with no detail still blocks verification
		return []string{"verification failed without specific issues"}, nil
	}
	return reply.Issues, nil
}

// write saves the HTML document and renders the PDF alongside it
func (t *Tailor) write(ctx context.Context, job *models.Job, body string) (string, string, error) {
	dir := filepath.Join(t.outputDir, "resumes")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create resume directory: %w", err)
	}

	base := fmt.Sprintf("%s_%s_%s",
		sanitizeFilename(job.Company),
		sanitizeFilename(job.Title),
		models.ShortID(job.ID))
	htmlPath := filepath.Join(dir, base+".html")
	pdfPath := filepath.Join(dir, base+".pdf")

	document := fmt.Sprintf(documentTemplate, body)
	if err := os.WriteFile(htmlPath, []byte(document), 0644); err != nil {
		return "", "", fmt.Errorf("failed to write resume HTML: %w", err)
	}

	if err := t.renderer.RenderPDF(ctx, document, pdfPath); err != nil {
		return "", "", fmt.Errorf("failed to render resume PDF for %s: %w", models.ShortID(job.ID), err)
	}
	return htmlPath, pdfPath, nil
}

// sanitizeFilename keeps letters and digits, mapping runs of anything else to
// a single underscore
func sanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastUnderscore = false
		} else if !lastUnderscore {
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}
