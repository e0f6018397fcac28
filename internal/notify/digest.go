package notify

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/interfaces"
)

// Mailer sends the end-of-run digest over SMTP. Best-effort: the pipeline
// logs and continues on any transport failure.
type Mailer struct {
	config *common.SMTPConfig
	logger arbor.ILogger
}

// NewMailer creates the digest mailer
func NewMailer(cfg *common.SMTPConfig, logger arbor.ILogger) *Mailer {
	return &Mailer{config: cfg, logger: logger}
}

// Enabled reports whether SMTP settings are configured
func (m *Mailer) Enabled() bool {
	return m.config.Host != "" && m.config.From != "" && m.config.To != ""
}

// SendDigest mails the queued digest-band matches as one HTML message
func (m *Mailer) SendDigest(ctx context.Context, matches []*interfaces.MatchMessage) error {
	if !m.Enabled() {
		m.logger.Debug().Msg("SMTP not configured, skipping digest")
		return nil
	}
	if len(matches) == 0 {
		return nil
	}

	subject := fmt.Sprintf("Job digest: %d matches — %s", len(matches), time.Now().Format("2006-01-02"))
	message := m.buildMessage(subject, renderDigestHTML(matches))

	addr := fmt.Sprintf("%s:%d", m.config.Host, m.config.Port)
	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{m.config.To}, message); err != nil {
		return fmt.Errorf("failed to send digest mail: %w", err)
	}

	m.logger.Info().Int("matches", len(matches)).Str("to", m.config.To).Msg("Digest mail sent")
	return nil
}

// buildMessage assembles the RFC 822 message with MIME headers
func (m *Mailer) buildMessage(subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.config.From)
	fmt.Fprintf(&b, "To: %s\r\n", m.config.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}

// renderDigestHTML lays out one table row per match, highest score first
func renderDigestHTML(matches []*interfaces.MatchMessage) string {
	matches = append([]*interfaces.MatchMessage(nil), matches...)
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score.Score > matches[j].Score.Score
	})

	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>%d job matches</h2>", len(matches))
	b.WriteString("<table border=\"0\" cellpadding=\"6\">")
	b.WriteString("<tr><th align=\"left\">Score</th><th align=\"left\">Role</th><th align=\"left\">Company</th><th align=\"left\">Location</th></tr>")

	for _, match := range matches {
		title := html.EscapeString(match.Job.Title)
		if match.Job.URL != "" {
			title = fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(match.Job.URL), title)
		}
		fmt.Fprintf(&b, "<tr><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			match.Score.Score, title,
			html.EscapeString(match.Job.Company),
			html.EscapeString(match.Job.Location))
		if match.Score.Reasoning != "" {
			fmt.Fprintf(&b, "<tr><td></td><td colspan=\"3\"><small>%s</small></td></tr>",
				html.EscapeString(match.Score.Reasoning))
		}
	}

	b.WriteString("</table></body></html>")
	return b.String()
}
