package resume

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
)

// Renderer produces the resume PDF: headless Chrome print when a browser is
// available, a plain-text fpdf rendering otherwise. Output is validated with
// pdfcpu so a corrupt file is never attached to a notification.
type Renderer struct {
	timeout time.Duration
	logger  arbor.ILogger
}

// NewRenderer creates the PDF renderer
func NewRenderer(timeout time.Duration, logger arbor.ILogger) *Renderer {
	return &Renderer{timeout: timeout, logger: logger}
}

// RenderPDF writes the HTML document to outputPath as a PDF
func (r *Renderer) RenderPDF(ctx context.Context, html, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := r.printWithChrome(ctx, html, outputPath); err != nil {
		r.logger.Warn().Err(err).Msg("Chrome PDF print failed, using text fallback renderer")
		if err := r.renderWithFPDF(html, outputPath); err != nil {
			return err
		}
	}

	if err := api.ValidateFile(outputPath, nil); err != nil {
		return fmt.Errorf("generated PDF failed validation: %w", err)
	}
	return nil
}

// printWithChrome renders the HTML in headless Chrome and prints it to PDF
func (r *Renderer) printWithChrome(ctx context.Context, html, outputPath string) error {
	tmp, err := os.CreateTemp("", "resume-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(html); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	tmp.Close()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, r.timeout)
	defer cancelTimeout()

	var pdf []byte
	err = chromedp.Run(timeoutCtx,
		chromedp.Navigate("file://"+tmp.Name()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).
				WithPaperHeight(11.69).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("chrome print failed: %w", err)
	}

	if err := os.WriteFile(outputPath, pdf, 0644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// renderWithFPDF is the no-browser fallback: the HTML is stripped to text and
// laid out as a simple single-column document.
func (r *Renderer) renderWithFPDF(html, outputPath string) error {
	text := htmlTagPattern.ReplaceAllString(html, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&nbsp;", " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(15, 15, 15)
	doc.AddPage()
	doc.SetFont("Helvetica", "", 10)
	for _, line := range lines {
		doc.MultiCell(180, 5, line, "", "L", false)
	}

	if err := doc.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("fallback PDF render failed: %w", err)
	}
	return nil
}
