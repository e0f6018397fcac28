package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/jobhunter/internal/config"
)

// HTMLStrategy fetches static list pages and extracts listing cards with
// goquery selectors per the site's declarative field rules.
type HTMLStrategy struct {
	httpClient *http.Client
	userAgent  string
}

// NewHTMLStrategy creates the html strategy implementation
func NewHTMLStrategy(httpClient *http.Client, userAgent string) *HTMLStrategy {
	return &HTMLStrategy{httpClient: httpClient, userAgent: userAgent}
}

// Fetch retrieves the list page for one page number, or the given URL when
// the engine is following next-button links
func (s *HTMLStrategy) Fetch(ctx context.Context, site *config.SiteConfig, page int, pageURL string) (string, error) {
	target := pageURL
	if target == "" {
		target = substitutePage(site.HTML.URLTemplate, page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// Parse applies the card and field selectors to the page HTML
func (s *HTMLStrategy) Parse(site *config.SiteConfig, raw string, page int) ([]Row, error) {
	return parseHTMLRows(site.HTML, raw)
}

// parseHTMLRows is shared by the html and browser strategies
func parseHTMLRows(rules *config.HTMLRules, raw string) ([]Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var rows []Row
	doc.Find(rules.CardSelector).Each(func(_ int, card *goquery.Selection) {
		row := Row{}
		for field, rule := range rules.Fields {
			row[field] = extractField(card, rule)
		}
		rows = append(rows, row)
	})
	return rows, nil
}

// nextPageURL extracts the next-page link for next_button pagination. The
// href is resolved against the URL of the page it appeared on; an absent or
// empty link ends the pagination.
func nextPageURL(rules *config.HTMLRules, raw, currentURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return ""
	}

	href, ok := doc.Find(rules.NextSelector).First().Attr("href")
	if !ok {
		return ""
	}
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}

	base, err := url.Parse(currentURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractField pulls one value from a card per its field rule
func extractField(card *goquery.Selection, rule config.FieldRule) string {
	sel := card
	if rule.Selector != "" {
		sel = card.Find(rule.Selector).First()
	}
	if sel.Length() == 0 {
		return ""
	}

	var value string
	switch rule.Attribute {
	case "", "text":
		value = sel.Text()
	default:
		value, _ = sel.Attr(rule.Attribute)
	}

	value = strings.TrimSpace(value)
	if value != "" && rule.Prefix != "" && !strings.HasPrefix(value, "http") {
		value = rule.Prefix + value
	}
	return value
}
