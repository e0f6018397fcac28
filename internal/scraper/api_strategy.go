package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/ternarybob/jobhunter/internal/config"
)

// APIStrategy executes the declarative JSON-API recipe for a site: URL
// template with {page} substitution, request params/headers, a gjson path to
// the listings array and per-field dot-paths into each listing object.
type APIStrategy struct {
	httpClient *http.Client
	userAgent  string
}

// NewAPIStrategy creates the api strategy implementation
func NewAPIStrategy(httpClient *http.Client, userAgent string) *APIStrategy {
	return &APIStrategy{httpClient: httpClient, userAgent: userAgent}
}

// Fetch performs the configured request for one page and returns the body.
// The api strategy always paginates by {page} substitution.
func (s *APIStrategy) Fetch(ctx context.Context, site *config.SiteConfig, page int, _ string) (string, error) {
	rules := site.API
	target := substitutePage(rules.URLTemplate, page)

	if len(rules.Params) > 0 {
		values := url.Values{}
		for k, v := range rules.Params {
			values.Set(k, substitutePage(v, page))
		}
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + values.Encode()
	}

	method := rules.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "application/json")
	for k, v := range rules.Headers {
		req.Header.Set(k, v)
	}

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

// Parse extracts rows from the JSON body using the configured paths
func (s *APIStrategy) Parse(site *config.SiteConfig, raw string, page int) ([]Row, error) {
	rules := site.API

	if !gjson.Valid(raw) {
		return nil, fmt.Errorf("response is not valid JSON")
	}

	list := gjson.Get(raw, rules.ListPath)
	if !list.Exists() {
		return nil, fmt.Errorf("list path %q not found in response", rules.ListPath)
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("list path %q is not an array", rules.ListPath)
	}

	var rows []Row
	list.ForEach(func(_, listing gjson.Result) bool {
		row := Row{}
		for field, path := range rules.Fields {
			row[field] = strings.TrimSpace(listing.Get(path).String())
		}
		rows = append(rows, row)
		return true
	})
	return rows, nil
}

func substitutePage(template string, page int) string {
	return strings.ReplaceAll(template, "{page}", strconv.Itoa(page))
}
