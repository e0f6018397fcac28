package scraper

import (
	"context"

	"github.com/ternarybob/jobhunter/internal/config"
)

// Row is one raw extracted listing before normalization. Keys follow the
// field names in the site config (title, company, location, url, salary,
// posted_date, description, requirements).
type Row map[string]string

// Strategy fetches and parses one listings page. Fetch and Parse are split so
// the engine can archive the raw response before any parsing happens: a parse
// failure must never lose the raw bytes. A non-empty pageURL overrides the
// site's URL template; the engine sets it when following next-button links.
type Strategy interface {
	Fetch(ctx context.Context, site *config.SiteConfig, page int, pageURL string) (string, error)
	Parse(site *config.SiteConfig, raw string, page int) ([]Row, error)
}

// SiteOutcome is the result of scraping one site
type SiteOutcome struct {
	SiteID string
	Jobs   []Row
	Err    error
}
