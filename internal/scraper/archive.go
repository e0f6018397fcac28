package scraper

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Archive writes raw scrape responses to a date-partitioned directory tree:
// <root>/YYYY-MM-DD/<site_id>_page<N>.html
type Archive struct {
	root string
}

// NewArchive creates an archive rooted at dir
func NewArchive(dir string) *Archive {
	return &Archive{root: dir}
}

// Save persists one raw page response. Called before parsing so the bytes
// survive any extraction failure.
func (a *Archive) Save(siteID string, page int, raw string) (string, error) {
	day := time.Now().UTC().Format("2006-01-02")
	dir := filepath.Join(a.root, day)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_page%d.html", siteID, page))
	if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
		return "", fmt.Errorf("failed to write archive file: %w", err)
	}
	return path, nil
}
