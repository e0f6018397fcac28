package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/jobhunter/internal/common"
	"github.com/ternarybob/jobhunter/internal/config"
)

// Service runs the scrape stage: a bounded worker pool over the enabled
// sites, each site isolated so one failure never stops the others.
type Service struct {
	config     *common.ScraperConfig
	httpClient *http.Client
	archive    *Archive
	strategies map[config.Strategy]Strategy
	converter  *md.Converter
	schedule   []time.Duration
	logger     arbor.ILogger
}

// NewService creates the scraper engine
func NewService(cfg *common.ScraperConfig, archiveDir string, logger arbor.ILogger) *Service {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	return &Service{
		config:     cfg,
		httpClient: httpClient,
		archive:    NewArchive(archiveDir),
		strategies: map[config.Strategy]Strategy{
			config.StrategyAPI:     NewAPIStrategy(httpClient, cfg.UserAgent),
			config.StrategyHTML:    NewHTMLStrategy(httpClient, cfg.UserAgent),
			config.StrategyBrowser: NewBrowserStrategy(cfg.RequestTimeout + cfg.BrowserWait),
		},
		converter: md.NewConverter("", true, nil),
		schedule:  defaultRetrySchedule,
		logger:    logger,
	}
}

// ScrapeAll runs every site through the worker pool and returns one outcome
// per site, in no particular order. A site outcome with Err set means the
// site was quarantined after exhausting retries (or panicked); its partial
// rows are discarded.
func (s *Service) ScrapeAll(ctx context.Context, sites []*config.SiteConfig) []SiteOutcome {
	if len(sites) == 0 {
		return nil
	}

	workers := s.config.MaxWorkers
	if workers > len(sites) {
		workers = len(sites)
	}

	s.logger.Info().
		Int("sites", len(sites)).
		Int("workers", workers).
		Msg("Starting scrape")

	jobs := make(chan *config.SiteConfig)
	results := make(chan SiteOutcome, len(sites))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for site := range jobs {
				results <- s.scrapeSite(ctx, site)
			}
		}()
	}

	for _, site := range sites {
		jobs <- site
	}
	close(jobs)
	wg.Wait()
	close(results)

	outcomes := make([]SiteOutcome, 0, len(sites))
	for outcome := range results {
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// ScrapeSite scrapes a single site with panic isolation
func (s *Service) ScrapeSite(ctx context.Context, site *config.SiteConfig) SiteOutcome {
	return s.scrapeSite(ctx, site)
}

func (s *Service) scrapeSite(ctx context.Context, site *config.SiteConfig) (outcome SiteOutcome) {
	outcome.SiteID = site.SiteID

	// A panic in one site's strategy or selectors must not take down the run
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("site_id", site.SiteID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Site scrape panicked")
			outcome.Jobs = nil
			outcome.Err = fmt.Errorf("panic while scraping %s: %v", site.SiteID, r)
		}
	}()

	strategy, ok := s.strategies[site.Strategy]
	if !ok {
		outcome.Err = fmt.Errorf("site %s: unknown strategy %q", site.SiteID, site.Strategy)
		return outcome
	}

	limiter := rate.NewLimiter(rate.Every(s.config.RequestDelay), 1)

	listRules := site.ListRules()
	nextButton := listRules != nil && listRules.Pagination == config.PaginationNextButton

	var rows []Row
	pageURL := ""
	for page := 1; page <= site.MaxPages; page++ {
		pageRows, raw, err := s.scrapePage(ctx, strategy, site, limiter, page, pageURL)
		if err != nil {
			outcome.Jobs = nil
			outcome.Err = fmt.Errorf("site %s page %d: %w", site.SiteID, page, err)
			return outcome
		}

		if len(pageRows) == 0 {
			s.logger.Debug().
				Str("site_id", site.SiteID).
				Int("page", page).
				Msg("Empty page, stopping pagination")
			break
		}
		rows = append(rows, pageRows...)

		if nextButton {
			current := pageURL
			if current == "" {
				current = substitutePage(listRules.URLTemplate, page)
			}
			pageURL = nextPageURL(listRules, raw, current)
			if pageURL == "" {
				s.logger.Debug().
					Str("site_id", site.SiteID).
					Int("page", page).
					Msg("No next link, stopping pagination")
				break
			}
		}
	}

	if site.DetailPage != nil && site.DetailPage.Enabled {
		s.enrichFromDetailPages(ctx, site, limiter, rows)
	}

	outcome.Jobs = dropIncomplete(rows, site.SiteID, s.logger)

	s.logger.Info().
		Str("site_id", site.SiteID).
		Int("listings", len(outcome.Jobs)).
		Msg("Site scraped")
	return outcome
}

// scrapePage fetches, archives and parses one page with the retry schedule.
// The raw response is archived before parsing so extraction failures never
// lose the bytes. The raw text is returned for next-button link extraction.
func (s *Service) scrapePage(ctx context.Context, strategy Strategy, site *config.SiteConfig, limiter *rate.Limiter, page int, pageURL string) ([]Row, string, error) {
	var rows []Row
	var raw string

	err := withRetries(ctx, s.logger, s.schedule, func() error {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}

		fetched, err := strategy.Fetch(ctx, site, page, pageURL)
		if err != nil {
			return err
		}
		raw = fetched

		if _, err := s.archive.Save(site.SiteID, page, raw); err != nil {
			s.logger.Warn().
				Str("site_id", site.SiteID).
				Int("page", page).
				Err(err).
				Msg("Failed to archive raw response")
		}

		rows, err = strategy.Parse(site, raw, page)
		return err
	})
	return rows, raw, err
}

// enrichFromDetailPages fetches each listing's detail page and fills in the
// description and requirements fields as markdown. Detail failures are
// logged and the listing kept with whatever the list page provided.
func (s *Service) enrichFromDetailPages(ctx context.Context, site *config.SiteConfig, limiter *rate.Limiter, rows []Row) {
	for _, row := range rows {
		url := row["url"]
		if url == "" {
			continue
		}
		if err := s.fetchDetail(ctx, site, limiter, row, url); err != nil {
			s.logger.Warn().
				Str("site_id", site.SiteID).
				Str("url", url).
				Err(err).
				Msg("Detail page fetch failed, keeping listing without detail")
		}
	}
}

func (s *Service) fetchDetail(ctx context.Context, site *config.SiteConfig, limiter *rate.Limiter, row Row, url string) error {
	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", s.config.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("failed to parse detail page: %w", err)
	}

	rules := site.DetailPage
	if rules.DescriptionSelector != "" {
		if text := s.selectionToMarkdown(doc, rules.DescriptionSelector); text != "" {
			row["description"] = text
		}
	}
	if rules.RequirementsSelector != "" {
		if text := s.selectionToMarkdown(doc, rules.RequirementsSelector); text != "" {
			row["requirements"] = text
		}
	}
	return nil
}

// selectionToMarkdown converts the selected element's HTML to markdown,
// falling back to plain text when conversion fails
func (s *Service) selectionToMarkdown(doc *goquery.Document, selector string) string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return ""
	}

	html, err := sel.Html()
	if err != nil {
		return strings.TrimSpace(sel.Text())
	}

	markdown, err := s.converter.ConvertString(html)
	if err != nil {
		return strings.TrimSpace(sel.Text())
	}
	return strings.TrimSpace(markdown)
}

// dropIncomplete removes rows missing any of the three identity fields
func dropIncomplete(rows []Row, siteID string, logger arbor.ILogger) []Row {
	kept := rows[:0]
	dropped := 0
	for _, row := range rows {
		if row["title"] == "" || row["company"] == "" || row["location"] == "" {
			dropped++
			continue
		}
		kept = append(kept, row)
	}
	if dropped > 0 {
		logger.Debug().
			Str("site_id", siteID).
			Int("dropped", dropped).
			Msg("Dropped listings missing identity fields")
	}
	return kept
}
