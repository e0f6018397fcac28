package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/jobhunter/internal/config"
)

// BrowserStrategy drives a headless Chrome instance for sites that render
// their listings with JavaScript. Once the page has settled it hands the
// rendered HTML to the same selector-based extraction the html strategy uses.
type BrowserStrategy struct {
	timeout time.Duration
}

// NewBrowserStrategy creates the browser strategy implementation
func NewBrowserStrategy(timeout time.Duration) *BrowserStrategy {
	return &BrowserStrategy{timeout: timeout}
}

// Fetch renders the page in headless Chrome and returns the settled HTML
func (s *BrowserStrategy) Fetch(ctx context.Context, site *config.SiteConfig, page int, pageURL string) (string, error) {
	rules := site.Browser
	target := pageURL
	if target == "" {
		target = substitutePage(rules.URLTemplate, page)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, s.timeout)
	defer cancelTimeout()

	actions := []chromedp.Action{
		chromedp.Navigate(target),
	}
	if rules.WaitSelector != "" {
		actions = append(actions, chromedp.WaitVisible(rules.WaitSelector, chromedp.ByQuery))
	}
	if rules.Scroll {
		// Infinite-scroll listings load more cards as the viewport reaches
		// the bottom; a few passes with settle time is enough for one page.
		for i := 0; i < 3; i++ {
			actions = append(actions,
				chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil),
				chromedp.Sleep(time.Second),
			)
		}
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(timeoutCtx, actions...); err != nil {
		return "", fmt.Errorf("browser render failed for %s: %w", target, err)
	}
	return html, nil
}

// Parse applies the card and field selectors to the rendered HTML
func (s *BrowserStrategy) Parse(site *config.SiteConfig, raw string, page int) ([]Row, error) {
	return parseHTMLRows(&site.Browser.HTMLRules, raw)
}
