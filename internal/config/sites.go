package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

// Strategy selects how a site's listings are fetched and parsed
type Strategy string

const (
	StrategyAPI     Strategy = "api"
	StrategyHTML    Strategy = "html"
	StrategyBrowser Strategy = "browser"
)

// Pagination modes for the html selector schema
const (
	PaginationURLParam   = "url_param"
	PaginationNextButton = "next_button"
)

// SiteConfig is one declarative job-board definition. Exactly one of the
// strategy sections (api/html/browser) must be present, matching Strategy.
type SiteConfig struct {
	SiteID   string   `toml:"site_id" yaml:"site_id" validate:"required"`
	Name     string   `toml:"name" yaml:"name"`
	URL      string   `toml:"url" yaml:"url"`
	Country  string   `toml:"country" yaml:"country"`
	Enabled  bool     `toml:"enabled" yaml:"enabled"`
	Strategy Strategy `toml:"strategy" yaml:"strategy" validate:"required,oneof=api html browser"`
	MaxPages int      `toml:"max_pages" yaml:"max_pages" validate:"min=1"`

	API     *APIRules     `toml:"api" yaml:"api"`
	HTML    *HTMLRules    `toml:"html" yaml:"html"`
	Browser *BrowserRules `toml:"browser" yaml:"browser"`

	DetailPage *DetailPageRules `toml:"detail_page" yaml:"detail_page"`
	Keywords   *SiteKeywords    `toml:"keywords" yaml:"keywords"`
}

// APIRules is the recipe for the api strategy. The URL template and params
// support {page} substitution; ListPath and field paths are gjson dot-paths.
type APIRules struct {
	URLTemplate string            `toml:"url_template" yaml:"url_template" validate:"required"`
	Method      string            `toml:"method" yaml:"method"`
	Params      map[string]string `toml:"params" yaml:"params"`
	Headers     map[string]string `toml:"headers" yaml:"headers"`
	ListPath    string            `toml:"list_path" yaml:"list_path" validate:"required"`
	Fields      map[string]string `toml:"fields" yaml:"fields" validate:"required"`
}

// FieldRule extracts one field from an HTML card
type FieldRule struct {
	Selector  string `toml:"selector" yaml:"selector"`
	Attribute string `toml:"attribute" yaml:"attribute"` // "text" (default), "href", "src", ...
	Prefix    string `toml:"prefix" yaml:"prefix"`       // Prepended to relative URLs
	Optional  bool   `toml:"optional" yaml:"optional"`
}

// HTMLRules is the selector schema for the html strategy. Pagination is
// "url_param" (default, {page} substituted into the URL template) or
// "next_button" (follow NextSelector's href until the link is absent).
type HTMLRules struct {
	URLTemplate  string               `toml:"url_template" yaml:"url_template" validate:"required"`
	CardSelector string               `toml:"card_selector" yaml:"card_selector" validate:"required"`
	Fields       map[string]FieldRule `toml:"fields" yaml:"fields" validate:"required"`
	Pagination   string               `toml:"pagination" yaml:"pagination"`
	NextSelector string               `toml:"next_selector" yaml:"next_selector"` // Next-page link, next_button mode only
}

// BrowserRules is the html selector schema preceded by headless navigation
type BrowserRules struct {
	HTMLRules    `yaml:",inline"`
	WaitSelector string `toml:"wait_selector" yaml:"wait_selector"`
	Scroll       bool   `toml:"scroll" yaml:"scroll"` // Scroll to trigger lazy loading
}

// DetailPageRules fetches per-listing detail pages for richer text
type DetailPageRules struct {
	Enabled              bool   `toml:"enabled" yaml:"enabled"`
	DescriptionSelector  string `toml:"description_selector" yaml:"description_selector"`
	RequirementsSelector string `toml:"requirements_selector" yaml:"requirements_selector"`
}

// SiteKeywords optionally augments or replaces the global keyword lists
type SiteKeywords struct {
	Override         bool     `toml:"override" yaml:"override"`
	MustHaveAny      []string `toml:"must_have_any" yaml:"must_have_any"`
	MustNotHave      []string `toml:"must_not_have" yaml:"must_not_have"`
	TitleMustHaveAny []string `toml:"title_must_have_any" yaml:"title_must_have_any"`
}

// Validate checks the config and that the strategy payload is present
func (c *SiteConfig) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("site %s: invalid config: %w", c.SiteID, err)
	}
	switch c.Strategy {
	case StrategyAPI:
		if c.API == nil {
			return fmt.Errorf("site %s: strategy is %q but no [api] section present", c.SiteID, c.Strategy)
		}
	case StrategyHTML:
		if c.HTML == nil {
			return fmt.Errorf("site %s: strategy is %q but no [html] section present", c.SiteID, c.Strategy)
		}
	case StrategyBrowser:
		if c.Browser == nil {
			return fmt.Errorf("site %s: strategy is %q but no [browser] section present", c.SiteID, c.Strategy)
		}
	}

	if rules := c.ListRules(); rules != nil {
		switch rules.Pagination {
		case "", PaginationURLParam:
		case PaginationNextButton:
			if rules.NextSelector == "" {
				return fmt.Errorf("site %s: pagination %q requires next_selector", c.SiteID, PaginationNextButton)
			}
		default:
			return fmt.Errorf("site %s: unknown pagination mode %q (want %q or %q)",
				c.SiteID, rules.Pagination, PaginationURLParam, PaginationNextButton)
		}
	}
	return nil
}

// ListRules returns the html selector schema shared by the html and browser
// strategies, nil for api sites
func (c *SiteConfig) ListRules() *HTMLRules {
	switch c.Strategy {
	case StrategyHTML:
		return c.HTML
	case StrategyBrowser:
		if c.Browser == nil {
			return nil
		}
		return &c.Browser.HTMLRules
	}
	return nil
}

// LoadSiteConfigs reads all site config files from dir. Files prefixed with
// "_" are templates and skipped; sites with enabled=false are skipped with a
// debug log. Both TOML and YAML files are accepted.
func LoadSiteConfigs(dir string, logger arbor.ILogger) ([]*SiteConfig, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read site configs directory %s: %w", dir, err)
	}

	var sites []*SiteConfig
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "_") {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".toml" && ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		site, err := loadSiteConfig(path, ext)
		if err != nil {
			return nil, err
		}

		if !site.Enabled {
			logger.Debug().Str("site_id", site.SiteID).Msg("Site disabled, skipping")
			continue
		}

		if err := site.Validate(); err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}

	logger.Info().Int("count", len(sites)).Str("dir", dir).Msg("Loaded site configs")
	return sites, nil
}

func loadSiteConfig(path, ext string) (*SiteConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read site config %s: %w", path, err)
	}

	site := &SiteConfig{Enabled: true, MaxPages: 1}
	switch ext {
	case ".toml":
		if err := toml.Unmarshal(data, site); err != nil {
			return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, site); err != nil {
			return nil, fmt.Errorf("failed to parse site config %s: %w", path, err)
		}
	}
	return site, nil
}
