package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Selectors are the DOM selectors used on the product detail page.
type Selectors struct {
	Title       string
	DetailsBtn  string
	ParamLabels string
	ParamValues string
	Price       string
}

// Config holds scraper configuration.
type Config struct {
	InputFile         string
	OutputFile        string
	OutputFormat      string // json or dual
	SearchURL         string
	SearchParams      map[string]string
	VariantParam      string
	Variants          []string
	DetailURLTemplate string
	Selectors         Selectors
	Quota             int
	PageLimit         int
	SkipCategories    int
	DedupeMaxSize     int
	SearchTimeout     time.Duration
	NavigateTimeout   time.Duration
	WaitTimeout       time.Duration
	UserAgent         string
	Headless          bool
	Verbose           bool
	Progress          bool
	MetricsAddr       string
}

// DefaultConfig returns the defaults for the marketplace target.
func DefaultConfig() *Config {
	return &Config{
		InputFile:    "to_parse.json",
		OutputFile:   "ods_from_wb2.json",
		OutputFormat: "json",
		SearchURL:    "https://search.wb.ru/exactmatch/ru/common/v9/search",
		SearchParams: map[string]string{
			"ab_testing":         "false",
			"appType":            "1",
			"curr":               "rub",
			"dest":               "123586167",
			"lang":               "ru",
			"resultset":          "catalog",
			"sort":               "popular",
			"spp":                "30",
			"suppressSpellcheck": "false",
		},
		VariantParam:      "shard",
		Variants:          []string{"stationery3", "appliances2", ""},
		DetailURLTemplate: "https://www.wildberries.ru/catalog/%s/detail.aspx",
		Selectors: Selectors{
			Title:       ".product-page__title",
			DetailsBtn:  ".product-page__btn-detail",
			ParamLabels: ".product-params__cell-decor",
			ParamValues: ".product-params__cell",
			Price:       ".price-block__final-price",
		},
		Quota:           100,
		PageLimit:       100,
		SkipCategories:  16,
		DedupeMaxSize:   10000,
		SearchTimeout:   5 * time.Second,
		NavigateTimeout: 60 * time.Second,
		WaitTimeout:     30 * time.Second,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/90.0.4430.212 Safari/537.36",
		Headless:        true,
		Verbose:         false,
		Progress:        true,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.SearchURL == "" {
		return fmt.Errorf("search URL cannot be empty")
	}
	parsedURL, err := url.Parse(c.SearchURL)
	if err != nil {
		return fmt.Errorf("invalid search URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("search URL must include a host")
	}

	if c.DetailURLTemplate == "" {
		return fmt.Errorf("detail URL template cannot be empty")
	}
	if strings.Count(c.DetailURLTemplate, "%s") != 1 {
		return fmt.Errorf("detail URL template must contain exactly one %%s")
	}

	if len(c.Variants) == 0 {
		return fmt.Errorf("at least one search variant is required")
	}
	if c.Quota <= 0 {
		return fmt.Errorf("quota must be positive")
	}
	if c.PageLimit < 2 {
		return fmt.Errorf("page limit must be at least 2")
	}
	if c.SkipCategories < 0 {
		return fmt.Errorf("skip categories cannot be negative")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.SearchTimeout <= 0 {
		return fmt.Errorf("search timeout must be positive")
	}
	if c.NavigateTimeout <= 0 {
		return fmt.Errorf("navigate timeout must be positive")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive")
	}

	s := c.Selectors
	if s.Title == "" || s.DetailsBtn == "" || s.ParamLabels == "" || s.ParamValues == "" || s.Price == "" {
		return fmt.Errorf("all detail page selectors must be set")
	}

	if c.InputFile == "" {
		return fmt.Errorf("input file cannot be empty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be json or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
