package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/gocolly/colly/v2"
)

// SearchClient queries the marketplace search API for product identifiers.
// Calls are synchronous; the underlying transport is shared by all calls.
type SearchClient struct {
	cfg       *config.Config
	collector *colly.Collector
	Metrics   *Metrics
}

type searchEnvelope struct {
	Data struct {
		Products []struct {
			ID json.RawMessage `json:"id"`
		} `json:"products"`
	} `json:"data"`
}

// NewSearchClient builds a search client configured from cfg.
func NewSearchClient(cfg *config.Config, metrics *Metrics) (*SearchClient, error) {
	parsed, err := url.Parse(cfg.SearchURL)
	if err != nil {
		return nil, fmt.Errorf("parse search url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("search url must include a host")
	}

	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.UserAgent(cfg.UserAgent),
		colly.ParseHTTPErrorResponse(),
	)
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(cfg.SearchTimeout)
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.SearchTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.SearchTimeout,
	})

	return &SearchClient{
		cfg:       cfg,
		collector: collector,
		Metrics:   metrics,
	}, nil
}

// SearchURL returns the request URL for one query/page/variant combination.
func (c *SearchClient) SearchURL(query string, page int, variant string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("search query cannot be empty")
	}
	if page < 1 {
		return "", fmt.Errorf("search page must be >= 1, got %d", page)
	}

	u, err := url.Parse(c.cfg.SearchURL)
	if err != nil {
		return "", fmt.Errorf("parse search url: %w", err)
	}
	q := u.Query()
	for k, v := range c.cfg.SearchParams {
		q.Set(k, v)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("query", query)
	if variant != "" && c.cfg.VariantParam != "" {
		q.Set(c.cfg.VariantParam, variant)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FetchProductIDs issues a single search request and returns the product ids
// found at data.products[].id. A 200 JSON response without that path yields an
// empty slice and no error. Failures are returned classified and are never retried.
func (c *SearchClient) FetchProductIDs(ctx context.Context, query string, page int, variant string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := c.SearchURL(query, page, variant)
	if err != nil {
		return nil, err
	}

	col := c.collector.Clone()

	var (
		ids        []string
		decodeErr  error
		statusCode int
	)
	col.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode
		contentType := ""
		if r.Headers != nil {
			contentType = r.Headers.Get("Content-Type")
		}
		ids, decodeErr = decodeSearchResponse(r.StatusCode, contentType, r.Body)
	})
	col.OnError(func(r *colly.Response, _ error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	start := time.Now()
	visitErr := col.Visit(target)
	c.Metrics.ObserveSearch(time.Since(start))

	if visitErr != nil {
		decodeErr = classifyError(visitErr, statusCode)
	}
	if decodeErr != nil {
		c.Metrics.IncSearch(variant, "error")
		c.Metrics.IncError(errorTypeLabel(decodeErr))
		slog.Debug("search request failed",
			slog.String("url", target),
			slog.String("category", errorTypeLabel(decodeErr)),
			slog.Any("error", decodeErr),
		)
		return nil, decodeErr
	}

	outcome := "empty"
	if len(ids) > 0 {
		outcome = "ok"
	}
	c.Metrics.IncSearch(variant, outcome)
	return ids, nil
}

func decodeSearchResponse(statusCode int, contentType string, body []byte) ([]string, error) {
	if statusCode != http.StatusOK {
		return nil, classifyError(nil, statusCode)
	}

	trimmed := bytes.TrimSpace(body)
	isJSON := strings.Contains(contentType, "application/json")
	if !isJSON && !(strings.Contains(contentType, "text/plain") && bytes.HasPrefix(trimmed, []byte("{"))) {
		return nil, ErrContentType{ContentType: contentType}
	}

	var envelope searchEnvelope
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, ErrDecode{Snippet: snippet(trimmed, 100), Err: err}
	}

	ids := make([]string, 0, len(envelope.Data.Products))
	for _, product := range envelope.Data.Products {
		if id := productID(product.ID); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// productID accepts numeric and string ids.
func productID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

func snippet(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
