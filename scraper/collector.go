package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/aluiziolira/go-scrape-wb/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ProductSearcher returns the product ids for one search page and variant.
type ProductSearcher interface {
	FetchProductIDs(ctx context.Context, query string, page int, variant string) ([]string, error)
}

// ProductParser turns a product id into a record using page.
type ProductParser interface {
	ParseProduct(ctx context.Context, page Page, productID, categoryName string) (*models.Product, error)
}

// CategoryCollector gathers up to a category's remaining quota of products.
// It is strictly sequential and drives a single Page.
type CategoryCollector struct {
	cfg       *config.Config
	search    ProductSearcher
	extractor ProductParser
	page      Page
	Metrics   *Metrics
}

// NewCategoryCollector wires a collector to its search client, extractor and page.
func NewCategoryCollector(cfg *config.Config, search ProductSearcher, extractor ProductParser, page Page, metrics *Metrics) *CategoryCollector {
	return &CategoryCollector{
		cfg:       cfg,
		search:    search,
		extractor: extractor,
		page:      page,
		Metrics:   metrics,
	}
}

// CollectCategory searches for product ids until the remaining quota is met
// (or the page limit is reached) and extracts at most that many products.
// Failed searches and extractions are logged and skipped. Only context
// cancellation is returned as an error.
func (c *CategoryCollector) CollectCategory(ctx context.Context, cat models.Category) ([]*models.Product, models.CategoryStats, error) {
	stats := models.CategoryStats{
		Category: cat.Name,
		Errors:   make(map[string]int),
	}

	remaining := cat.Remaining(c.cfg.Quota)
	if remaining <= 0 {
		slog.Debug("category already at quota", slog.String("category", cat.Name), slog.Int("count", cat.Count))
		return nil, stats, nil
	}

	ids, err := c.collectIDs(ctx, cat.Name, remaining, &stats)
	if err != nil {
		return nil, stats, err
	}

	n := min(len(ids), remaining)
	products := make([]*models.Product, 0, n)
	for h := 0; h < n; h++ {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		stats.ExtractionAttempts++
		product, err := c.extractor.ParseProduct(ctx, c.page, ids[h], cat.Name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, stats, ctxErr
			}
			stats.ExtractionFailures++
			stats.Errors[errorTypeLabel(err)]++
			c.Metrics.IncExtractionFailure()
			c.Metrics.IncError(errorTypeLabel(err))
			slog.Warn("error parsing product",
				slog.String("product_id", ids[h]),
				slog.String("category", cat.Name),
				slog.Any("error", err),
			)
			continue
		}
		if product == nil {
			continue
		}
		c.Metrics.IncProducts()
		products = append(products, product)
	}

	stats.Products = len(products)
	return products, stats, nil
}

// collectIDs walks search pages in order. On each page the variants are tried
// in configured order and the first non-empty result wins. Ids are
// deduplicated in first-seen order.
func (c *CategoryCollector) collectIDs(ctx context.Context, query string, remaining int, stats *models.CategoryStats) ([]string, error) {
	seen, err := lru.New[string, struct{}](c.cfg.DedupeMaxSize)
	if err != nil {
		return nil, fmt.Errorf("create id dedupe cache: %w", err)
	}

	var ids []string
	for page := 1; page < c.cfg.PageLimit; page++ {
		stats.Pages++
		for _, variant := range c.cfg.Variants {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			stats.SearchRequests++
			found, err := c.search.FetchProductIDs(ctx, query, page, variant)
			if err != nil {
				stats.SearchFailures++
				stats.Errors[errorTypeLabel(err)]++
				slog.Warn("error fetching products",
					slog.String("category", query),
					slog.Int("page", page),
					slog.String("variant", variant),
					slog.Any("error", err),
				)
				continue
			}
			if len(found) == 0 {
				continue
			}

			for _, id := range found {
				if seen.Contains(id) {
					stats.DuplicateIDs++
					continue
				}
				seen.Add(id, struct{}{})
				ids = append(ids, id)
			}
			break
		}

		if len(ids) >= remaining {
			break
		}
	}

	stats.IDsCollected = len(ids)
	slog.Debug("collected product ids",
		slog.String("category", query),
		slog.Int("ids", len(ids)),
		slog.Int("pages", stats.Pages),
		slog.Int("duplicates", stats.DuplicateIDs),
	)
	return ids, nil
}
