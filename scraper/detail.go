package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/aluiziolira/go-scrape-wb/models"
	"github.com/aluiziolira/go-scrape-wb/parser"
)

// Page is a handle to a single browser tab. A Page is not safe for
// concurrent use: only one extraction may be in flight against it at a time.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string) error
	Click(ctx context.Context, selector string) error
	// Text returns the rendered text of the first node matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// TextAll returns the text content of every node matching selector.
	TextAll(ctx context.Context, selector string) ([]string, error)
}

// Extractor scrapes product detail pages.
type Extractor struct {
	cfg     *config.Config
	Metrics *Metrics
}

// NewExtractor builds an extractor using cfg's selectors and timeouts.
func NewExtractor(cfg *config.Config, metrics *Metrics) *Extractor {
	return &Extractor{cfg: cfg, Metrics: metrics}
}

// DetailURL returns the detail page URL for a product id.
func (e *Extractor) DetailURL(productID string) string {
	return fmt.Sprintf(e.cfg.DetailURLTemplate, productID)
}

// ParseProduct drives page to the product's detail view and extracts a
// record. Any failed step aborts the extraction and returns an ErrExtraction;
// partial records are never returned.
func (e *Extractor) ParseProduct(ctx context.Context, page Page, productID, categoryName string) (*models.Product, error) {
	start := time.Now()
	defer func() {
		e.Metrics.ObserveExtraction(time.Since(start))
	}()

	sel := e.cfg.Selectors
	step := func(label string, timeout time.Duration, fn func(context.Context) error) error {
		stepCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := fn(stepCtx); err != nil {
			return ErrExtraction{ProductID: productID, Step: label, Err: err}
		}
		return nil
	}

	var (
		name   string
		labels []string
		values []string
		price  string
	)
	steps := []struct {
		name    string
		timeout time.Duration
		fn      func(context.Context) error
	}{
		{"navigate", e.cfg.NavigateTimeout, func(ctx context.Context) error {
			return page.Navigate(ctx, e.DetailURL(productID))
		}},
		{"wait title", e.cfg.WaitTimeout, func(ctx context.Context) error {
			return page.WaitVisible(ctx, sel.Title)
		}},
		{"read title", e.cfg.WaitTimeout, func(ctx context.Context) (err error) {
			name, err = page.Text(ctx, sel.Title)
			return err
		}},
		{"open details", e.cfg.WaitTimeout, func(ctx context.Context) error {
			return page.Click(ctx, sel.DetailsBtn)
		}},
		{"wait params", e.cfg.WaitTimeout, func(ctx context.Context) error {
			return page.WaitVisible(ctx, sel.ParamLabels)
		}},
		{"read param labels", e.cfg.WaitTimeout, func(ctx context.Context) (err error) {
			labels, err = page.TextAll(ctx, sel.ParamLabels)
			return err
		}},
		{"read param values", e.cfg.WaitTimeout, func(ctx context.Context) (err error) {
			values, err = page.TextAll(ctx, sel.ParamValues)
			return err
		}},
		{"read price", e.cfg.WaitTimeout, func(ctx context.Context) (err error) {
			price, err = page.Text(ctx, sel.Price)
			return err
		}},
	}

	for _, s := range steps {
		if err := step(s.name, s.timeout, s.fn); err != nil {
			return nil, err
		}
	}

	attrs, surplus := parser.PairAttributes(labels, values)
	if surplus > 0 {
		slog.Debug("parameter labels and values differ in length",
			slog.String("product_id", productID),
			slog.Int("labels", len(labels)),
			slog.Int("values", len(values)),
		)
	}

	product := &models.Product{
		ID:         productID,
		Name:       parser.NormalizeText(name),
		Attributes: attrs,
		Category:   categoryName,
		Price:      parser.NormalizePrice(price),
	}
	if err := parser.ValidateProduct(product); err != nil {
		return nil, ErrExtraction{ProductID: productID, Step: "validate", Err: err}
	}
	return product, nil
}
