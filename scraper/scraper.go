package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/aluiziolira/go-scrape-wb/models"
	"github.com/aluiziolira/go-scrape-wb/pipeline"
)

// CategoryRunner collects the products of one category.
type CategoryRunner interface {
	CollectCategory(ctx context.Context, cat models.Category) ([]*models.Product, models.CategoryStats, error)
}

// Scraper walks the category list and checkpoints the accumulated products
// after every category.
type Scraper struct {
	cfg       *config.Config
	collector CategoryRunner
	progress  Progress
	Metrics   *Metrics
}

// NewScraper builds the run coordinator. progress may be nil.
func NewScraper(cfg *config.Config, collector CategoryRunner, progress Progress, metrics *Metrics) *Scraper {
	if progress == nil {
		progress = noopProgress{}
	}
	return &Scraper{
		cfg:       cfg,
		collector: collector,
		progress:  progress,
		Metrics:   metrics,
	}
}

// Run processes categories in order after skipping the configured offset. A
// failing category is logged and its records discarded; the run continues.
// The result set is checkpointed after every category, so a crash leaves a
// complete file for the categories finished so far. Only checkpoint failures
// and context cancellation stop the run early.
func (s *Scraper) Run(ctx context.Context, categories []models.Category, results *pipeline.ResultSet) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	result := &models.RunResult{
		StartTime:    time.Now(),
		ErrorsByType: make(map[string]int),
	}
	defer func() {
		result.EndTime = time.Now()
		result.TotalCount = results.Len()
	}()

	skip := min(s.cfg.SkipCategories, len(categories))
	pending := categories[skip:]
	result.CategoriesSkipped = skip
	result.CategoriesTotal = len(pending)

	slog.Info("processing categories",
		slog.Int("total", len(categories)),
		slog.Int("skipped", skip),
		slog.Int("pending", len(pending)),
	)

	s.progress.Start(len(pending))
	defer s.progress.Finish()

	for _, cat := range pending {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		products, stats, err := s.collectSafely(ctx, cat)
		s.accumulate(result, stats)

		if err != nil {
			stats.Err = err
			result.CategoriesFailed++
			result.ErrorsByType[errorTypeLabel(err)]++
			s.Metrics.IncCategory("failed")
			slog.Error("error processing category",
				slog.String("category", cat.Name),
				slog.Any("error", err),
			)
		} else {
			added := results.Append(products...)
			s.Metrics.IncCategory("ok")
			slog.Info("category done",
				slog.String("category", cat.Name),
				slog.Int("products", added),
				slog.Int("ids", stats.IDsCollected),
				slog.Int("extraction_failures", stats.ExtractionFailures),
			)
		}
		result.Categories = append(result.Categories, stats)

		if cerr := results.Checkpoint(); cerr != nil {
			return result, cerr
		}
		s.progress.Advance(cat.Name)

		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	return result, nil
}

// collectSafely runs one category, converting a panic into an error so a
// single bad category cannot end the run.
func (s *Scraper) collectSafely(ctx context.Context, cat models.Category) (products []*models.Product, stats models.CategoryStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			products = nil
			stats.Category = cat.Name
			err = ErrPanic{Value: r}
		}
	}()

	products, stats, err = s.collector.CollectCategory(ctx, cat)
	if stats.Category == "" {
		stats.Category = cat.Name
	}
	if err != nil {
		return nil, stats, fmt.Errorf("collect %q: %w", cat.Name, err)
	}
	return products, stats, nil
}

func (s *Scraper) accumulate(result *models.RunResult, stats models.CategoryStats) {
	result.SearchRequests += stats.SearchRequests
	result.SearchFailures += stats.SearchFailures
	result.ExtractionAttempts += stats.ExtractionAttempts
	result.ExtractionFailures += stats.ExtractionFailures
	for k, v := range stats.Errors {
		result.ErrorsByType[k] += v
	}
}
