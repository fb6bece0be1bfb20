package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/aluiziolira/go-scrape-wb/models"
	"github.com/aluiziolira/go-scrape-wb/pipeline"
	"github.com/aluiziolira/go-scrape-wb/scraper"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	defaultCfg := config.DefaultConfig()
	inputDefault := defaultCfg.InputFile
	if value, ok := config.EnvString("SCRAPER_INPUT"); ok {
		inputDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	skipDefault := defaultCfg.SkipCategories
	if value, ok, err := config.EnvInt("SCRAPER_SKIP"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_SKIP: %v\n", err)
		os.Exit(1)
	} else if ok {
		skipDefault = value
	}
	quotaDefault := defaultCfg.Quota
	if value, ok, err := config.EnvInt("SCRAPER_QUOTA"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_QUOTA: %v\n", err)
		os.Exit(1)
	} else if ok {
		quotaDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	inputFile := flag.String("input", inputDefault, "Category list (JSON array of {cat_name, count})")
	outputFile := flag.String("output", outputDefault, "Output JSON file, rewritten after every category")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: json or dual (json + csv)")
	skip := flag.Int("skip", skipDefault, "Number of leading categories to skip")
	quota := flag.Int("quota", quotaDefault, "Target number of products per category")
	searchURL := flag.String("search-url", defaultCfg.SearchURL, "Search API endpoint")
	detailURL := flag.String("detail-url", defaultCfg.DetailURLTemplate, "Detail page URL template (one %s for the product id)")
	searchTimeoutMs := flag.Int("search-timeout", int(defaultCfg.SearchTimeout/time.Millisecond), "Search request timeout (milliseconds)")
	headless := flag.Bool("headless", defaultCfg.Headless, "Run the browser headless")
	showProgress := flag.Bool("progress", defaultCfg.Progress, "Show a progress bar on stderr")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := config.DefaultConfig()
	cfg.InputFile = *inputFile
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.SkipCategories = *skip
	cfg.Quota = *quota
	cfg.SearchURL = *searchURL
	cfg.DetailURLTemplate = *detailURL
	cfg.SearchTimeout = time.Duration(*searchTimeoutMs) * time.Millisecond
	cfg.Headless = *headless
	cfg.Progress = *showProgress
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("scrape failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	categories, err := config.LoadCategories(cfg.InputFile)
	if err != nil {
		return err
	}

	writer, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return fmt.Errorf("creating writer: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scraper.NewMetrics()
	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", slog.Any("error", err))
			}
		}()
	}

	search, err := scraper.NewSearchClient(cfg, metrics)
	if err != nil {
		return fmt.Errorf("initialising search client: %w", err)
	}

	browser, err := scraper.NewBrowser(ctx, cfg)
	if err != nil {
		return fmt.Errorf("launching browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return err
	}
	defer page.Close()

	var progress scraper.Progress
	if cfg.Progress {
		progress = scraper.NewBarProgress(os.Stderr)
	}

	collector := scraper.NewCategoryCollector(cfg, search, scraper.NewExtractor(cfg, metrics), page, metrics)
	s := scraper.NewScraper(cfg, collector, progress, metrics)
	results := pipeline.NewResultSet(writer)

	slog.Info("starting scrape",
		slog.String("input", cfg.InputFile),
		slog.String("output", cfg.OutputFile),
		slog.Int("categories", len(categories)),
		slog.Int("quota", cfg.Quota),
	)

	result, runErr := s.Run(ctx, categories, results)
	if result != nil {
		printSummary(result, cfg.OutputFile)
	}
	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			slog.Info("shutdown signal received, stopped after last checkpoint",
				slog.Int("products", results.Len()))
			return nil
		}
		return runErr
	}

	if results.Checkpoints() > 0 {
		if err := results.Validate(); err != nil {
			return fmt.Errorf("output validation failed: %w", err)
		}
	}
	return nil
}

func createWriter(format, filename string) (pipeline.OutputWriter, error) {
	switch format {
	case "json":
		return pipeline.NewJSONWriter(filename)
	case "dual":
		csvFilename := strings.TrimSuffix(filename, ".json") + ".csv"
		return pipeline.NewDualWriter(filename, csvFilename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.RunResult, outputFile string) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Scrape complete")
	t.AppendHeader(table.Row{"Category", "Pages", "IDs", "Attempts", "Failed", "Products", "Error"})
	for _, stats := range result.Categories {
		errText := ""
		if stats.Err != nil {
			errText = stats.Err.Error()
		}
		t.AppendRow(table.Row{
			stats.Category,
			stats.Pages,
			stats.IDsCollected,
			stats.ExtractionAttempts,
			stats.ExtractionFailures,
			stats.Products,
			errText,
		})
	}
	t.AppendFooter(table.Row{"Total", "", "", result.ExtractionAttempts, result.ExtractionFailures, result.TotalCount, ""})
	t.Render()

	fmt.Printf("  Categories:    %d processed, %d skipped, %d failed\n", result.CategoriesTotal, result.CategoriesSkipped, result.CategoriesFailed)
	fmt.Printf("  Searches:      %d (%d failed)\n", result.SearchRequests, result.SearchFailures)
	if len(result.ErrorsByType) > 0 {
		keys := make([]string, 0, len(result.ErrorsByType))
		for k := range result.ErrorsByType {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%d", k, result.ErrorsByType[k]))
		}
		fmt.Printf("  Error types:   %s\n", strings.Join(parts, " "))
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
