package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aluiziolira/go-scrape-wb/config"
	"github.com/aluiziolira/go-scrape-wb/models"
)

type searchCall struct {
	query   string
	page    int
	variant string
}

// fakeSearch answers from a func and records every call.
type fakeSearch struct {
	respond func(page int, variant string) ([]string, error)
	calls   []searchCall
}

func (f *fakeSearch) FetchProductIDs(_ context.Context, query string, page int, variant string) ([]string, error) {
	f.calls = append(f.calls, searchCall{query: query, page: page, variant: variant})
	return f.respond(page, variant)
}

// fakeParser returns a product per id unless the id is listed in fail.
type fakeParser struct {
	fail     map[string]bool
	attempts []string
}

func (f *fakeParser) ParseProduct(_ context.Context, _ Page, productID, categoryName string) (*models.Product, error) {
	f.attempts = append(f.attempts, productID)
	if f.fail[productID] {
		return nil, ErrExtraction{ProductID: productID, Step: "wait title", Err: errors.New("no title")}
	}
	return &models.Product{
		ID:         productID,
		Name:       "Product " + productID,
		Attributes: map[string]string{"id": productID},
		Category:   categoryName,
		Price:      "1 ₽",
	}, nil
}

func pageIDs(page, perPage int) []string {
	ids := make([]string, perPage)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", (page-1)*perPage+i+1)
	}
	return ids
}

func newTestCollector(search ProductSearcher, parser ProductParser) *CategoryCollector {
	return NewCategoryCollector(config.DefaultConfig(), search, parser, nil, NewMetrics())
}

func TestCollectCategoryQuotaReached(t *testing.T) {
	search := &fakeSearch{respond: func(int, string) ([]string, error) {
		return []string{"1"}, nil
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	for _, count := range []int{100, 150} {
		products, stats, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: count})
		if err != nil {
			t.Fatalf("collect: %v", err)
		}
		if len(products) != 0 || stats.ExtractionAttempts != 0 {
			t.Fatalf("count=%d: products=%d attempts=%d, want none", count, len(products), stats.ExtractionAttempts)
		}
	}
	if len(search.calls) != 0 || len(parser.attempts) != 0 {
		t.Fatalf("searches=%d extractions=%d, want 0", len(search.calls), len(parser.attempts))
	}
}

func TestCollectCategoryVariantOrder(t *testing.T) {
	search := &fakeSearch{respond: func(page int, variant string) ([]string, error) {
		switch {
		case page == 1 && variant == "":
			return []string{"a", "b"}, nil
		case page == 2 && variant == "appliances2":
			return []string{"c", "d"}, nil
		case page == 1 && variant == "stationery3":
			return nil, ErrNotFound{Err: errors.New("404")}
		}
		return []string{}, nil
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	products, _, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: 96})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	want := []searchCall{
		{"pens", 1, "stationery3"},
		{"pens", 1, "appliances2"},
		{"pens", 1, ""},
		{"pens", 2, "stationery3"},
		{"pens", 2, "appliances2"},
	}
	if len(search.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", search.calls, want)
	}
	for i := range want {
		if search.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", search.calls, want)
		}
	}

	if len(products) != 4 {
		t.Fatalf("products = %d, want 4", len(products))
	}
	for i, id := range []string{"a", "b", "c", "d"} {
		if products[i].ID != id {
			t.Fatalf("product %d id = %q, want %q", i, products[i].ID, id)
		}
	}
}

func TestCollectCategoryPageLimit(t *testing.T) {
	search := &fakeSearch{respond: func(int, string) ([]string, error) {
		return nil, ErrNotFound{Err: errors.New("404")}
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	products, stats, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: 0})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Pages != 99 {
		t.Fatalf("pages = %d, want 99", stats.Pages)
	}
	if len(search.calls) != 99*3 {
		t.Fatalf("search calls = %d, want %d", len(search.calls), 99*3)
	}
	if last := search.calls[len(search.calls)-1]; last.page != 99 {
		t.Fatalf("last page = %d, want 99", last.page)
	}
	if len(products) != 0 || len(parser.attempts) != 0 {
		t.Fatalf("all-404 search should extract nothing, got %d attempts", len(parser.attempts))
	}
	if stats.SearchFailures != 99*3 || stats.Errors["not_found"] != 99*3 {
		t.Fatalf("failures = %d, errors = %v", stats.SearchFailures, stats.Errors)
	}
}

func TestCollectCategoryStopsAtRemaining(t *testing.T) {
	search := &fakeSearch{respond: func(page int, variant string) ([]string, error) {
		if variant != "" {
			return nil, nil
		}
		if page == 1 {
			return []string{"1", "2", "3", "4", "5"}, nil
		}
		return pageIDs(page, 5), nil
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	products, stats, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: 95})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Pages != 1 {
		t.Fatalf("pages = %d, want 1", stats.Pages)
	}
	if len(parser.attempts) != 5 || stats.ExtractionAttempts != 5 {
		t.Fatalf("attempts = %d, want 5", len(parser.attempts))
	}
	if len(products) != 5 {
		t.Fatalf("products = %d, want 5", len(products))
	}
}

func TestCollectCategoryCapsExtractions(t *testing.T) {
	search := &fakeSearch{respond: func(page int, _ string) ([]string, error) {
		return pageIDs(page, 30), nil
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	_, stats, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: 50})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Pages != 2 || stats.IDsCollected != 60 {
		t.Fatalf("pages=%d ids=%d, want 2/60", stats.Pages, stats.IDsCollected)
	}
	if len(parser.attempts) != 50 {
		t.Fatalf("attempts = %d, want 50", len(parser.attempts))
	}
	if parser.attempts[0] != "1" || parser.attempts[49] != "50" {
		t.Fatalf("attempts not in id order: first=%s last=%s", parser.attempts[0], parser.attempts[49])
	}
}

func TestCollectCategoryDeduplicatesIDs(t *testing.T) {
	search := &fakeSearch{respond: func(page int, _ string) ([]string, error) {
		switch page {
		case 1:
			return []string{"1", "2", "2", "3"}, nil
		case 2:
			return []string{"3", "4"}, nil
		}
		return nil, nil
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	_, stats, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: 96})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.DuplicateIDs != 2 || stats.IDsCollected != 4 {
		t.Fatalf("duplicates=%d ids=%d, want 2/4", stats.DuplicateIDs, stats.IDsCollected)
	}
	want := []string{"1", "2", "3", "4"}
	for i := range want {
		if parser.attempts[i] != want[i] {
			t.Fatalf("attempts = %v, want %v", parser.attempts, want)
		}
	}
}

func TestCollectCategorySkipsFailedExtractions(t *testing.T) {
	search := &fakeSearch{respond: func(int, string) ([]string, error) {
		return []string{"1", "2", "3", "4"}, nil
	}}
	parser := &fakeParser{fail: map[string]bool{"2": true}}
	c := newTestCollector(search, parser)

	products, stats, err := c.CollectCategory(context.Background(), models.Category{Name: "pens", Count: 96})
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(parser.attempts) != 4 {
		t.Fatalf("attempts = %v, want all 4 ids tried", parser.attempts)
	}
	if len(products) != 3 || stats.ExtractionFailures != 1 {
		t.Fatalf("products=%d failures=%d, want 3/1", len(products), stats.ExtractionFailures)
	}
	for _, p := range products {
		if p.ID == "2" {
			t.Fatalf("failed product must not be returned")
		}
	}
	if stats.Errors["extraction"] != 1 {
		t.Fatalf("errors = %v", stats.Errors)
	}
}

func TestCollectCategoryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	search := &fakeSearch{respond: func(int, string) ([]string, error) {
		cancel()
		return []string{"1"}, nil
	}}
	parser := &fakeParser{}
	c := newTestCollector(search, parser)

	_, _, err := c.CollectCategory(ctx, models.Category{Name: "pens", Count: 0})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(parser.attempts) != 0 {
		t.Fatalf("no extraction should start after cancellation")
	}
}
