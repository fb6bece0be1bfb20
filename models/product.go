// Package models defines data structures for the scraper.
package models

import "time"

// Category is one entry of the input category list.
type Category struct {
	Name  string `json:"cat_name"`
	Count int    `json:"count"`
}

// Remaining returns how many products the category still needs to reach quota.
func (c Category) Remaining(quota int) int {
	return quota - c.Count
}

// Product is a fully parsed product detail page.
type Product struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	Category   string            `json:"category"`
	Price      string            `json:"price"`
}

// CategoryStats summarises the work done for a single category.
type CategoryStats struct {
	Category           string
	Pages              int
	SearchRequests     int
	SearchFailures     int
	IDsCollected       int
	DuplicateIDs       int
	ExtractionAttempts int
	ExtractionFailures int
	Products           int
	Errors             map[string]int
	Err                error
}

// RunResult holds the overall result of a run.
type RunResult struct {
	StartTime          time.Time
	EndTime            time.Time
	CategoriesTotal    int
	CategoriesSkipped  int
	CategoriesFailed   int
	SearchRequests     int
	SearchFailures     int
	ExtractionAttempts int
	ExtractionFailures int
	TotalCount         int
	Categories         []CategoryStats
	ErrorsByType       map[string]int
}
