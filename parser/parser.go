package parser

import (
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-wb/models"
)

// ValidateProduct ensures the extractor captured the required fields.
func ValidateProduct(p *models.Product) error {
	if p == nil {
		return fmt.Errorf("product is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("product missing id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("product missing name for %s", p.ID)
	}
	return nil
}

// NormalizeText collapses runs of whitespace, including non-breaking and
// thin spaces, into single spaces and trims the result.
func NormalizeText(text string) string {
	return strings.Join(strings.FieldsFunc(text, isSpace), " ")
}

// NormalizePrice tidies the rendered price text. The currency sign is kept.
func NormalizePrice(price string) string {
	return NormalizeText(price)
}

// PairAttributes zips parameter labels with their values. Pairs beyond the
// shorter list are dropped and reported as surplus. Empty labels are skipped.
func PairAttributes(labels, values []string) (map[string]string, int) {
	n := len(labels)
	if len(values) < n {
		n = len(values)
	}
	surplus := len(labels) + len(values) - 2*n

	attrs := make(map[string]string, n)
	for i := 0; i < n; i++ {
		label := NormalizeText(labels[i])
		if label == "" {
			continue
		}
		attrs[label] = NormalizeText(values[i])
	}
	return attrs, surplus
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '\v', '\f', '\u00a0', '\u2009', '\u202f':
		return true
	}
	return false
}
