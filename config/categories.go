package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aluiziolira/go-scrape-wb/models"
)

// LoadCategories reads the category list from a JSON array of
// {"cat_name": ..., "count": ...} objects.
func LoadCategories(path string) ([]models.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var categories []models.Category
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("decode categories file %s: %w", path, err)
	}

	for i, cat := range categories {
		if strings.TrimSpace(cat.Name) == "" {
			return nil, fmt.Errorf("category %d has an empty cat_name", i)
		}
	}
	return categories, nil
}
