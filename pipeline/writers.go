package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-wb/models"
)

// JSONWriter writes the result set as an indented JSON array.
type JSONWriter struct {
	path string
}

// NewJSONWriter prepares a JSON writer for filename.
func NewJSONWriter(filename string) (*JSONWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &JSONWriter{path: filename}, nil
}

// Write replaces the file with products. Non-ASCII and HTML characters are
// written as-is.
func (jw *JSONWriter) Write(products []*models.Product) error {
	if products == nil {
		products = []*models.Product{}
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(products); err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	return replaceFile(jw.path, buf.Bytes())
}

// Validate ensures the file holds a JSON array.
func (jw *JSONWriter) Validate() error {
	data, err := os.ReadFile(jw.path)
	if err != nil {
		return fmt.Errorf("read json file: %w", err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("json file is not an array: %w", err)
	}
	return nil
}

// CSVWriter writes the result set as CSV with attributes encoded as a JSON object.
type CSVWriter struct {
	path string
}

var csvHeader = []string{"id", "name", "category", "price", "attributes"}

// NewCSVWriter prepares a CSV writer for filename.
func NewCSVWriter(filename string) (*CSVWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}
	return &CSVWriter{path: filename}, nil
}

// Write replaces the file with a header row and one row per product.
func (cw *CSVWriter) Write(products []*models.Product) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, p := range products {
		attrs, err := json.Marshal(p.Attributes)
		if err != nil {
			return fmt.Errorf("encode attributes for %s: %w", p.ID, err)
		}
		if err := writer.Write([]string{p.ID, p.Name, p.Category, p.Price, string(attrs)}); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return replaceFile(cw.path, buf.Bytes())
}

// Validate ensures the file has a header row.
func (cw *CSVWriter) Validate() error {
	info, err := os.Stat(cw.path)
	if err != nil {
		return fmt.Errorf("stat csv file: %w", err)
	}
	if info.Size() <= 0 {
		return fmt.Errorf("csv file is empty")
	}
	return nil
}

// replaceFile writes data next to path and renames it into place so readers
// never observe a half-written file.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
