package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-wb/models"
)

// DualWriter checkpoints to JSON and CSV at the same time.
type DualWriter struct {
	jsonWriter *JSONWriter
	csvWriter  *CSVWriter
}

// NewDualWriter creates a writer for both formats.
func NewDualWriter(jsonFilename, csvFilename string) (*DualWriter, error) {
	jsonWriter, err := NewJSONWriter(jsonFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create JSON writer: %w", err)
	}
	csvWriter, err := NewCSVWriter(csvFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV writer: %w", err)
	}
	return &DualWriter{
		jsonWriter: jsonWriter,
		csvWriter:  csvWriter,
	}, nil
}

// Write writes products to both formats. JSON is written first.
func (dw *DualWriter) Write(products []*models.Product) error {
	if err := dw.jsonWriter.Write(products); err != nil {
		return fmt.Errorf("JSON write failed: %w", err)
	}
	if err := dw.csvWriter.Write(products); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}
	return nil
}

// Validate validates both output files
func (dw *DualWriter) Validate() error {
	var errs []error
	if err := dw.jsonWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("JSON validation failed: %w", err))
	}
	if err := dw.csvWriter.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("CSV validation failed: %w", err))
	}
	return errors.Join(errs...)
}
