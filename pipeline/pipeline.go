package pipeline

import (
	"fmt"

	"github.com/aluiziolira/go-scrape-wb/models"
)

// OutputWriter persists the complete result set. Each Write replaces what a
// previous Write produced.
type OutputWriter interface {
	Write(products []*models.Product) error
	Validate() error
}

// ResultSet is the ordered, append-only accumulation of products for a run.
// It is owned by a single goroutine and is not safe for concurrent use.
type ResultSet struct {
	writer      OutputWriter
	products    []*models.Product
	checkpoints int
}

// NewResultSet returns an empty result set checkpointed through writer.
func NewResultSet(writer OutputWriter) *ResultSet {
	return &ResultSet{
		writer:   writer,
		products: make([]*models.Product, 0, 256),
	}
}

// Append adds products in order, skipping nils, and returns how many were added.
func (r *ResultSet) Append(products ...*models.Product) int {
	added := 0
	for _, p := range products {
		if p == nil {
			continue
		}
		r.products = append(r.products, p)
		added++
	}
	return added
}

// Len returns the number of accumulated products.
func (r *ResultSet) Len() int {
	return len(r.products)
}

// Products returns a copy of the accumulated products.
func (r *ResultSet) Products() []*models.Product {
	out := make([]*models.Product, len(r.products))
	copy(out, r.products)
	return out
}

// Checkpoint rewrites the output with everything accumulated so far.
func (r *ResultSet) Checkpoint() error {
	if err := r.writer.Write(r.products); err != nil {
		return fmt.Errorf("checkpoint %d products: %w", len(r.products), err)
	}
	r.checkpoints++
	return nil
}

// Checkpoints returns how many checkpoints have been written.
func (r *ResultSet) Checkpoints() int {
	return r.checkpoints
}

// Validate checks the last checkpoint on disk.
func (r *ResultSet) Validate() error {
	return r.writer.Validate()
}
