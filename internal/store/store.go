// internal/store/store.go
package store

import (
	"context"

	"epd-assistant/internal/models"
)

// SimilaritySearch describes one vector query against an evidence pool.
type SimilaritySearch struct {
	Vector     []float32
	Pool       models.EvidencePool
	ProductIDs []string // optional filter, product-evidence pool only
	Limit      int
}

// Store is the read-side interface over the relational/vector store. All
// data behind it is owned by the offline ETL jobs.
type Store interface {
	// Search returns chunks ordered by ascending similarity distance, ties
	// broken by storage order.
	Search(ctx context.Context, q SimilaritySearch) ([]models.EvidenceChunk, error)

	// SearchKeyword returns product-evidence chunks whose text matches the
	// given term, in stable storage order.
	SearchKeyword(ctx context.Context, term string, limit int) ([]models.EvidenceChunk, error)

	GetProducts(ctx context.Context, ids []string) ([]models.Product, error)
	GetIndicators(ctx context.Context, keys []string) ([]models.Indicator, error)
	GetModuleAmounts(ctx context.Context, productID string) ([]models.ModuleAmount, error)

	// GetCategoryStatistics returns the aggregates for one 3-level category
	// path, keyed by (indicator key, module).
	GetCategoryStatistics(ctx context.Context, categoryPath []string) (map[models.StatKey]models.CategoryStatistic, error)
}
