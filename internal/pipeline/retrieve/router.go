// internal/pipeline/retrieve/router.go
package retrieve

import (
	"context"

	pipeerrors "epd-assistant/internal/common/errors"
	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/common/metrics"
	"epd-assistant/internal/models"
	"epd-assistant/internal/store"
)

// Request carries everything the router needs to pick and run a plan.
type Request struct {
	Category   models.Category
	Question   string
	Vector     []float32
	ProductIDs []string
}

// Result is the ordered evidence for one question. Plan names the policy
// that produced the chunks, for the audit record.
type Result struct {
	Chunks       []models.EvidenceChunk
	Plan         string
	UsedFallback bool
}

// Router selects evidence pools and limits per category. Store failures are
// hard failures; an empty result triggers the relaxed fallback plan exactly
// once before the router reports no evidence.
type Router struct {
	store          store.Store
	minChunkLength int
	logger         logger.Logger
}

func New(st store.Store, minChunkLength int, log logger.Logger) *Router {
	return &Router{
		store:          st,
		minChunkLength: minChunkLength,
		logger:         log.With(map[string]interface{}{"stage": "retrieve"}),
	}
}

func (r *Router) Retrieve(ctx context.Context, req *Request) (*Result, error) {
	chunks, plan, err := r.runPlan(ctx, req)
	if err != nil {
		return nil, pipeerrors.NewStoreQueryFailedError(err)
	}

	if len(chunks) == 0 {
		metrics.RetrievalFallbacks.Inc()
		r.logger.Info("primary plan empty, running relaxed fallback", map[string]interface{}{
			"category": string(req.Category),
		})

		chunks, err = r.runFallback(ctx, req)
		if err != nil {
			return nil, pipeerrors.NewStoreQueryFailedError(err)
		}
		return &Result{Chunks: chunks, Plan: "fallback", UsedFallback: true}, nil
	}

	return &Result{Chunks: chunks, Plan: plan}, nil
}

// runPlan executes the fixed per-category policy table. Every category has
// an explicit arm, including unknown.
func (r *Router) runPlan(ctx context.Context, req *Request) ([]models.EvidenceChunk, string, error) {
	switch req.Category {
	case models.CategoryTheoryOnly:
		chunks, err := r.searchTheory(ctx, req.Vector, 5)
		return chunks, "theory:5", err

	case models.CategoryComparisonQuestion:
		chunks, err := r.searchProducts(ctx, req.Vector, req.ProductIDs, 5)
		return chunks, "product[filtered]:5", err

	case models.CategoryHybridTheoryCompare:
		theory, err := r.searchTheory(ctx, req.Vector, 3)
		if err != nil {
			return nil, "", err
		}
		product, err := r.searchProducts(ctx, req.Vector, req.ProductIDs, 3)
		if err != nil {
			return nil, "", err
		}
		return append(theory, product...), "theory:3+product[filtered]:3", nil

	case models.CategoryNewProductQuery:
		theory, err := r.searchTheory(ctx, req.Vector, 3)
		if err != nil {
			return nil, "", err
		}
		for _, term := range extractDomainTerms(req.Question, 2) {
			matched, err := r.store.SearchKeyword(ctx, term, 2)
			if err != nil {
				return nil, "", err
			}
			theory = append(theory, r.applyFloor(matched)...)
		}
		return theory, "theory:3+keyword:2x2", nil

	case models.CategoryIndicatorExplanation:
		chunks, err := r.searchTheory(ctx, req.Vector, 5)
		return chunks, "theory:5", err

	case models.CategoryRecommendationQuery:
		theory, err := r.searchTheory(ctx, req.Vector, 2)
		if err != nil {
			return nil, "", err
		}
		product, err := r.searchProducts(ctx, req.Vector, nil, 5)
		if err != nil {
			return nil, "", err
		}
		return append(theory, product...), "theory:2+product:5", nil

	case models.CategoryProductFollowup:
		product, err := r.searchProducts(ctx, req.Vector, req.ProductIDs, 5)
		if err != nil {
			return nil, "", err
		}
		if len(product) >= 3 {
			return product, "product[filtered]:5", nil
		}
		theory, err := r.searchTheory(ctx, req.Vector, 2)
		if err != nil {
			return nil, "", err
		}
		return append(product, theory...), "product[filtered]:5+theory:2", nil

	case models.CategoryUnknown:
		theory, err := r.searchTheory(ctx, req.Vector, 3)
		if err != nil {
			return nil, "", err
		}
		product, err := r.searchProducts(ctx, req.Vector, req.ProductIDs, 3)
		if err != nil {
			return nil, "", err
		}
		return append(theory, product...), "theory:3+product:3", nil
	}

	// Unreachable: ParseCategory only produces the eight values above.
	chunks, err := r.searchTheory(ctx, req.Vector, 3)
	return chunks, "theory:3", err
}

// runFallback is the single category-agnostic relaxed plan: theory top 2
// plus unfiltered product evidence top 3.
func (r *Router) runFallback(ctx context.Context, req *Request) ([]models.EvidenceChunk, error) {
	theory, err := r.searchTheory(ctx, req.Vector, 2)
	if err != nil {
		return nil, err
	}
	product, err := r.searchProducts(ctx, req.Vector, nil, 3)
	if err != nil {
		return nil, err
	}
	return append(theory, product...), nil
}

func (r *Router) searchTheory(ctx context.Context, vector []float32, limit int) ([]models.EvidenceChunk, error) {
	chunks, err := r.store.Search(ctx, store.SimilaritySearch{
		Vector: vector,
		Pool:   models.PoolTheory,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	return r.applyFloor(chunks), nil
}

func (r *Router) searchProducts(ctx context.Context, vector []float32, productIDs []string, limit int) ([]models.EvidenceChunk, error) {
	chunks, err := r.store.Search(ctx, store.SimilaritySearch{
		Vector:     vector,
		Pool:       models.PoolProductEvidence,
		ProductIDs: productIDs,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return r.applyFloor(chunks), nil
}

// applyFloor drops chunks shorter than the configured minimum text length
// without disturbing the store's ordering.
func (r *Router) applyFloor(chunks []models.EvidenceChunk) []models.EvidenceChunk {
	out := chunks[:0:0]
	for _, c := range chunks {
		if len(c.Text) >= r.minChunkLength {
			out = append(out, c)
		}
	}
	return out
}
