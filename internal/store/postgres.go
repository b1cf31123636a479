// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/models"
)

// PostgresStore reads reference data from PostgreSQL (pgvector for the
// similarity queries) with a Redis read-through cache in front of the hot
// reference lookups. Cache failures are ignored; the database is the
// authority.
type PostgresStore struct {
	db       *sql.DB
	redis    *redis.Client
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewPostgresStore(db *sql.DB, rdb *redis.Client, cacheTTL time.Duration, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:       db,
		redis:    rdb,
		cacheTTL: cacheTTL,
		logger:   log.With(map[string]interface{}{"component": "store"}),
	}
}

// vectorLiteral renders an embedding as a pgvector text literal.
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func (s *PostgresStore) Search(ctx context.Context, q SimilaritySearch) ([]models.EvidenceChunk, error) {
	query := `
		SELECT id, chunk, pool, COALESCE(product_id, ''), embedding <-> $1::vector AS distance
		FROM evidence_chunks
		WHERE pool = $2`
	args := []interface{}{vectorLiteral(q.Vector), string(q.Pool)}

	if len(q.ProductIDs) > 0 {
		query += ` AND product_id = ANY($3)`
		args = append(args, pq.Array(q.ProductIDs))
	}

	// Secondary id ordering keeps equal-distance ties stable.
	query += fmt.Sprintf(` ORDER BY distance, id LIMIT %d`, q.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("similarity query: %w", err)
	}
	defer rows.Close()

	var chunks []models.EvidenceChunk
	for rows.Next() {
		var c models.EvidenceChunk
		var pool string
		if err := rows.Scan(&c.ID, &c.Text, &pool, &c.ProductID, &c.Distance); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Pool = models.EvidencePool(pool)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *PostgresStore) SearchKeyword(ctx context.Context, term string, limit int) ([]models.EvidenceChunk, error) {
	query := `
		SELECT id, chunk, pool, COALESCE(product_id, '')
		FROM evidence_chunks
		WHERE pool = $1 AND chunk ILIKE '%' || $2 || '%'
		ORDER BY id
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, string(models.PoolProductEvidence), term, limit)
	if err != nil {
		return nil, fmt.Errorf("keyword query: %w", err)
	}
	defer rows.Close()

	var chunks []models.EvidenceChunk
	for rows.Next() {
		var c models.EvidenceChunk
		var pool string
		if err := rows.Scan(&c.ID, &c.Text, &pool, &c.ProductID); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Pool = models.EvidencePool(pool)
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (s *PostgresStore) GetProducts(ctx context.Context, ids []string) ([]models.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, name,
		       COALESCE(category_1, ''), COALESCE(category_2, ''), COALESCE(category_3, ''),
		       COALESCE(materials, ''), COALESCE(uses, '')
		FROM products
		WHERE id = ANY($1)
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("products query: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		var c1, c2, c3 string
		if err := rows.Scan(&p.ID, &p.Name, &c1, &c2, &c3, &p.Materials, &p.Uses); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		for _, c := range []string{c1, c2, c3} {
			if c != "" {
				p.CategoryPath = append(p.CategoryPath, c)
			}
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *PostgresStore) GetIndicators(ctx context.Context, keys []string) ([]models.Indicator, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cacheKey := "ref:indicators:" + strings.Join(keys, ",")
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		var indicators []models.Indicator
		if err := json.Unmarshal(cached, &indicators); err == nil {
			return indicators, nil
		}
	}

	query := `
		SELECT key, name, short_description, long_description, COALESCE(unit, '-')
		FROM indicators
		WHERE key = ANY($1)
		ORDER BY key`

	rows, err := s.db.QueryContext(ctx, query, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("indicators query: %w", err)
	}
	defer rows.Close()

	var indicators []models.Indicator
	for rows.Next() {
		var ind models.Indicator
		if err := rows.Scan(&ind.Key, &ind.Name, &ind.ShortDescription, &ind.LongDescription, &ind.Unit); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		indicators = append(indicators, ind)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, indicators)
	return indicators, nil
}

func (s *PostgresStore) GetModuleAmounts(ctx context.Context, productID string) ([]models.ModuleAmount, error) {
	query := `
		SELECT product_id, indicator_key, module, COALESCE(scenario, ''), amount, COALESCE(unit, '-')
		FROM module_amounts
		WHERE product_id = $1
		ORDER BY indicator_key, module`

	rows, err := s.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("module amounts query: %w", err)
	}
	defer rows.Close()

	var amounts []models.ModuleAmount
	for rows.Next() {
		var ma models.ModuleAmount
		var amount sql.NullFloat64
		if err := rows.Scan(&ma.ProductID, &ma.IndicatorKey, &ma.Module, &ma.Scenario, &amount, &ma.Unit); err != nil {
			return nil, fmt.Errorf("scan module amount: %w", err)
		}
		if amount.Valid {
			v := amount.Float64
			ma.Amount = &v
		}
		amounts = append(amounts, ma)
	}
	return amounts, rows.Err()
}

func (s *PostgresStore) GetCategoryStatistics(ctx context.Context, categoryPath []string) (map[models.StatKey]models.CategoryStatistic, error) {
	path := make([]string, 3)
	copy(path, categoryPath)

	cacheKey := "ref:stats:" + strings.Join(path, "/")
	if cached, ok := s.cacheGet(ctx, cacheKey); ok {
		var stats []models.CategoryStatistic
		if err := json.Unmarshal(cached, &stats); err == nil {
			return statsByKey(stats), nil
		}
	}

	query := `
		SELECT indicator_key, module, mean, std_dev, min, max, COALESCE(unit, '-'), sample_count
		FROM category_statistics
		WHERE COALESCE(category_1, '') = $1 AND COALESCE(category_2, '') = $2 AND COALESCE(category_3, '') = $3
		ORDER BY indicator_key, module`

	rows, err := s.db.QueryContext(ctx, query, path[0], path[1], path[2])
	if err != nil {
		return nil, fmt.Errorf("statistics query: %w", err)
	}
	defer rows.Close()

	var stats []models.CategoryStatistic
	for rows.Next() {
		var st models.CategoryStatistic
		var stdDev sql.NullFloat64
		if err := rows.Scan(&st.IndicatorKey, &st.Module, &st.Mean, &stdDev, &st.Min, &st.Max, &st.Unit, &st.SampleCount); err != nil {
			return nil, fmt.Errorf("scan statistic: %w", err)
		}
		if stdDev.Valid {
			v := stdDev.Float64
			st.StdDev = &v
		}
		st.CategoryPath = categoryPath
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.cacheSet(ctx, cacheKey, stats)
	return statsByKey(stats), nil
}

func statsByKey(stats []models.CategoryStatistic) map[models.StatKey]models.CategoryStatistic {
	out := make(map[models.StatKey]models.CategoryStatistic, len(stats))
	for _, st := range stats {
		out[models.StatKey{IndicatorKey: st.IndicatorKey, Module: st.Module}] = st
	}
	return out
}

func (s *PostgresStore) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.redis == nil {
		return nil, false
	}
	val, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (s *PostgresStore) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("reference cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
