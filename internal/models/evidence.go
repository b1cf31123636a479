// internal/models/evidence.go
package models

// EvidencePool tags which pool a chunk was retrieved from.
type EvidencePool string

const (
	PoolTheory          EvidencePool = "theory"
	PoolProductEvidence EvidencePool = "product-evidence"
)

// EvidenceChunk is one retrievable unit of reference text grounding a
// generated answer. ProductID is set only for product-evidence chunks.
type EvidenceChunk struct {
	ID        string       `json:"id"`
	Text      string       `json:"text"`
	Pool      EvidencePool `json:"pool"`
	ProductID string       `json:"productId,omitempty"`
	Distance  float64      `json:"distance"`
}
