// internal/pipeline/audit/recorder.go

// Package audit persists one structured record per question, fire and
// forget. A full buffer or a failing sink never blocks or fails the
// request path.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/common/metrics"
)

// Record is the full trace of one question through the pipeline.
type Record struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Question     string    `json:"question"`
	Category     string    `json:"category"`
	Plan         string    `json:"plan"`
	UsedFallback bool      `json:"usedFallback"`
	EvidenceIDs  []string  `json:"evidenceIds"`
	ProductIDs   []string  `json:"productIds,omitempty"`
	Model        string    `json:"model"`
	Prompt       string    `json:"prompt"`
	PromptChars  int       `json:"promptChars"`
	PromptWords  int       `json:"promptWords"`
	PromptLines  int       `json:"promptLines"`
	Answer       string    `json:"answer"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"durationMs"`
}

// Finalize assigns the record id and derives the prompt metrics.
func (r *Record) Finalize() {
	r.ID = uuid.NewString()
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}
	r.PromptChars = len(r.Prompt)
	r.PromptWords = len(strings.Fields(r.Prompt))
	if r.Prompt != "" {
		r.PromptLines = strings.Count(r.Prompt, "\n") + 1
	}
}

// Sink persists one record.
type Sink interface {
	Write(ctx context.Context, rec *Record) error
}

// ElasticsearchSink indexes records into a fixed index.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Write(ctx context.Context, rec *Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: rec.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return fmt.Errorf("index audit record: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit record: %s", res.Status())
	}
	return nil
}

// Recorder hands records to a single consumer goroutine over a buffered
// channel. Submit never blocks: when the buffer is full the record is
// dropped and counted.
type Recorder struct {
	sink    Sink
	records chan *Record
	logger  logger.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

func NewRecorder(sink Sink, bufferSize int, log logger.Logger) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	r := &Recorder{
		sink:    sink,
		records: make(chan *Record, bufferSize),
		logger:  log.With(map[string]interface{}{"stage": "audit"}),
		done:    make(chan struct{}),
	}
	go r.consume()
	return r
}

// Submit queues a record for persistence. It never blocks and never
// returns an error. Records arriving after Close are dropped, not sent;
// a request racing shutdown must not panic the process.
func (r *Recorder) Submit(rec *Record) {
	rec.Finalize()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.drop(rec, "recorder closed")
		return
	}
	select {
	case r.records <- rec:
	default:
		r.drop(rec, "buffer full")
	}
}

func (r *Recorder) drop(rec *Record, reason string) {
	metrics.AuditRecordsDropped.Inc()
	r.logger.Warn("audit record dropped", map[string]interface{}{
		"record_id": rec.ID,
		"reason":    reason,
	})
}

func (r *Recorder) consume() {
	defer close(r.done)
	for rec := range r.records {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.sink.Write(ctx, rec); err != nil {
			r.logger.Warn("audit record not persisted", map[string]interface{}{
				"record_id": rec.ID,
				"error":     err.Error(),
			})
		}
		cancel()
	}
}

// Close stops accepting records and drains what is already buffered.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.records)
	})
	<-r.done
}
