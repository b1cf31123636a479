// internal/pipeline/audit/recorder_test.go
package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epd-assistant/internal/common/logger"
)

type captureSink struct {
	mu      sync.Mutex
	records []*Record
	block   chan struct{}
	err     error
}

func (s *captureSink) Write(_ context.Context, rec *Record) error {
	if s.block != nil {
		<-s.block
	}
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *captureSink) captured() []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Record(nil), s.records...)
}

func TestSubmitDrainsOnClose(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, 8, logger.NewTestLogger(t))

	rec.Submit(&Record{Question: "What is an EPD?", Category: "theory_only", Plan: "theory:5"})
	rec.Submit(&Record{Question: "Which has lower GWP?", Category: "comparison_question", Plan: "product[filtered]:5"})
	rec.Close()

	records := sink.captured()
	require.Len(t, records, 2)
	assert.Equal(t, "What is an EPD?", records[0].Question)
	assert.Equal(t, "Which has lower GWP?", records[1].Question)
}

func TestFinalizeDerivesPromptMetrics(t *testing.T) {
	rec := &Record{Prompt: "line one two\nline three"}
	rec.Finalize()

	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Timestamp.IsZero())
	assert.Equal(t, len(rec.Prompt), rec.PromptChars)
	assert.Equal(t, 5, rec.PromptWords)
	assert.Equal(t, 2, rec.PromptLines)

	empty := &Record{}
	empty.Finalize()
	assert.Zero(t, empty.PromptLines)
}

func TestSubmitDropsWhenBufferFull(t *testing.T) {
	sink := &captureSink{block: make(chan struct{})}
	rec := NewRecorder(sink, 1, logger.NewTestLogger(t))

	// First record occupies the consumer, second fills the buffer, the
	// third has nowhere to go and must be dropped without blocking.
	rec.Submit(&Record{Question: "one"})
	rec.Submit(&Record{Question: "two"})
	rec.Submit(&Record{Question: "three"})

	close(sink.block)
	rec.Close()

	assert.LessOrEqual(t, len(sink.captured()), 2)
}

func TestSubmitAfterCloseIsDropped(t *testing.T) {
	sink := &captureSink{}
	rec := NewRecorder(sink, 4, logger.NewTestLogger(t))
	rec.Close()

	// A request still in flight during shutdown may submit after the
	// recorder has closed; the record is dropped, never sent.
	rec.Submit(&Record{Question: "late"})

	assert.Empty(t, sink.captured())
}

func TestSinkFailureIsSwallowed(t *testing.T) {
	sink := &captureSink{err: errors.New("index unavailable")}
	rec := NewRecorder(sink, 4, logger.NewTestLogger(t))

	rec.Submit(&Record{Question: "q"})
	rec.Close()
	// Reaching here without a panic or error is the assertion: sink
	// failures stay inside the recorder.
}
