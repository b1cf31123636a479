// internal/pipeline/pipeline.go

// Package pipeline orchestrates one question through classification,
// retrieval, significance analysis, prompt composition, and generation.
// Each question runs strictly sequentially; concurrency exists only across
// independent questions.
package pipeline

import (
	"context"
	"strings"
	"time"

	pipeerrors "epd-assistant/internal/common/errors"
	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/common/metrics"
	"epd-assistant/internal/models"
	"epd-assistant/internal/pipeline/audit"
	"epd-assistant/internal/pipeline/compose"
	"epd-assistant/internal/pipeline/retrieve"
	"epd-assistant/internal/pipeline/significance"
)

// noEvidenceAnswer is returned when even the fallback plan finds nothing.
// This is a normal answer, not an error.
const noEvidenceAnswer = "No relevant data found."

type Classifier interface {
	Classify(ctx context.Context, question, model string) models.Category
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, req *retrieve.Request) (*retrieve.Result, error)
}

type SignificanceEngine interface {
	Compute(ctx context.Context, productIDs, selectedKeys []string) (significance.Result, error)
}

type Composer interface {
	Compose(in *compose.Input) string
}

type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
	ResolveModel(selector string) string
}

type Auditor interface {
	Submit(rec *audit.Record)
}

// Observer receives per-question outcome signals for the OTel meter.
type Observer interface {
	RecordQuestionProcessed(ctx context.Context, status string)
	RecordQuestionDuration(ctx context.Context, duration time.Duration, status string)
}

// ReferenceStore is the slice of the store the orchestrator reads
// descriptors from.
type ReferenceStore interface {
	GetProducts(ctx context.Context, ids []string) ([]models.Product, error)
	GetIndicators(ctx context.Context, keys []string) ([]models.Indicator, error)
}

// Deps wires the pipeline's collaborators together.
type Deps struct {
	Classifier Classifier
	Embedder   Embedder
	Retriever  Retriever
	Engine     SignificanceEngine
	Composer   Composer
	Generator  Generator
	Store      ReferenceStore
	Recorder   Auditor
	Observer   Observer // optional
}

type Pipeline struct {
	deps            Deps
	retrieveTimeout time.Duration
	logger          logger.Logger
}

func New(deps Deps, retrieveTimeout time.Duration, log logger.Logger) *Pipeline {
	return &Pipeline{
		deps:            deps,
		retrieveTimeout: retrieveTimeout,
		logger:          log.With(map[string]interface{}{"component": "pipeline"}),
	}
}

// Ask answers one question. Validation failures and capability failures
// come back as typed errors; empty evidence and unclassifiable questions
// do not fail.
func (p *Pipeline) Ask(ctx context.Context, q *models.Question) (*models.Answer, error) {
	start := time.Now()
	rec := &audit.Record{
		Question:   q.Text,
		ProductIDs: q.ProductIDs,
	}

	answer, err := p.ask(ctx, q, rec)
	rec.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		rec.Error = err.Error()
		p.deps.Recorder.Submit(rec)
		metrics.QuestionsFailed.WithLabelValues(pipeerrors.CodeOf(err)).Inc()
		p.observe(ctx, start, pipeerrors.CodeOf(err))
		return nil, err
	}

	rec.Answer = answer.Text
	p.deps.Recorder.Submit(rec)
	metrics.QuestionsProcessed.WithLabelValues(rec.Category).Inc()
	p.observe(ctx, start, "ok")
	return answer, nil
}

func (p *Pipeline) observe(ctx context.Context, start time.Time, status string) {
	if p.deps.Observer == nil {
		return
	}
	p.deps.Observer.RecordQuestionProcessed(ctx, status)
	p.deps.Observer.RecordQuestionDuration(ctx, time.Since(start), status)
}

func (p *Pipeline) ask(ctx context.Context, q *models.Question, rec *audit.Record) (*models.Answer, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, pipeerrors.NewEmptyQuestionError()
	}

	model := p.deps.Generator.ResolveModel(q.Model)
	rec.Model = model

	classifyStart := time.Now()
	category := p.deps.Classifier.Classify(ctx, q.Text, model)
	metrics.StageDuration.WithLabelValues("classify").Observe(time.Since(classifyStart).Seconds())
	rec.Category = string(category)

	vector, err := p.embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	retrieved, err := p.retrieve(ctx, &retrieve.Request{
		Category:   category,
		Question:   q.Text,
		Vector:     vector,
		ProductIDs: q.ProductIDs,
	})
	if err != nil {
		return nil, err
	}
	rec.Plan = retrieved.Plan
	rec.UsedFallback = retrieved.UsedFallback
	for _, chunk := range retrieved.Chunks {
		rec.EvidenceIDs = append(rec.EvidenceIDs, chunk.ID)
	}

	if len(retrieved.Chunks) == 0 {
		p.logger.Info("no evidence after fallback", map[string]interface{}{
			"category": rec.Category,
		})
		return &models.Answer{Text: noEvidenceAnswer}, nil
	}

	in := &compose.Input{
		Category: category,
		Question: q.Text,
		Evidence: retrieved.Chunks,
	}

	if len(q.ProductIDs) > 0 {
		products, err := p.deps.Store.GetProducts(ctx, q.ProductIDs)
		if err != nil {
			return nil, pipeerrors.NewStoreQueryFailedError(err)
		}
		in.Products = products
	}

	if len(q.IndicatorKeys) > 0 {
		indicators, err := p.deps.Store.GetIndicators(ctx, q.IndicatorKeys)
		if err != nil {
			return nil, pipeerrors.NewStoreQueryFailedError(err)
		}
		in.Indicators = indicators
	}

	if category.IsProductCentric() && len(q.ProductIDs) > 0 {
		sigStart := time.Now()
		view, err := p.deps.Engine.Compute(ctx, q.ProductIDs, q.IndicatorKeys)
		metrics.StageDuration.WithLabelValues("significance").Observe(time.Since(sigStart).Seconds())
		if err != nil {
			return nil, err
		}
		in.Significance = view
	}

	prompt := p.deps.Composer.Compose(in)
	rec.Prompt = prompt

	genStart := time.Now()
	answer, err := p.deps.Generator.Generate(ctx, prompt, model)
	metrics.StageDuration.WithLabelValues("generate").Observe(time.Since(genStart).Seconds())
	if err != nil {
		return nil, pipeerrors.NewGenerationFailedError(err)
	}

	return &models.Answer{Text: answer}, nil
}

func (p *Pipeline) embed(ctx context.Context, text string) ([]float32, error) {
	start := time.Now()
	vector, err := p.deps.Embedder.Embed(ctx, text)
	metrics.StageDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, pipeerrors.NewEmbeddingFailedError(err)
	}
	return vector, nil
}

func (p *Pipeline) retrieve(ctx context.Context, req *retrieve.Request) (*retrieve.Result, error) {
	if p.retrieveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.retrieveTimeout)
		defer cancel()
	}
	start := time.Now()
	result, err := p.deps.Retriever.Retrieve(ctx, req)
	metrics.StageDuration.WithLabelValues("retrieve").Observe(time.Since(start).Seconds())
	return result, err
}
