// internal/pipeline/classify/classifier.go
package classify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/models"
)

// Generator is the slice of the generation capability the classifier needs.
type Generator interface {
	Generate(ctx context.Context, prompt, model string) (string, error)
}

// Classifier assigns a question to one of the fixed categories. It never
// fails: any capability error, empty response, or unrecognized label
// degrades to CategoryUnknown, which is a fully specified category of its
// own, not an error state.
type Classifier struct {
	gen     Generator
	timeout time.Duration
	logger  logger.Logger
}

func New(gen Generator, timeout time.Duration, log logger.Logger) *Classifier {
	return &Classifier{
		gen:     gen,
		timeout: timeout,
		logger:  log.With(map[string]interface{}{"stage": "classify"}),
	}
}

// Classify returns exactly one of the eight category labels.
func (c *Classifier) Classify(ctx context.Context, question, model string) models.Category {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.gen.Generate(ctx, fmt.Sprintf(classifyInstruction, question), model)
	if err != nil {
		c.logger.Warn("classification degraded to unknown", map[string]interface{}{
			"error": err.Error(),
		})
		return models.CategoryUnknown
	}

	label := strings.ToLower(strings.TrimSpace(raw))
	category := models.ParseCategory(label)

	c.logger.Info("question classified", map[string]interface{}{
		"label":    label,
		"category": string(category),
	})

	return category
}
