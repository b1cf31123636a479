// internal/pipeline/compose/compositor.go

// Package compose assembles the instruction string sent to the generation
// capability. Composition is a pure function of its input: no lookups, no
// clocks, no randomness, so identical inputs always yield identical prompts.
package compose

import (
	"sort"
	"strings"

	"epd-assistant/internal/models"
	"epd-assistant/internal/pipeline/significance"
)

// significanceMarkerThreshold is the z-score above which a value line gets
// its "(high)" or "(low)" suffix.
const significanceMarkerThreshold = 1.5

// Input is everything a prompt can be built from. Products, Indicators, and
// Significance are optional; the category decides which blocks render.
type Input struct {
	Category     models.Category
	Question     string
	Evidence     []models.EvidenceChunk
	Products     []models.Product
	Indicators   []models.Indicator
	Significance significance.Result
}

// Compositor renders one of the fixed per-category templates. The module
// glossary is injected once at startup and never mutated.
type Compositor struct {
	glossary *models.ModuleGlossary
}

func New(glossary *models.ModuleGlossary) *Compositor {
	return &Compositor{glossary: glossary}
}

// Compose builds the full instruction string for one question.
func (c *Compositor) Compose(in *Input) string {
	var b strings.Builder

	b.WriteString(preamble(in.Category))
	b.WriteString("\n\n")
	b.WriteString(dataIntegrityClause)

	if in.Category.IsProductCentric() {
		b.WriteString("\n\n")
		b.WriteString(moduleIntegrityClause)
		c.writeModuleGlossary(&b)
	}

	if len(in.Products) > 0 {
		c.writeProducts(&b, in.Products)
	}

	if in.Significance != nil {
		c.writeSignificance(&b, in.Significance)
	}

	if len(in.Indicators) > 0 {
		c.writeIndicators(&b, in.Indicators)
	}

	if len(in.Evidence) > 0 {
		b.WriteString("\n\nBackground material:\n")
		for i, chunk := range in.Evidence {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(chunk.Text)
		}
	}

	b.WriteString("\n\nQuestion: ")
	b.WriteString(in.Question)
	b.WriteString("\n\nAnswer:")

	return b.String()
}

func (c *Compositor) writeModuleGlossary(b *strings.Builder) {
	b.WriteString("\n\nLife-cycle modules:\n")
	for _, m := range c.glossary.Modules() {
		b.WriteString("- ")
		b.WriteString(m.Code)
		b.WriteString(": ")
		b.WriteString(m.Description)
		b.WriteString("\n")
	}
}

func (c *Compositor) writeProducts(b *strings.Builder, products []models.Product) {
	b.WriteString("\n\nSelected products:\n")
	for _, p := range products {
		b.WriteString("- ")
		b.WriteString(p.Name)
		b.WriteString(" (id: ")
		b.WriteString(p.ID)
		b.WriteString(")")
		if len(p.CategoryPath) > 0 {
			b.WriteString(", category: ")
			b.WriteString(strings.Join(p.CategoryPath, " > "))
		}
		if p.Materials != "" {
			b.WriteString(", materials: ")
			b.WriteString(p.Materials)
		}
		if p.Uses != "" {
			b.WriteString(", uses: ")
			b.WriteString(p.Uses)
		}
		b.WriteString("\n")
	}
}

// writeSignificance renders the per-product indicator values. Every value
// line carries its module code; a "(high)" or "(low)" marker is appended
// only when the z-score exceeds the threshold.
func (c *Compositor) writeSignificance(b *strings.Builder, result significance.Result) {
	productIDs := make([]string, 0, len(result))
	for id := range result {
		productIDs = append(productIDs, id)
	}
	sort.Strings(productIDs)

	for _, pid := range productIDs {
		view := result[pid]
		if len(view.Indicators) == 0 {
			continue
		}

		b.WriteString("\n\nEnvironmental values for ")
		if view.Name != "" {
			b.WriteString(view.Name)
			b.WriteString(" (id: ")
			b.WriteString(pid)
			b.WriteString(")")
		} else {
			b.WriteString(pid)
		}
		b.WriteString(":\n")

		keys := make([]string, 0, len(view.Indicators))
		for k := range view.Indicators {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			iv := view.Indicators[key]
			b.WriteString("- ")
			if iv.Name != "" && iv.Name != key {
				b.WriteString(iv.Name)
				b.WriteString(" (")
				b.WriteString(key)
				b.WriteString(")")
			} else {
				b.WriteString(key)
			}
			if iv.Unit != "" {
				b.WriteString(" [")
				b.WriteString(models.NormalizeUnit(iv.Unit))
				b.WriteString("]")
			}
			b.WriteString(":\n")

			modules := make([]string, 0, len(iv.Modules))
			for m := range iv.Modules {
				modules = append(modules, m)
			}
			sort.Slice(modules, func(a, b int) bool {
				return c.glossary.Less(modules[a], modules[b])
			})

			for _, module := range modules {
				b.WriteString("    ")
				b.WriteString(module)
				b.WriteString(": ")
				b.WriteString(formatAmount(iv.Modules[module]))
				if sig, ok := iv.Significance[module]; ok && sig.ZScore > significanceMarkerThreshold {
					b.WriteString(" (")
					b.WriteString(string(sig.Direction))
					b.WriteString(")")
				}
				b.WriteString("\n")
			}
		}
	}
}

func (c *Compositor) writeIndicators(b *strings.Builder, indicators []models.Indicator) {
	b.WriteString("\n\nIndicator reference:\n")
	for _, ind := range indicators {
		b.WriteString("- ")
		b.WriteString(ind.Name)
		b.WriteString(" (")
		b.WriteString(ind.Key)
		b.WriteString(")")
		if ind.Unit != "" {
			b.WriteString(", unit: ")
			b.WriteString(models.NormalizeUnit(ind.Unit))
		}
		if ind.LongDescription != "" {
			b.WriteString(": ")
			b.WriteString(ind.LongDescription)
		} else if ind.ShortDescription != "" {
			b.WriteString(": ")
			b.WriteString(ind.ShortDescription)
		}
		b.WriteString("\n")
	}
}
