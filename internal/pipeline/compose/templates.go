// internal/pipeline/compose/templates.go
package compose

import "epd-assistant/internal/models"

// dataIntegrityClause is embedded verbatim in every template, no exceptions.
const dataIntegrityClause = `Use only the values and facts supplied below. Do not invent, estimate, or recall numbers from anywhere else. If the supplied data does not cover part of the question, say explicitly that the data is missing.`

// moduleIntegrityClause is embedded in the templates of the product-centric
// categories. Environmental values are only meaningful together with their
// life-cycle module code.
const moduleIntegrityClause = `Every environmental value below belongs to exactly one life-cycle module. Never present a module-scoped value as if it applied to the indicator as a whole, never add or otherwise combine values across different modules, and always name the module code together with every value you cite.`

// preamble returns the category-specific opening instruction. The switch is
// exhaustive over all eight categories; unknown has its own arm rather than
// riding on a default.
func preamble(category models.Category) string {
	switch category {
	case models.CategoryTheoryOnly:
		return `You are an assistant for sustainability in construction. Answer the general question below using the background material provided. Keep the answer factual and accessible to a non-expert.`
	case models.CategoryComparisonQuestion:
		return `You are an assistant for sustainability in construction. Compare the selected products below using only their listed environmental values. Name concrete differences and say which product performs better on the indicators the question asks about.`
	case models.CategoryHybridTheoryCompare:
		return `You are an assistant for sustainability in construction. First explain the relevant background briefly, then compare the selected products below using only their listed environmental values.`
	case models.CategoryNewProductQuery:
		return `You are an assistant for sustainability in construction. The question asks about a product or material outside the current selection. Answer from the background material and any matching evidence below; if the material is not covered, say so.`
	case models.CategoryIndicatorExplanation:
		return `You are an assistant for sustainability in construction. Explain the environmental indicator the question asks about: what it measures, its unit, and why it matters for construction products.`
	case models.CategoryRecommendationQuery:
		return `You are an assistant for sustainability in construction. Recommend from the products listed below only, and justify the recommendation with their listed environmental values. Do not recommend anything that is not listed.`
	case models.CategoryProductFollowup:
		return `You are an assistant for sustainability in construction. The question is a follow-up about the selected products below. Answer it using their listed environmental values and the evidence provided.`
	case models.CategoryUnknown:
		return `You are an assistant for sustainability in construction. Answer the question below as well as the supplied material allows. If the material does not address the question, say so.`
	}
	// Unreachable: ParseCategory only produces the eight values above.
	return `You are an assistant for sustainability in construction. Answer the question below using only the supplied material.`
}
