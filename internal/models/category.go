// internal/models/category.go
package models

// Category is the question category assigned by the classifier. It is a
// closed set: every pipeline dispatch over categories carries an explicit
// arm for each value, including CategoryUnknown.
type Category string

const (
	CategoryTheoryOnly           Category = "theory_only"
	CategoryComparisonQuestion   Category = "comparison_question"
	CategoryHybridTheoryCompare  Category = "hybrid_theory_comparison"
	CategoryNewProductQuery      Category = "new_product_query"
	CategoryIndicatorExplanation Category = "indicator_explanation"
	CategoryRecommendationQuery  Category = "recommendation_query"
	CategoryProductFollowup      Category = "product_followup"
	CategoryUnknown              Category = "unknown"
)

// AllCategories lists every valid category in a fixed order.
var AllCategories = []Category{
	CategoryTheoryOnly,
	CategoryComparisonQuestion,
	CategoryHybridTheoryCompare,
	CategoryNewProductQuery,
	CategoryIndicatorExplanation,
	CategoryRecommendationQuery,
	CategoryProductFollowup,
	CategoryUnknown,
}

// ParseCategory maps a normalized label to a Category. Only exact matches
// are accepted; anything else degrades to CategoryUnknown.
func ParseCategory(label string) Category {
	for _, c := range AllCategories {
		if string(c) == label {
			return c
		}
	}
	return CategoryUnknown
}

// IsProductCentric reports whether the category requires the significance
// stage and the module-integrity prompt clauses.
func (c Category) IsProductCentric() bool {
	switch c {
	case CategoryComparisonQuestion, CategoryHybridTheoryCompare, CategoryProductFollowup:
		return true
	}
	return false
}
