// internal/pipeline/compose/format.go
package compose

import (
	"fmt"
	"math"
)

// formatAmount renders an environmental value with 3 decimal places, or in
// scientific notation when the absolute value is below 0.001. Zero renders
// as "0.000", not in scientific notation.
func formatAmount(v float64) string {
	if v == 0 {
		return "0.000"
	}
	if math.Abs(v) < 0.001 {
		return fmt.Sprintf("%.3e", v)
	}
	return fmt.Sprintf("%.3f", v)
}
