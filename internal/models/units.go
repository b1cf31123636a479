// internal/models/units.go
package models

import "strings"

// unitAliases maps the unit spellings that occur in imported EPD datasets
// (German abbreviations, caret exponents) to one display form.
var unitAliases = map[string]string{
	"kg CO2-Äq.":     "kg CO2 eq",
	"kg CO2-Aeq.":    "kg CO2 eq",
	"kg CO2 eq.":     "kg CO2 eq",
	"kg CFC11-Äq.":   "kg CFC-11 eq",
	"kg CFC-11 eq.":  "kg CFC-11 eq",
	"kg SO2-Äq.":     "kg SO2 eq",
	"kg SO2 eq.":     "kg SO2 eq",
	"kg PO4-Äq.":     "kg PO4 eq",
	"kg P-Äq.":       "kg P eq",
	"kg N-Äq.":       "kg N eq",
	"kg Ethen-Äq.":   "kg ethene eq",
	"kg Sb-Äq.":      "kg Sb eq",
	"mol H+-Äq.":     "mol H+ eq",
	"mol N-Äq.":      "mol N eq",
	"kg NMVOC-Äq.":   "kg NMVOC eq",
	"m^3":            "m3",
	"m^2":            "m2",
	"m^3 Welt-Äq.":   "m3 world eq",
	"m3 world eq..":  "m3 world eq",
	"MJ, netto":      "MJ",
	"MJ (net cal.)":  "MJ",
	"krankheitsf.":   "disease incidence",
	"disease incid.": "disease incidence",
}

// NormalizeUnit maps a stored unit spelling to its display form. Unknown
// units pass through unchanged; blank means dimensionless.
func NormalizeUnit(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return "-"
	}
	if norm, ok := unitAliases[u]; ok {
		return norm
	}
	return u
}
