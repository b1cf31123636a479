// internal/models/modules.go
package models

// ModuleInfo describes one coded life-cycle stage.
type ModuleInfo struct {
	Code        string
	Description string
}

// ModuleGlossary is the fixed life-cycle module table (EN 15804). It is
// constructed once at startup and injected wherever module codes are
// rendered or ordered; it is never mutated.
type ModuleGlossary struct {
	modules []ModuleInfo
	order   map[string]int
}

// NewModuleGlossary builds the standard A1...D glossary.
func NewModuleGlossary() *ModuleGlossary {
	modules := []ModuleInfo{
		{Code: "A1-A3", Description: "Production stage (raw material supply, transport, manufacturing)"},
		{Code: "A1", Description: "Raw material supply"},
		{Code: "A2", Description: "Transport to manufacturer"},
		{Code: "A3", Description: "Manufacturing"},
		{Code: "A4", Description: "Transport to building site"},
		{Code: "A5", Description: "Installation into the building"},
		{Code: "B1", Description: "Use of the installed product"},
		{Code: "B2", Description: "Maintenance"},
		{Code: "B3", Description: "Repair"},
		{Code: "B4", Description: "Replacement"},
		{Code: "B5", Description: "Refurbishment"},
		{Code: "B6", Description: "Operational energy use"},
		{Code: "B7", Description: "Operational water use"},
		{Code: "C1", Description: "Deconstruction and demolition"},
		{Code: "C2", Description: "Transport to waste processing"},
		{Code: "C3", Description: "Waste processing"},
		{Code: "C4", Description: "Disposal"},
		{Code: "D", Description: "Benefits and loads beyond the system boundary (reuse, recovery, recycling)"},
	}

	order := make(map[string]int, len(modules))
	for i, m := range modules {
		order[m.Code] = i
	}

	return &ModuleGlossary{modules: modules, order: order}
}

// Modules returns the glossary entries in canonical life-cycle order.
func (g *ModuleGlossary) Modules() []ModuleInfo {
	return g.modules
}

// Less orders module codes by life-cycle position; codes absent from the
// glossary sort after known ones, lexicographically.
func (g *ModuleGlossary) Less(a, b string) bool {
	ia, oka := g.order[a]
	ib, okb := g.order[b]
	switch {
	case oka && okb:
		return ia < ib
	case oka:
		return true
	case okb:
		return false
	default:
		return a < b
	}
}
