// internal/models/units_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUnit(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"kg CO2-Äq.", "kg CO2 eq"},
		{"kg CFC11-Äq.", "kg CFC-11 eq"},
		{"m^3", "m3"},
		{"MJ, netto", "MJ"},
		{"  kg CO2-Äq. ", "kg CO2 eq"},
		{"kg CO2 eq", "kg CO2 eq"},
		{"", "-"},
		{"   ", "-"},
		{"unknown-unit", "unknown-unit"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUnit(tt.raw), "raw %q", tt.raw)
	}
}
