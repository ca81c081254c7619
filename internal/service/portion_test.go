package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPortionFactor(t *testing.T) {
	tests := []struct {
		basis string
		unit  string
		qty   float64
		want  float64
	}{
		{"per_piece", "piece", 2, 2},
		{"per_100g", "g", 150, 1.5},
		{"per_100g", "piece", 2, 2},
		{"per_100ml", "g", 250, 2.5},
		{"per_250ml", "g", 500, 2},
		{"per_g", "g", 30, 30},
		{"per_slice", "g", 50, 50},
		{"PER_100G", "g", 50, 0.5},
		{"per_100g", "g", 0, 1},
		{"per_100g", "g", -5, 1},
		{"per_100g", "g", math.NaN(), 1},
		{"per_100g", "g", math.Inf(1), 1},
	}
	for _, tt := range tests {
		got := PortionFactor(tt.basis, tt.unit, tt.qty)
		assert.InDelta(t, tt.want, got, 1e-9, "%s %s %v", tt.basis, tt.unit, tt.qty)
	}
}
