package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/nutriplan/api/internal/model"
)

type basisKind int

const (
	basisDiscrete basisKind = iota
	basisMass
	basisVolume
)

// parseUnitBasis reads "per_100g" / "per_250ml" / "per_g" style bases.
// Everything else (per_piece, per_slice, per_set, ...) is discrete.
func parseUnitBasis(basis string) (basisKind, float64) {
	b := strings.ToLower(strings.TrimSpace(basis))
	b = strings.TrimPrefix(b, "per_")
	b = strings.TrimPrefix(b, "per ")

	kind := basisDiscrete
	var num string
	switch {
	case strings.HasSuffix(b, "ml"):
		kind, num = basisVolume, strings.TrimSuffix(b, "ml")
	case strings.HasSuffix(b, "g") && !strings.HasSuffix(b, "kg"):
		kind, num = basisMass, strings.TrimSuffix(b, "g")
	default:
		return basisDiscrete, 1
	}
	num = strings.TrimSpace(num)
	if num == "" {
		return kind, 1
	}
	q, err := strconv.ParseFloat(num, 64)
	if err != nil || q <= 0 || math.IsInf(q, 0) || math.IsNaN(q) {
		return basisDiscrete, 1
	}
	return kind, q
}

// PortionFactor returns the multiplier applied to a catalog entry's basis
// macros for the requested quantity. A piece count against a gram or ml
// basis counts whole basis portions. A missing quantity means one basis
// portion.
func PortionFactor(unitBasis, unit string, qty float64) float64 {
	if qty <= 0 || math.IsNaN(qty) || math.IsInf(qty, 0) {
		return 1
	}
	kind, quantum := parseUnitBasis(unitBasis)
	if kind == basisDiscrete {
		return qty
	}
	if unit == model.UnitGram {
		return qty / quantum
	}
	return qty
}
