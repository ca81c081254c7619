package service

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/nutriplan/api/internal/model"
)

var (
	clauseSplitRe  = regexp.MustCompile(`[,;]+`)
	gramsAtStartRe = regexp.MustCompile(`(?i)^(\d+)\s*(?:grams|gram|gr|g)\b\s*(.+)$`)
	gramsAtEndRe   = regexp.MustCompile(`(?i)^(.+?)\s+(\d+)\s*(?:grams|gram|gr|g)$`)
	countLeadingRe = regexp.MustCompile(`^(\d+)\s+(.+)$`)
)

// ParseItemsFromText splits a meal description on commas and semicolons and
// reads a quantity and unit out of each clause:
//
//	"150g dal", "dal 150 gram" -> 150 g
//	"2 chapati"                -> 2 pieces
//	"rice"                     -> 1 piece
func ParseItemsFromText(text string) []model.ParsedItem {
	parts := clauseSplitRe.Split(text, -1)
	out := make([]model.ParsedItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, parseClause(p))
	}
	return out
}

func parseClause(p string) model.ParsedItem {
	if m := gramsAtStartRe.FindStringSubmatch(p); m != nil {
		return model.ParsedItem{Name: strings.TrimSpace(m[2]), Qty: parseQty(m[1]), Unit: model.UnitGram}
	}
	if m := gramsAtEndRe.FindStringSubmatch(p); m != nil {
		return model.ParsedItem{Name: strings.TrimSpace(m[1]), Qty: parseQty(m[2]), Unit: model.UnitGram}
	}
	if m := countLeadingRe.FindStringSubmatch(p); m != nil {
		return model.ParsedItem{Name: strings.TrimSpace(m[2]), Qty: parseQty(m[1]), Unit: model.UnitPiece}
	}
	return model.ParsedItem{Name: p, Qty: 1, Unit: model.UnitPiece}
}

func parseQty(s string) float64 {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 1
	}
	return float64(n)
}
