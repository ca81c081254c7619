package service

import (
	"strings"

	"github.com/nutriplan/api/internal/model"
)

// foodSynonyms maps colloquial names to canonical food_items names.
var foodSynonyms = map[string]string{
	"chapati":        "Chapati",
	"chapathi":       "Chapati",
	"roti":           "Chapati",
	"phulka":         "Chapati",
	"rice":           "Boiled Rice",
	"boiled rice":    "Boiled Rice",
	"dal":            "Dal (Lentil Curry)",
	"daal":           "Dal (Lentil Curry)",
	"dhal":           "Dal (Lentil Curry)",
	"lentil":         "Dal (Lentil Curry)",
	"lentils":        "Dal (Lentil Curry)",
	"curd":           "Curd (Dahi)",
	"dahi":           "Curd (Dahi)",
	"yogurt":         "Curd (Dahi)",
	"yoghurt":        "Curd (Dahi)",
	"idli":           "Idli",
	"idly":           "Idli",
	"dosa":           "Dosa",
	"prawn":          "Prawns (cooked)",
	"prawns":         "Prawns (cooked)",
	"shrimp":         "Prawns (cooked)",
	"chicken":        "Chicken Breast (cooked)",
	"chicken breast": "Chicken Breast (cooked)",
	"mutton":         "Mutton (cooked)",
	"egg":            "Egg",
	"eggs":           "Egg",
}

func normalizeFoodName(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if space && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			space = false
			sb.WriteRune(r)
			continue
		}
		space = true
	}
	return sb.String()
}

// MatchFood resolves a raw item name against the catalog. The first rule that
// hits wins: synonym, exact name, containment either way, first word.
// Ties go to the earliest entry in catalog order.
func MatchFood(name string, catalog []model.CatalogEntry) (*model.CatalogEntry, bool) {
	n := normalizeFoodName(name)
	if n == "" || len(catalog) == 0 {
		return nil, false
	}

	if target, ok := foodSynonyms[n]; ok {
		for i := range catalog {
			if catalog[i].Name == target {
				return &catalog[i], true
			}
		}
	}

	for i := range catalog {
		if strings.EqualFold(strings.TrimSpace(catalog[i].Name), strings.TrimSpace(name)) ||
			normalizeFoodName(catalog[i].Name) == n {
			return &catalog[i], true
		}
	}

	for i := range catalog {
		c := normalizeFoodName(catalog[i].Name)
		if c == "" {
			continue
		}
		if strings.Contains(n, c) || strings.Contains(c, n) {
			return &catalog[i], true
		}
	}

	first := strings.Fields(n)[0]
	for i := range catalog {
		if strings.Contains(normalizeFoodName(catalog[i].Name), first) {
			return &catalog[i], true
		}
	}
	return nil, false
}
