package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nutriplan/api/internal/model"
)

type VisionResult struct {
	RawText string
	Items   []model.ParsedItem
	Source  string
	Notes   string
	LLM     *LLMUsage
}

// MealVision turns a meal photo into parsed items, or into raw text that
// still needs ParseItemsFromText.
type MealVision interface {
	ExtractItems(ctx context.Context, apiKey string, image []byte, mimeType string) (*VisionResult, error)
}

const visionPrompt = `You are a nutrition extractor for Indian meals.
Return STRICT JSON ONLY in this exact shape (no prose, no markdown):
{"items":[{"name":"Chapati","qty":2,"unit":"piece"},{"name":"Dal","qty":150,"unit":"g"}],"notes":"optional"}

Rules:
- "unit" must be exactly "g" or "piece".
- Whole items like roti/chapati/idli/dosa/egg -> "piece".
- Curries/rice/dal/yogurt -> estimate grams ("g") if visible.
- If unsure, set qty=1 and unit="piece".
- Output must be valid JSON and nothing else.`

type GeminiVision struct {
	model GenerativeModel
}

func NewGeminiVision(m GenerativeModel) *GeminiVision {
	return &GeminiVision{model: m}
}

func (v *GeminiVision) ExtractItems(ctx context.Context, apiKey string, image []byte, mimeType string) (*VisionResult, error) {
	if v == nil || v.model == nil || apiKey == "" {
		return nil, ErrVisionUnavailable
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	res, err := v.model.GenerateContent(ctx, apiKey, []GeminiPart{
		{Text: visionPrompt},
		GeminiImagePart(image, mimeType),
	}, true)
	if err != nil {
		return nil, fmt.Errorf("vision extract: %w", err)
	}
	items, notes := decodeVisionItems(res.Text)
	return &VisionResult{RawText: res.Text, Items: items, Source: "gemini", Notes: notes, LLM: res.LLM}, nil
}

// decodeVisionItems reads {"items":[...]} from the model output. It returns
// nil items when nothing usable was found so the caller can fall back to the
// text parser.
func decodeVisionItems(text string) ([]model.ParsedItem, string) {
	var payload struct {
		Items []struct {
			Name string  `json:"name"`
			Qty  float64 `json:"qty"`
			Unit string  `json:"unit"`
		} `json:"items"`
		Notes string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(text), &payload); err != nil || payload.Items == nil {
		block, ok := firstJSONObject(text)
		if !ok {
			return nil, ""
		}
		if err := json.Unmarshal([]byte(block), &payload); err != nil || payload.Items == nil {
			return nil, ""
		}
	}
	out := make([]model.ParsedItem, 0, len(payload.Items))
	for _, it := range payload.Items {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			continue
		}
		unit := strings.ToLower(strings.TrimSpace(it.Unit))
		if unit != model.UnitGram {
			unit = model.UnitPiece
		}
		qty := it.Qty
		if qty <= 0 {
			qty = 1
		}
		out = append(out, model.ParsedItem{Name: name, Qty: qty, Unit: unit})
	}
	return out, strings.TrimSpace(payload.Notes)
}
