package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultGeminiModel = "gemini-2.0-flash"

type LLMUsage struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	PricingSource    string  `json:"pricing_source,omitempty"`
	InputTokens      int     `json:"input_tokens"`
	OutputTokens     int     `json:"output_tokens"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

type GeminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *GeminiInlineData `json:"inlineData,omitempty"`
}

type GeminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

func GeminiImagePart(image []byte, mimeType string) GeminiPart {
	return GeminiPart{InlineData: &GeminiInlineData{
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(image),
	}}
}

type GeminiResult struct {
	Text string
	LLM  *LLMUsage
}

// GenerativeModel is the text/vision completion call plan generation and
// meal-photo extraction depend on.
type GenerativeModel interface {
	Model() string
	GenerateContent(ctx context.Context, apiKey string, parts []GeminiPart, jsonOutput bool) (*GeminiResult, error)
}

type GeminiClient struct {
	baseURL string
	model   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewGeminiClientFromEnv() *GeminiClient {
	baseURL := strings.TrimRight(os.Getenv("GEMINI_API_BASE_URL"), "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = defaultGeminiModel
	}
	rps := 2.0
	if v, err := strconv.ParseFloat(os.Getenv("GEMINI_RPS"), 64); err == nil && v > 0 {
		rps = v
	}
	return &GeminiClient{
		baseURL: baseURL,
		model:   model,
		http:    &http.Client{Timeout: 90 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(rps), 4),
	}
}

func (c *GeminiClient) Model() string {
	if c == nil || c.model == "" {
		return defaultGeminiModel
	}
	return c.model
}

func (c *GeminiClient) GenerateContent(ctx context.Context, apiKey string, parts []GeminiPart, jsonOutput bool) (*GeminiResult, error) {
	if c == nil {
		return nil, fmt.Errorf("gemini client is nil")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("gemini throttle: %w", err)
		}
	}

	genCfg := map[string]any{"temperature": 0.6}
	if jsonOutput {
		genCfg["responseMimeType"] = "application/json"
	}
	b, err := json.Marshal(map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": parts},
		},
		"generationConfig": genCfg,
	})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.Model())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if len(body) > 0 {
			return nil, fmt.Errorf("gemini generateContent: status %d body=%s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("gemini generateContent: status %d", resp.StatusCode)
	}

	var decoded struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, err
	}
	if len(decoded.Candidates) == 0 {
		return nil, fmt.Errorf("gemini generateContent: no candidates")
	}
	var sb strings.Builder
	for _, p := range decoded.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini generateContent: empty response")
	}

	cost := EstimateGeminiCostUSD(c.Model(), decoded.UsageMetadata.PromptTokenCount, decoded.UsageMetadata.CandidatesTokenCount)
	return &GeminiResult{
		Text: text,
		LLM: &LLMUsage{
			Provider:         "google",
			Model:            c.Model(),
			PricingSource:    cost.PricingSource,
			InputTokens:      decoded.UsageMetadata.PromptTokenCount,
			OutputTokens:     decoded.UsageMetadata.CandidatesTokenCount,
			EstimatedCostUSD: cost.EstimatedCostUSD,
		},
	}, nil
}
