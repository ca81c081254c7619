package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nutriplan/api/internal/model"
)

const resendEmailsURL = "https://api.resend.com/emails"

type ResendClient struct {
	apiKey   string
	from     string
	fromName string
	endpoint string
	http     *http.Client
}

func NewResendClient() *ResendClient {
	return &ResendClient{
		apiKey:   os.Getenv("RESEND_API_KEY"),
		from:     os.Getenv("RESEND_FROM_EMAIL"),
		fromName: os.Getenv("RESEND_FROM_NAME"),
		endpoint: resendEmailsURL,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *ResendClient) Enabled() bool {
	return r != nil && r.apiKey != "" && r.from != ""
}

func (r *ResendClient) SendWeeklyPlan(ctx context.Context, to string, plan *model.WeeklyPlan) error {
	if !r.Enabled() {
		log.Printf("resend disabled (missing RESEND_API_KEY or RESEND_FROM_EMAIL), skip plan email to %s", to)
		return nil
	}
	body, err := json.Marshal(map[string]any{
		"from":    r.formattedFrom(),
		"to":      []string{to},
		"subject": fmt.Sprintf("Your meal plan for the week of %s", plan.WeekStart),
		"html":    buildWeeklyPlanHTML(plan),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend: status %d", resp.StatusCode)
	}
	return nil
}

func (r *ResendClient) formattedFrom() string {
	if r == nil {
		return ""
	}
	addr := strings.TrimSpace(r.from)
	if addr == "" {
		return ""
	}
	if strings.Contains(addr, "<") && strings.Contains(addr, ">") {
		return addr
	}
	name := strings.TrimSpace(r.fromName)
	if name == "" {
		name = "NutriPlan"
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

func buildWeeklyPlanHTML(p *model.WeeklyPlan) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><body style="font-family:sans-serif;max-width:640px;margin:0 auto;padding:20px">`)
	sb.WriteString(fmt.Sprintf(`<h1 style="font-size:22px;border-bottom:2px solid #eee;padding-bottom:8px">Week of %s</h1>`, html.EscapeString(p.WeekStart)))
	if p.Notes != nil && strings.TrimSpace(*p.Notes) != "" {
		sb.WriteString(fmt.Sprintf(`<p style="color:#333;line-height:1.6">%s</p>`, html.EscapeString(*p.Notes)))
	}
	for _, d := range p.Days {
		sb.WriteString(`<div style="margin-bottom:18px;padding:12px 16px;border:1px solid #eee;border-radius:8px">`)
		sb.WriteString(fmt.Sprintf(`<h2 style="margin:0 0 8px;font-size:16px">%s <span style="color:#888;font-weight:normal">%d kcal</span></h2>`,
			html.EscapeString(d.Date), d.TargetCalories))
		for _, m := range d.Meals {
			sb.WriteString(fmt.Sprintf(`<p style="margin:0 0 4px;color:#444"><strong>%s</strong> %d kcal · P %.1fg · C %.1fg · F %.1fg</p>`,
				html.EscapeString(m.Name), m.Calories, m.Protein, m.Carbs, m.Fat))
			if len(m.Items) > 0 {
				sb.WriteString(fmt.Sprintf(`<p style="margin:0 0 8px;font-size:13px;color:#666">%s</p>`, html.EscapeString(strings.Join(m.Items, ", "))))
			}
		}
		sb.WriteString(`</div>`)
	}
	sb.WriteString(fmt.Sprintf(`<p style="font-size:12px;color:#888">Generated by %s</p>`, html.EscapeString(p.ModelUsed)))
	sb.WriteString(`</body></html>`)
	return sb.String()
}
