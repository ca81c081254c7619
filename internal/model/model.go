package model

import "time"

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserSettings struct {
	UserID            string    `json:"user_id"`
	GeminiAPIKeyLast4 *string   `json:"gemini_api_key_last4,omitempty"`
	HasGeminiAPIKey   bool      `json:"has_gemini_api_key"`
	PlanEmailEnabled  bool      `json:"plan_email_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type Profile struct {
	UserID    string    `json:"user_id"`
	HeightCm  *float64  `json:"height_cm"`
	UpdatedAt time.Time `json:"updated_at"`
}

const (
	UnitGram  = "g"
	UnitPiece = "piece"
)

// ParsedItem is one clause of a free-text meal description.
type ParsedItem struct {
	Name string  `json:"name"`
	Qty  float64 `json:"qty"`
	Unit string  `json:"unit"` // g | piece
}

// CatalogEntry is a food_items row. Macros are quoted per UnitBasis.
type CatalogEntry struct {
	Name      string  `json:"name"`
	UnitBasis string  `json:"unit_basis"` // per_100g | per_piece | per_100ml | ...
	Calories  float64 `json:"calories"`
	Protein   float64 `json:"protein"`
	Carbs     float64 `json:"carbs"`
	Fat       float64 `json:"fat"`
}

type Macro struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type ResolvedItem struct {
	Name               string  `json:"name"`
	Qty                float64 `json:"qty"`
	Unit               string  `json:"unit"`
	MatchedCatalogName *string `json:"matched"`
	Macros             Macro   `json:"macros"`
}

type MealResolution struct {
	Items []ResolvedItem `json:"items"`
	Total Macro          `json:"total"`
}

type ImageMealResolution struct {
	MealResolution
	RawText string `json:"raw_text"`
	Source  string `json:"source"`
	Notes   string `json:"notes,omitempty"`
}

const (
	MealTypeBreakfast = "BREAKFAST"
	MealTypeLunch     = "LUNCH"
	MealTypeDinner    = "DINNER"
	MealTypeSnack     = "SNACK"
)

type MealLog struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	MealType  string         `json:"meal_type"`
	At        time.Time      `json:"at"`
	RawText   string         `json:"raw_text"`
	Items     []ResolvedItem `json:"items"`
	Calories  int            `json:"calories"`
	Protein   float64        `json:"protein"`
	Carbs     float64        `json:"carbs"`
	Fat       float64        `json:"fat"`
	CreatedAt time.Time      `json:"created_at"`
}

type WaterLog struct {
	ID     string    `json:"id"`
	UserID string    `json:"user_id"`
	Ml     int       `json:"ml"`
	At     time.Time `json:"at"`
}

type WeighIn struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	WeightKg float64   `json:"weight_kg"`
	At       time.Time `json:"at"`
}

// PlanContext is the snapshot of recent history fed into plan generation.
type PlanContext struct {
	BMI           *float64 `json:"bmi"`
	HeightCm      *float64 `json:"height_cm"`
	WeightKg      *float64 `json:"weight_kg"`
	AvgCalories   float64  `json:"avg_calories"`
	AvgProtein    float64  `json:"avg_protein"`
	AvgCarbs      float64  `json:"avg_carbs"`
	AvgFat        float64  `json:"avg_fat"`
	AvgWaterMl    float64  `json:"avg_water_ml"`
	WaterTargetMl int      `json:"water_target_ml"`
	MealDays      int      `json:"meal_days"`
}

type PlanMeal struct {
	Name     string   `json:"name"`
	Calories int      `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Items    []string `json:"items"`
}

type DayPlan struct {
	Date           string     `json:"date"` // YYYY-MM-DD
	TargetCalories int        `json:"target_calories"`
	Meals          []PlanMeal `json:"meals"`
}

type WeeklyPlan struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	WeekStart string    `json:"week_start"` // YYYY-MM-DD, always a Monday
	ModelUsed string    `json:"model_used"`
	Notes     *string   `json:"notes,omitempty"`
	Days      []DayPlan `json:"days"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type DashboardToday struct {
	Date          string   `json:"date"`
	Greeting      string   `json:"greeting"`
	Totals        Macro    `json:"totals"`
	WaterLast24h  int      `json:"water_last_24h_ml"`
	WaterTargetMl int      `json:"water_target_ml"`
	BMI           *float64 `json:"bmi"`
	BMICategory   string   `json:"bmi_category"`
	HeightCm      *float64 `json:"height_cm"`
	WeightKg      *float64 `json:"weight_kg"`
	HasWeekPlan   bool     `json:"has_week_plan"`
}

type DailyMealTotal struct {
	Date     string  `json:"date"`
	Meals    int     `json:"meals"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

type DailyWaterTotal struct {
	Date string `json:"date"`
	Ml   int    `json:"ml"`
}

// RateLimitKey identifies one fixed-window counter row.
type RateLimitKey struct {
	UserID      *string
	IP          string
	Route       string
	WindowStart time.Time
}
