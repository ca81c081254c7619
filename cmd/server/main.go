package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/nutriplan/api/internal/handler"
	inngestfn "github.com/nutriplan/api/internal/inngest"
	"github.com/nutriplan/api/internal/middleware"
	"github.com/nutriplan/api/internal/repository"
	"github.com/nutriplan/api/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	ctx := context.Background()

	db, err := repository.NewPool(ctx)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	cache, err := service.NewJSONCacheFromEnv()
	if err != nil {
		log.Printf("redis cache disabled: %v", err)
		cache = service.NoopJSONCache{}
	} else if err := cache.Ping(ctx); err != nil {
		log.Printf("redis ping failed, continuing without cache: %v", err)
		cache = service.NoopJSONCache{}
	}

	resend := service.NewResendClient()
	eventPublisher, err := service.NewEventPublisher()
	if err != nil {
		log.Fatalf("event publisher: %v", err)
	}
	cipher := service.NewSecretCipher()
	gemini := service.NewGeminiClientFromEnv()

	userRepo := repository.NewUserRepo(db)
	settingsRepo := repository.NewUserSettingsRepo(db)
	profileRepo := repository.NewProfileRepo(db)
	foodRepo := repository.NewFoodItemRepo(db)
	mealRepo := repository.NewMealLogRepo(db)
	waterRepo := repository.NewWaterLogRepo(db)
	weighInRepo := repository.NewWeighInRepo(db)
	planRepo := repository.NewWeeklyPlanRepo(db)
	rateLimitRepo := repository.NewRateLimitRepo(db)
	llmUsageRepo := repository.NewLLMUsageLogRepo(db)

	usage := service.NewLLMUsageLogger(llmUsageRepo)
	keys := service.NewGeminiKeyResolver(settingsRepo, cipher)
	catalog := service.NewCatalogCache(foodRepo, cache, service.CatalogCacheTTLFromEnv())
	nutrition := service.NewNutritionService(catalog, cache, service.NewGeminiVision(gemini), keys, usage)
	meals := service.NewMealService(nutrition, mealRepo, cache)
	planContext := service.NewPlanContextLoader(profileRepo, weighInRepo, mealRepo, waterRepo, cache)
	planGenerator := service.NewPlanGenerator(gemini, usage)
	plans := service.NewPlanService(planRepo, planContext, planGenerator, keys, eventPublisher)
	dashboard := service.NewDashboardBuilder(mealRepo, waterRepo, profileRepo, weighInRepo, planRepo)
	limiter := service.NewRateLimiter(rateLimitRepo)
	limits := service.RateLimitsFromEnv()

	internalH := handler.NewInternalHandler(userRepo)
	mealH := handler.NewMealHandler(meals, nutrition, mealRepo, limiter, limits.MealImage)
	trackingH := handler.NewTrackingHandler(waterRepo, weighInRepo, profileRepo, cache)
	foodH := handler.NewFoodHandler(catalog, foodRepo)
	planH := handler.NewPlanHandler(plans, limiter, limits.PlanGenerate, eventPublisher)
	dashboardH := handler.NewDashboardHandler(dashboard, cache)
	settingsH := handler.NewSettingsHandler(settingsRepo, cipher)
	llmUsageH := handler.NewLLMUsageHandler(llmUsageRepo)
	cacheStatsH := handler.NewCacheStatsHandler(cache)

	inngestHandler := inngestfn.NewHandler(inngestfn.Deps{
		Plans:      plans,
		PlanRepo:   planRepo,
		Catalog:    catalog,
		Settings:   settingsRepo,
		RateLimits: rateLimitRepo,
		Resend:     resend,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	r.Mount("/api/inngest", inngestHandler)

	r.Route("/api/internal", func(r chi.Router) {
		r.Use(middleware.InternalOnly)
		r.Post("/users/upsert", internalH.UpsertUser)
		r.Post("/foods/seed", foodH.Seed)
		r.Get("/cache-stats", cacheStatsH.Get)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth)

		r.Get("/dashboard", dashboardH.Get)
		r.Get("/foods", foodH.List)

		r.Route("/meals", func(r chi.Router) {
			r.Get("/", mealH.List)
			r.Post("/", mealH.Create)
			r.Post("/preview", mealH.Preview)
			r.Post("/image", mealH.CreateFromImage)
		})

		r.Get("/water", trackingH.ListWater)
		r.Post("/water", trackingH.AddWater)
		r.Get("/weight", trackingH.ListWeight)
		r.Post("/weight", trackingH.AddWeight)
		r.Get("/profile", trackingH.GetProfile)
		r.Put("/profile", trackingH.UpdateProfile)

		r.Route("/plans", func(r chi.Router) {
			r.Get("/current", planH.Current)
			r.Post("/generate", planH.Generate)
			r.Post("/regenerate", planH.Regenerate)
			r.Post("/generate-async", planH.GenerateAsync)
			r.Get("/{weekStart}", planH.ByWeek)
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", settingsH.Get)
			r.Put("/plan-email", settingsH.UpdatePlanEmail)
			r.Put("/gemini-key", settingsH.SetGeminiAPIKey)
			r.Delete("/gemini-key", settingsH.DeleteGeminiAPIKey)
		})

		r.Route("/llm-usage", func(r chi.Router) {
			r.Get("/", llmUsageH.List)
			r.Get("/summary", llmUsageH.DailySummary)
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("api listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal(err)
	}
}
