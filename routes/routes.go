package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/Dosada05/fishing-tournament/handlers"
	"github.com/Dosada05/fishing-tournament/middleware"
	"github.com/Dosada05/fishing-tournament/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Tournament   *handlers.TournamentHandler
	Layout       *handlers.LayoutHandler
	Registration *handlers.RegistrationHandler
	Catch        *handlers.CatchHandler
	Leaderboard  *handlers.LeaderboardHandler
	Health       *handlers.HealthHandler
}

type Options struct {
	JWTSecret      string
	AllowedOrigins []string
	Redis          *redis.Client
	RateLimit      middleware.RateLimitConfig
	// UploadDir и UploadURLPrefix задаются, если файлы хранятся локально.
	UploadDir       string
	UploadURLPrefix string
}

func SetupRoutes(router chi.Router, h Handlers, opts Options) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate([]byte(opts.JWTSecret))
	organizerOnly := middleware.Authorize(models.RoleOrganizer)
	userOnly := middleware.Authorize(models.RoleUser)
	rateLimited := middleware.RateLimit(opts.Redis, opts.RateLimit)

	router.Get("/healthz", h.Health.Healthz)

	if opts.UploadDir != "" && opts.UploadURLPrefix != "" {
		prefix := "/" + strings.Trim(opts.UploadURLPrefix, "/")
		fileServer := http.StripPrefix(prefix+"/", http.FileServer(http.Dir(opts.UploadDir)))
		router.Handle(prefix+"/*", fileServer)
	}

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Auth.Register)
		r.Post("/login", h.Auth.Login)
		r.With(authenticate).Get("/me", h.Auth.Me)
	})

	router.Route("/tournaments", func(r chi.Router) {
		// Публичные маршруты по ссылкам
		r.Group(func(r chi.Router) {
			r.Use(rateLimited)
			r.Get("/register/{link}", h.Tournament.RegistrationView)
			r.Post("/register/{link}/availability", h.Tournament.CheckAvailability)
			r.Get("/leaderboard/{link}", h.Leaderboard.Get)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(organizerOnly)

			r.Post("/", h.Tournament.Create)
			r.Get("/mine", h.Tournament.ListMine)
			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.Tournament.GetByID)
				r.Put("/", h.Tournament.Update)
				r.Delete("/", h.Tournament.Delete)
				r.Patch("/status", h.Tournament.UpdateStatus)
				r.Get("/layout", h.Tournament.Layout)
				r.Post("/ponds", h.Layout.CreatePond)
				r.Get("/ponds", h.Layout.ListPonds)
				r.Get("/registrations", h.Registration.ListByTournament)
				r.Get("/catches", h.Catch.ListByTournament)
			})
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(organizerOnly)

		r.Put("/ponds/{pondID}", h.Layout.UpdatePond)
		r.Delete("/ponds/{pondID}", h.Layout.DeletePond)
		r.Post("/ponds/{pondID}/zones", h.Layout.CreateZone)
		r.Get("/ponds/{pondID}/zones", h.Layout.ListZones)

		r.Put("/zones/{zoneID}", h.Layout.UpdateZone)
		r.Delete("/zones/{zoneID}", h.Layout.DeleteZone)
		r.Post("/zones/{zoneID}/areas", h.Layout.CreateArea)
		r.Get("/zones/{zoneID}/areas", h.Layout.ListAreas)

		r.Put("/areas/{areaID}", h.Layout.UpdateArea)
		r.Delete("/areas/{areaID}", h.Layout.DeleteArea)

		r.Patch("/registrations/{registrationID}/status", h.Registration.UpdateStatus)
		r.Patch("/catches/{catchID}/status", h.Catch.Review)
	})

	router.Group(func(r chi.Router) {
		r.Use(authenticate)
		r.Use(userOnly)

		r.Post("/registrations", h.Registration.Submit)
		r.Post("/registrations/draft", h.Registration.SaveDraft)
		r.Get("/registrations/draft", h.Registration.GetDraft)
		r.Get("/registrations/mine", h.Registration.ListMine)

		r.Post("/catches", h.Catch.Create)
		r.Get("/catches/mine", h.Catch.ListMine)
	})

	router.Get("/ws/leaderboard/{link}", h.Leaderboard.ServeWs)
}

// DefaultRateLimit строит настройки лимита по ёмкости корзины и интервалу пополнения.
func DefaultRateLimit(capacity int, refillInterval time.Duration) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Capacity:       capacity,
		RefillTokens:   1,
		RefillInterval: refillInterval,
		TTL:            10 * time.Minute,
		Prefix:         "rl:fishing",
	}
}
