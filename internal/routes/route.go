package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"aquavision/internal/config"
	"aquavision/internal/handlers"
	"aquavision/internal/logger"
	"aquavision/internal/mapview"
	mdlwr "aquavision/internal/middleware"
	"aquavision/internal/services"
)

// Services is everything the router mounts.
type Services struct {
	Turbidity  *services.TurbidityService
	Potability *services.PotabilityService
	Detection  *services.DetectionService
	Runs       *services.RunService
	Pages      *mapview.Pages

	// nil when operator auth is disabled
	Auth     *services.AuthService
	Verifier mdlwr.TokenVerifier
}

func NewRouter(svc Services, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	turbidityHandler := handlers.NewTurbidityHandler(svc.Turbidity, logr.Logger)
	potabilityHandler := handlers.NewPotabilityHandler(svc.Potability, logr.Logger)
	detectionHandler := handlers.NewDetectionHandler(svc.Detection, cfg.MaxUploadBytes, logr.Logger)
	runHandler := handlers.NewRunHandler(svc.Runs, logr.Logger)
	pageHandler := handlers.NewPageHandler(svc.Pages, svc.Turbidity, cfg.MaxUploadBytes, logr.Logger)

	// protected is a no-op unless operator auth is configured
	protected := func(next http.Handler) http.Handler { return next }
	if svc.Verifier != nil {
		protected = mdlwr.NewAuthMiddleware(svc.Verifier, logr.Logger).JWTAuth
	} else if cfg.AuthEnabled {
		logr.Warn("AUTH_ENABLED is set but no token verifier was configured; analysis routes are open")
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})

	r.Get("/", pageHandler.Home)
	r.Get("/turbidity", pageHandler.Turbidity)
	r.Get("/potability", pageHandler.Potability)
	r.Get("/detect", pageHandler.Detect)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/map", turbidityHandler.DefaultMap)
		r.Get("/legends/{file}", turbidityHandler.Legend)

		if svc.Auth != nil {
			authHandler := handlers.NewAuthHandler(svc.Auth, logr.Logger)
			r.Route("/auth", func(r chi.Router) {
				r.Post("/login", authHandler.LoginLocal)
				r.Post("/ldap", authHandler.LoginLDAP)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(protected)

			r.Route("/turbidity", func(r chi.Router) {
				r.Post("/analyze", turbidityHandler.AnalyzeDrawings)
				r.Get("/analyze", turbidityHandler.AnalyzeBBox)
			})

			r.Route("/potability", func(r chi.Router) {
				r.Post("/predict", potabilityHandler.Predict)
				r.Get("/model", potabilityHandler.Model)
			})

			r.Post("/detections", detectionHandler.Detect)

			r.Route("/runs", func(r chi.Router) {
				r.Get("/", runHandler.List)
				r.Get("/{id}", runHandler.Get)
			})
		})
	})

	logr.Debug("routes mounted", zap.Bool("auth", svc.Verifier != nil))
	return r
}
