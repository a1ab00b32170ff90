// Package api wires the HTTP surface: routing, middleware and the
// operational endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/openlmis/buq/internal/api/handlers"
	"github.com/openlmis/buq/internal/api/middleware"
	"github.com/openlmis/buq/internal/health"
	"github.com/openlmis/buq/internal/observability"
	"github.com/openlmis/buq/internal/security"
	"github.com/openlmis/buq/internal/service"
)

type Router struct {
	remarkHandler *handlers.RemarkHandler
	buqHandler    *handlers.BottomUpQuantificationHandler
	healthChecker *health.Checker
	rateLimiter   *security.RateLimiter
	obs           *observability.Manager
	timeout       time.Duration
}

func NewRouter(
	remarkService *service.RemarkService,
	buqService *service.BottomUpQuantificationService,
	healthChecker *health.Checker,
	rateLimiter *security.RateLimiter,
	obs *observability.Manager,
	timeout time.Duration,
) *Router {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Router{
		remarkHandler: handlers.NewRemarkHandler(remarkService),
		buqHandler:    handlers.NewBottomUpQuantificationHandler(buqService),
		healthChecker: healthChecker,
		rateLimiter:   rateLimiter,
		obs:           obs,
		timeout:       timeout,
	}
}

func (r *Router) SetupRoutes() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.Logger(r.obs.Logger()))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Metrics(r.obs.Metrics()))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Author-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Use(chimiddleware.Timeout(r.timeout))
	if r.rateLimiter != nil {
		router.Use(r.rateLimiter.Middleware())
	}

	router.Get("/health", r.healthCheck)
	router.Get("/ready", r.readinessCheck)
	router.Method(http.MethodGet, "/metrics", r.obs.Metrics().Handler())

	router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	router.Route("/api/v1", func(apiRouter chi.Router) {
		apiRouter.Route("/remarks", func(remarkRouter chi.Router) {
			remarkRouter.Get("/", r.remarkHandler.Search)
			remarkRouter.Post("/", r.remarkHandler.Create)

			remarkRouter.Route("/{id}", func(idRouter chi.Router) {
				idRouter.Get("/", r.remarkHandler.Get)
				idRouter.Put("/", r.remarkHandler.Update)
				idRouter.Delete("/", r.remarkHandler.Delete)
			})
		})

		apiRouter.Route("/bottomUpQuantifications", func(buqRouter chi.Router) {
			buqRouter.Get("/", r.buqHandler.Search)
			buqRouter.Post("/prepare", r.buqHandler.Prepare)

			buqRouter.Route("/{id}", func(idRouter chi.Router) {
				idRouter.Get("/", r.buqHandler.Get)
				idRouter.Put("/", r.buqHandler.Save)
				idRouter.Delete("/", r.buqHandler.Delete)

				idRouter.Post("/submit", r.buqHandler.Submit)
				idRouter.Post("/authorize", r.buqHandler.Authorize)
				idRouter.Post("/approve", r.buqHandler.Approve)
				idRouter.Post("/reject", r.buqHandler.Reject)

				idRouter.Get("/download", r.buqHandler.Download)
				idRouter.Get("/auditLog", r.buqHandler.AuditLog)
			})
		})
	})

	return router
}

// healthCheck godoc
// @Summary Health check
// @Description Returns the health of the service and its dependencies
// @Tags health
// @Produce json
// @Success 200 {object} health.SystemHealth
// @Failure 503 {object} health.SystemHealth
// @Router /health [get]
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	systemHealth := r.healthChecker.Check(req.Context())

	statusCode := http.StatusOK
	if systemHealth.Status == health.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(systemHealth)
}

// readinessCheck godoc
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} health.SystemHealth
// @Router /ready [get]
func (r *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	systemHealth := r.healthChecker.LastResults()
	if systemHealth.Status == health.StatusUnhealthy {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(systemHealth)
		return
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().UTC(),
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
