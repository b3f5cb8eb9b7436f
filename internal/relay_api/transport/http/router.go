package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps collects the handler dependencies of the API surface.
type RouterDeps struct {
	Routing   RoutingResolver
	Windows   WindowManager
	Overrides OverrideManager
	Allocator NumberAllocator
	Settings  RotationSettingsManager
	Sender    MessageSender
	Bookings  BookingEventProcessor
	Inbound   InboundProcessor
	Logger    *slog.Logger
}

// NewRouter builds the chi router with all API, webhook, and operational
// endpoints mounted.
func NewRouter(deps RouterDeps) chi.Router {
	validate := validator.New()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(PrometheusMetricsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondWithJSON(w, http.StatusOK, StatusResponseDTO{Status: "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	routingHandler := NewRoutingHandler(deps.Routing, deps.Logger, validate)
	windowHandler := NewWindowHandler(deps.Windows, deps.Overrides, deps.Logger, validate)
	poolHandler := NewPoolHandler(deps.Allocator, deps.Settings, deps.Logger, validate)
	messageHandler := NewMessageHandler(deps.Sender, deps.Logger, validate)
	webhookHandler := NewWebhookHandler(deps.Bookings, deps.Inbound, deps.Logger, validate)

	r.Route("/api/v1", func(api chi.Router) {
		routingHandler.RegisterRoutes(api)
		windowHandler.RegisterRoutes(api)
		poolHandler.RegisterRoutes(api)
		messageHandler.RegisterRoutes(api)
	})
	webhookHandler.RegisterRoutes(r)

	return r
}
