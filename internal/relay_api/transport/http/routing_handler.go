package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	routingdomain "github.com/pawsline/relay/internal/routing/domain"
)

// RoutingResolver is the slice of the routing service the handler needs.
type RoutingResolver interface {
	Resolve(ctx context.Context, threadID uuid.UUID, at *time.Time, direction routingdomain.Direction) (*routingdomain.RoutingDecision, error)
	Simulate(ctx context.Context, threadID uuid.UUID, at time.Time, direction routingdomain.Direction) (*routingdomain.RoutingDecision, error)
	History(ctx context.Context, threadID uuid.UUID, limit int) ([]routingdomain.RoutingDecision, error)
}

// RoutingHandler serves resolution, simulation, and decision history.
type RoutingHandler struct {
	routing  RoutingResolver
	logger   *slog.Logger
	validate *validator.Validate
}

// NewRoutingHandler creates a RoutingHandler.
func NewRoutingHandler(routing RoutingResolver, logger *slog.Logger, validate *validator.Validate) *RoutingHandler {
	return &RoutingHandler{
		routing:  routing,
		logger:   logger.With("component", "routing_handler"),
		validate: validate,
	}
}

// RegisterRoutes mounts the routing endpoints.
func (h *RoutingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/threads/{threadID}/routing/resolve", h.Resolve)
	r.Post("/threads/{threadID}/routing/simulate", h.Simulate)
	r.Get("/threads/{threadID}/routing/history", h.History)
}

func (h *RoutingHandler) decodeResolveRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, *ResolveRequestDTO, bool) {
	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid thread id")
		return uuid.Nil, nil, false
	}

	var reqDTO ResolveRequestDTO
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return uuid.Nil, nil, false
		}
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(r.Context(), reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return uuid.Nil, nil, false
	}
	return threadID, &reqDTO, true
}

// Resolve computes and logs the routing decision for a thread.
func (h *RoutingHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID, reqDTO, ok := h.decodeResolveRequest(w, r)
	if !ok {
		return
	}

	decision, err := h.routing.Resolve(ctx, threadID, reqDTO.Timestamp, routingdomain.Direction(reqDTO.Direction))
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve failed", "thread_id", threadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, decision)
}

// Simulate evaluates a thread at a timestamp without logging the decision.
func (h *RoutingHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID, reqDTO, ok := h.decodeResolveRequest(w, r)
	if !ok {
		return
	}
	if reqDTO.Timestamp == nil {
		respondWithJSON(w, http.StatusBadRequest, ErrorResponseDTO{Error: "required", Field: "timestamp"})
		return
	}

	decision, err := h.routing.Simulate(ctx, threadID, *reqDTO.Timestamp, routingdomain.Direction(reqDTO.Direction))
	if err != nil {
		h.logger.ErrorContext(ctx, "simulate failed", "thread_id", threadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, decision)
}

// History lists logged decisions for a thread, newest first.
func (h *RoutingHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	decisions, err := h.routing.History(ctx, threadID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "history failed", "thread_id", threadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"decisions": decisions})
}
