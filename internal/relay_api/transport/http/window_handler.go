package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	routingapp "github.com/pawsline/relay/internal/routing/app"
	routingdomain "github.com/pawsline/relay/internal/routing/domain"
	routingrepo "github.com/pawsline/relay/internal/routing/repository"
)

// WindowManager is the slice of the window service the handler needs.
type WindowManager interface {
	Create(ctx context.Context, w *routingdomain.AssignmentWindow) (*routingdomain.AssignmentWindow, error)
	Get(ctx context.Context, id uuid.UUID) (*routingdomain.AssignmentWindow, error)
	Update(ctx context.Context, id uuid.UUID, patch routingrepo.WindowUpdate) (*routingdomain.AssignmentWindow, error)
	Delete(ctx context.Context, id uuid.UUID) (*routingapp.DeleteResult, error)
	ListConflicts(ctx context.Context, orgID uuid.UUID) ([]routingdomain.WindowConflict, error)
}

// OverrideManager is the slice of the override service the handler needs.
type OverrideManager interface {
	Create(ctx context.Context, params routingapp.CreateOverrideParams) (*routingdomain.RoutingOverride, error)
	Remove(ctx context.Context, id uuid.UUID) error
}

// WindowHandler serves window CRUD, conflict listing, and overrides.
type WindowHandler struct {
	windows   WindowManager
	overrides OverrideManager
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewWindowHandler creates a WindowHandler.
func NewWindowHandler(windows WindowManager, overrides OverrideManager, logger *slog.Logger, validate *validator.Validate) *WindowHandler {
	return &WindowHandler{
		windows:   windows,
		overrides: overrides,
		logger:    logger.With("component", "window_handler"),
		validate:  validate,
	}
}

// RegisterRoutes mounts the window and override endpoints.
func (h *WindowHandler) RegisterRoutes(r chi.Router) {
	r.Post("/windows", h.CreateWindow)
	r.Get("/windows/{windowID}", h.GetWindow)
	r.Patch("/windows/{windowID}", h.UpdateWindow)
	r.Delete("/windows/{windowID}", h.DeleteWindow)
	r.Get("/orgs/{orgID}/conflicts", h.ListConflicts)
	r.Post("/threads/{threadID}/overrides", h.CreateOverride)
	r.Delete("/overrides/{overrideID}", h.RemoveOverride)
}

// CreateWindow creates an assignment window.
func (h *WindowHandler) CreateWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO CreateWindowRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	window := &routingdomain.AssignmentWindow{
		OrgID:      uuid.MustParse(reqDTO.OrgID),
		ThreadID:   uuid.MustParse(reqDTO.ThreadID),
		SitterID:   uuid.MustParse(reqDTO.SitterID),
		StartAt:    reqDTO.StartAt.UTC(),
		EndAt:      reqDTO.EndAt.UTC(),
		BookingRef: reqDTO.BookingRef,
	}

	created, err := h.windows.Create(ctx, window)
	if err != nil {
		h.logger.ErrorContext(ctx, "create window failed", "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// GetWindow returns one window.
func (h *WindowHandler) GetWindow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "windowID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid window id")
		return
	}
	window, err := h.windows.Get(r.Context(), id)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, window)
}

// UpdateWindow partially updates a window.
func (h *WindowHandler) UpdateWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "windowID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid window id")
		return
	}

	var reqDTO UpdateWindowRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	patch := routingrepo.WindowUpdate{
		StartAt:    reqDTO.StartAt,
		EndAt:      reqDTO.EndAt,
		BookingRef: reqDTO.BookingRef,
	}
	if reqDTO.SitterID != nil {
		sitterID := uuid.MustParse(*reqDTO.SitterID)
		patch.SitterID = &sitterID
	}

	updated, err := h.windows.Update(ctx, id, patch)
	if err != nil {
		h.logger.ErrorContext(ctx, "update window failed", "window_id", id, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

// DeleteWindow deletes a window and reports whether it was active, so the
// caller can warn staff that live routing changed.
func (h *WindowHandler) DeleteWindow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "windowID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid window id")
		return
	}

	result, err := h.windows.Delete(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "delete window failed", "window_id", id, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// ListConflicts lists overlapping window pairs for an org.
func (h *WindowHandler) ListConflicts(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid org id")
		return
	}

	conflicts, err := h.windows.ListConflicts(r.Context(), orgID)
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"conflicts": conflicts})
}

// CreateOverride creates a manual routing override on a thread.
func (h *WindowHandler) CreateOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	var reqDTO CreateOverrideRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	params := routingapp.CreateOverrideParams{
		OrgID:           uuid.MustParse(reqDTO.OrgID),
		ThreadID:        threadID,
		Target:          routingdomain.RouteTarget(reqDTO.Target),
		DurationHours:   reqDTO.DurationHours,
		Reason:          reqDTO.Reason,
		CreatedByUserID: uuid.MustParse(reqDTO.CreatedByUserID),
	}
	if reqDTO.TargetID != nil {
		targetID := uuid.MustParse(*reqDTO.TargetID)
		params.TargetID = &targetID
	}

	override, err := h.overrides.Create(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "create override failed", "thread_id", threadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, override)
}

// RemoveOverride soft-removes an override.
func (h *WindowHandler) RemoveOverride(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "overrideID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid override id")
		return
	}

	if err := h.overrides.Remove(r.Context(), id); err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponseDTO{Status: "removed"})
}
