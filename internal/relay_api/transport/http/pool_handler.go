package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	poolapp "github.com/pawsline/relay/internal/numberpool/app"
	pooldomain "github.com/pawsline/relay/internal/numberpool/domain"
)

// NumberAllocator is the slice of the allocator the handler needs.
type NumberAllocator interface {
	Allocate(ctx context.Context, orgID, threadID, clientID uuid.UUID) (*poolapp.Allocation, error)
	Release(ctx context.Context, threadID uuid.UUID) error
}

// RotationSettingsManager is the slice of the settings service the handler
// needs.
type RotationSettingsManager interface {
	Get(ctx context.Context) (*pooldomain.RotationSettings, error)
	Update(ctx context.Context, params poolapp.UpdateSettingsParams) (*pooldomain.RotationSettings, error)
}

// PoolHandler serves number allocation and rotation settings.
type PoolHandler struct {
	allocator NumberAllocator
	settings  RotationSettingsManager
	logger    *slog.Logger
	validate  *validator.Validate
}

// NewPoolHandler creates a PoolHandler.
func NewPoolHandler(allocator NumberAllocator, settings RotationSettingsManager, logger *slog.Logger, validate *validator.Validate) *PoolHandler {
	return &PoolHandler{
		allocator: allocator,
		settings:  settings,
		logger:    logger.With("component", "pool_handler"),
		validate:  validate,
	}
}

// RegisterRoutes mounts the pool endpoints.
func (h *PoolHandler) RegisterRoutes(r chi.Router) {
	r.Post("/threads/{threadID}/number", h.AllocateNumber)
	r.Delete("/threads/{threadID}/number", h.ReleaseNumber)
	r.Get("/settings/rotation", h.GetSettings)
	r.Patch("/settings/rotation", h.UpdateSettings)
}

// AllocateNumber binds a pool number to the thread.
func (h *PoolHandler) AllocateNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	var reqDTO AllocateNumberRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	allocation, err := h.allocator.Allocate(ctx, uuid.MustParse(reqDTO.OrgID), threadID, uuid.MustParse(reqDTO.ClientID))
	if err != nil {
		h.logger.ErrorContext(ctx, "allocation failed", "thread_id", threadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, allocation)
}

// ReleaseNumber manually returns the thread's pool number to the pool.
func (h *PoolHandler) ReleaseNumber(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	threadID, err := uuid.Parse(chi.URLParam(r, "threadID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	if err := h.allocator.Release(ctx, threadID); err != nil {
		h.logger.ErrorContext(ctx, "release failed", "thread_id", threadID, "error", err)
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponseDTO{Status: "released"})
}

// GetSettings returns the current rotation settings snapshot.
func (h *PoolHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		respondWithDomainError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}

// UpdateSettings appends a new settings version.
func (h *PoolHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqDTO UpdateRotationSettingsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.StructCtx(ctx, reqDTO); err != nil {
		respondWithError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}

	params := poolapp.UpdateSettingsParams{
		StickyReuseDays:           reqDTO.StickyReuseDays,
		PostBookingGraceHours:     reqDTO.PostBookingGraceHours,
		InactivityReleaseDays:     reqDTO.InactivityReleaseDays,
		MaxPoolThreadLifetimeDays: reqDTO.MaxPoolThreadLifetimeDays,
		MinPoolReserve:            reqDTO.MinPoolReserve,
	}
	if reqDTO.PoolSelectionStrategy != nil {
		strategy := pooldomain.SelectionStrategy(*reqDTO.PoolSelectionStrategy)
		params.PoolSelectionStrategy = &strategy
	}

	settings, err := h.settings.Update(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "settings update failed", "error", err)
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, settings)
}
