package handlers

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dbproxy/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/audit"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/auth"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/models"
	"github.com/ekaya-inc/ekaya-dbproxy/pkg/services"
)

// ProfilesResponse is the full profile state.
type ProfilesResponse struct {
	Profiles        []models.DatabaseProfile `json:"profiles"`
	ActiveProfileID string                   `json:"activeProfileId"`
	ActiveProfile   *models.DatabaseProfile  `json:"activeProfile"`
	HasProfiles     bool                     `json:"hasProfiles"`
}

// SetActiveProfileRequest for PUT /api/profiles/active.
type SetActiveProfileRequest struct {
	ID string `json:"id"`
}

// ProfilesHandler handles connection profile CRUD.
type ProfilesHandler struct {
	profileStore    services.ProfileStore
	databaseService services.DatabaseService
	auditor         *audit.SecurityAuditor
	logger          *zap.Logger
}

// NewProfilesHandler creates a new profiles handler. auditor may be nil.
func NewProfilesHandler(
	profileStore services.ProfileStore,
	databaseService services.DatabaseService,
	auditor *audit.SecurityAuditor,
	logger *zap.Logger,
) *ProfilesHandler {
	return &ProfilesHandler{
		profileStore:    profileStore,
		databaseService: databaseService,
		auditor:         auditor,
		logger:          logger,
	}
}

// RegisterRoutes registers the profiles handler's routes on the given mux.
func (h *ProfilesHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/profiles", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("POST /api/profiles", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("PUT /api/profiles/active", authMiddleware.RequireAuth(h.SetActive))
	mux.HandleFunc("PATCH /api/profiles/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/profiles/{id}", authMiddleware.RequireAuth(h.Delete))
	mux.HandleFunc("POST /api/profiles/{id}/test", authMiddleware.RequireAuth(h.Test))
}

func (h *ProfilesHandler) state() ProfilesResponse {
	profiles := h.profileStore.Profiles()
	return ProfilesResponse{
		Profiles:        profiles,
		ActiveProfileID: h.profileStore.ActiveProfileID(),
		ActiveProfile:   h.profileStore.ActiveProfile(),
		HasProfiles:     len(profiles) > 0,
	}
}

// List handles GET /api/profiles
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	if err := h.profileStore.Refresh(r.Context()); err != nil {
		h.writeStoreError(w, "Failed to load profiles", err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.state()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/profiles
func (h *ProfilesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.NewProfile
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "Profile name is required")
		return
	}
	if req.DatabaseURL == "" {
		h.writeError(w, http.StatusBadRequest, "missing_database_url", "Database URL is required")
		return
	}

	profile, err := h.profileStore.AddProfile(r.Context(), req)
	if err != nil {
		h.writeStoreError(w, "Failed to save profile", err)
		return
	}
	h.auditor.LogProfileChange(r.Context(), audit.ProfileDetails{Action: "create", ProfileID: profile.ID, Name: profile.Name}, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: profile}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/profiles/{id}
func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req models.ProfileUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	if req.Name != nil && *req.Name == "" {
		h.writeError(w, http.StatusBadRequest, "missing_name", "Profile name is required")
		return
	}
	if req.DatabaseURL != nil && *req.DatabaseURL == "" {
		h.writeError(w, http.StatusBadRequest, "missing_database_url", "Database URL is required")
		return
	}

	profile, err := h.profileStore.UpdateProfile(r.Context(), id, req)
	if err != nil {
		h.writeStoreError(w, "Failed to update profile", err)
		return
	}
	h.auditor.LogProfileChange(r.Context(), audit.ProfileDetails{Action: "update", ProfileID: profile.ID, Name: profile.Name}, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: profile}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/profiles/{id}
func (h *ProfilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.profileStore.DeleteProfile(r.Context(), id); err != nil {
		h.writeStoreError(w, "Failed to delete profile", err)
		return
	}
	h.auditor.LogProfileChange(r.Context(), audit.ProfileDetails{Action: "delete", ProfileID: id}, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.state()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SetActive handles PUT /api/profiles/active
func (h *ProfilesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	var req SetActiveProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "missing_id", "Profile id is required")
		return
	}

	if err := h.profileStore.SetActiveProfile(r.Context(), req.ID); err != nil {
		h.writeStoreError(w, "Failed to set active profile", err)
		return
	}
	h.auditor.LogProfileChange(r.Context(), audit.ProfileDetails{Action: "activate", ProfileID: req.ID}, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.state()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Test handles POST /api/profiles/{id}/test
// Tests the profile's connection and records the outcome on the profile.
func (h *ProfilesHandler) Test(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.profileStore.Refresh(r.Context()); err != nil {
		h.writeStoreError(w, "Failed to load profiles", err)
		return
	}
	profile, err := h.profileStore.Profile(id)
	if err != nil {
		h.writeStoreError(w, "Failed to load profile", err)
		return
	}

	result, err := h.databaseService.TestConnection(r.Context(), profile.DatabaseURL)
	if err != nil {
		status, code, message := classifyError(err)
		h.writeError(w, status, code, message)
		return
	}

	if _, err := h.profileStore.RecordTestResult(r.Context(), id, result.Success, time.Now().UTC()); err != nil {
		// The result is still worth returning; only the bookkeeping failed.
		h.logger.Warn("Failed to record connection test result", zap.String("id", id), zap.Error(err))
	}
	h.auditor.LogConnectionTest(r.Context(), result.Type, profile.DatabaseURL, result.Success, r.RemoteAddr)

	if err := WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *ProfilesHandler) writeStoreError(w http.ResponseWriter, context string, err error) {
	if errors.Is(err, apperrors.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "not_found", "Profile not found")
		return
	}
	h.logger.Error(context, zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "internal_error", context)
}

func (h *ProfilesHandler) writeError(w http.ResponseWriter, status int, code, message string) {
	if err := ErrorResponse(w, status, code, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
