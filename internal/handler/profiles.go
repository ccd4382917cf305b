package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/crosscall-ai/translation-relay/internal/middleware"
	"github.com/crosscall-ai/translation-relay/internal/model"
	"github.com/crosscall-ai/translation-relay/internal/store"
	"github.com/crosscall-ai/translation-relay/pkg/logger"
)

// ProfileHandler handles caller profile endpoints.
type ProfileHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(st store.Store, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{
		store:  st,
		logger: log,
	}
}

// List handles GET /api/v1/profiles
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	profiles, err := h.store.ListProfiles(ctx)
	if err != nil {
		h.logger.Error("failed to list profiles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}

	writeJSON(w, http.StatusOK, model.ListProfilesResponse{
		Profiles: profiles,
		Total:    len(profiles),
	})
}

// Get handles GET /api/v1/profiles/:phoneNumber
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	phoneNumber := chi.URLParam(r, "phoneNumber")

	if err := middleware.ValidatePhoneNumber(phoneNumber); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.store.GetProfile(ctx, phoneNumber)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error("failed to get profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Upsert handles PUT /api/v1/profiles/:phoneNumber
func (h *ProfileHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	phoneNumber := chi.URLParam(r, "phoneNumber")

	if err := middleware.ValidatePhoneNumber(phoneNumber); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateDisplayName(req.DisplayName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Caller.LanguageCode != "" {
		if err := middleware.ValidateLanguageCode(req.Caller.LanguageCode); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.CalleeDetails {
		if !req.UseQueue {
			if err := middleware.ValidatePhoneNumber(req.CalleeNumber); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if req.Callee.LanguageCode != "" {
			if err := middleware.ValidateLanguageCode(req.Callee.LanguageCode); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
	}

	now := time.Now().UTC()
	profile := &model.Profile{
		PhoneNumber:   phoneNumber,
		DisplayName:   req.DisplayName,
		Caller:        req.Caller,
		CalleeDetails: req.CalleeDetails,
		CalleeNumber:  req.CalleeNumber,
		Callee:        req.Callee,
		UseQueue:      req.UseQueue,
		QueueNumber:   req.QueueNumber,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if existing, err := h.store.GetProfile(ctx, phoneNumber); err == nil {
		profile.CreatedAt = existing.CreatedAt
	}

	if err := h.store.PutProfile(ctx, profile); err != nil {
		h.logger.Error("failed to save profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// Delete handles DELETE /api/v1/profiles/:phoneNumber
func (h *ProfileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	phoneNumber := chi.URLParam(r, "phoneNumber")

	if err := middleware.ValidatePhoneNumber(phoneNumber); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteProfile(ctx, phoneNumber); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "profile not found")
			return
		}
		h.logger.Error("failed to delete profile", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
