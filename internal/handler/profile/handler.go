package profile

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/healbuddy/backend/internal/middleware"
	"github.com/healbuddy/backend/internal/model/profile"
	"github.com/healbuddy/backend/pkg/utils"
)

// Handler serves the signed-in user's health profile.
type Handler struct {
	profiles profile.Store
}

// New creates the profile handler.
func New(profiles profile.Store) *Handler {
	return &Handler{profiles: profiles}
}

// RegisterRoutes mounts the profile routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/profile", h.handleGet)
	r.Put("/profile", h.handleUpdate)
	r.Post("/profile/conditions", h.handleAddCondition)
	r.Delete("/profile/conditions/{condition}", h.handleRemoveCondition)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	p, err := h.read(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var update profile.Update
	if err := utils.DecodeJSON(w, r, &update); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	h.apply(w, r, userID, update)
}

func (h *Handler) handleAddCondition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var payload struct {
		Condition string `json:"condition"`
	}
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	current, err := h.read(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	conditions := profile.AddCondition(profile.Conditions(current.MedicalConditions), payload.Condition)
	h.apply(w, r, userID, profile.Update{MedicalConditions: &conditions})
}

func (h *Handler) handleRemoveCondition(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	current, err := h.read(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	conditions := profile.RemoveCondition(current.MedicalConditions, chi.URLParam(r, "condition"))
	h.apply(w, r, userID, profile.Update{MedicalConditions: &conditions})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request, userID string, update profile.Update) {
	if err := update.Validate(); err != nil {
		respondStoreError(w, err)
		return
	}
	if err := h.profiles.Update(r.Context(), userID, update); err != nil {
		respondStoreError(w, err)
		return
	}

	p, err := h.read(r.Context(), userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, p)
}

// read returns the stored profile, or the defaults for a user who has never
// saved one.
func (h *Handler) read(ctx context.Context, userID string) (profile.Profile, error) {
	p, err := h.profiles.Read(ctx, userID)
	if errors.Is(err, profile.ErrNotFound) {
		return profile.Profile{UserID: userID, PreferredLanguage: "english", MedicalConditions: []string{}}, nil
	}
	if err != nil {
		return profile.Profile{}, err
	}
	p.MedicalConditions = profile.Conditions(p.MedicalConditions)
	return p, nil
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.UserIDFrom(r.Context())
	if userID == "" {
		utils.RespondError(w, http.StatusUnauthorized, "sign in to manage your profile")
		return "", false
	}
	return userID, true
}

func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, profile.ErrInvalid) {
		utils.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	log.Printf("[profile] store error: %v", err)
	utils.RespondError(w, http.StatusInternalServerError, "could not save profile")
}
