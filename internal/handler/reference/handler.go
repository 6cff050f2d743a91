package reference

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/healbuddy/backend/internal/model/language"
	"github.com/healbuddy/backend/internal/model/reference"
	"github.com/healbuddy/backend/pkg/utils"
)

// Handler serves the static emergency and facility directories.
type Handler struct{}

// New creates the reference handler.
func New() *Handler {
	return &Handler{}
}

// RegisterRoutes mounts the reference routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/reference/emergency-numbers", listOf(reference.EmergencyNumbers))
	r.Get("/reference/emergency-contacts", listOf(reference.QuickContacts))
	r.Get("/reference/first-aid", listOf(reference.FirstAidGuides))
	r.Get("/reference/states", listOf(reference.States))
	r.Get("/reference/languages", listOf(language.List))
	r.Get("/reference/navigation", listOf(reference.Navigation))
	r.Get("/reference/facilities", h.handleFacilities)
	r.Get("/reference/facilities/search", h.handleFacilitySearch)
	r.Get("/reference/tel/{number}", h.handleTel)
}

func listOf[T any](list func() []T) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, list())
	}
}

// handleFacilities lists facilities, optionally narrowed by ?type=.
func (h *Handler) handleFacilities(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	all := reference.Facilities()
	if kind == "" {
		utils.RespondJSON(w, http.StatusOK, all)
		return
	}

	out := make([]reference.Facility, 0, len(all))
	for _, f := range all {
		if strings.Contains(strings.ToLower(f.Type), kind) {
			out = append(out, f)
		}
	}
	utils.RespondJSON(w, http.StatusOK, out)
}

func (h *Handler) handleFacilitySearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"url":             reference.FacilitySearchURL(q.Get("type"), q.Get("location")),
		"nearestHospital": reference.NearestHospitalURL,
	})
}

func (h *Handler) handleTel(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(chi.URLParam(r, "number"))
	if number == "" || strings.Trim(number, "0123456789+-") != "" {
		utils.RespondError(w, http.StatusBadRequest, "invalid phone number")
		return
	}
	utils.RespondJSON(w, http.StatusOK, map[string]string{"telUri": reference.TelURI(number)})
}
