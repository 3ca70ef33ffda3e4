package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	counter "fleet-maintenance/internal/counter/domain"
	fleet "fleet-maintenance/internal/fleet/domain"
	maintapp "fleet-maintenance/internal/maintenance/application"
	maintenance "fleet-maintenance/internal/maintenance/domain"
	"fleet-maintenance/internal/scheduler"
)

const timeLayout = time.RFC3339

// Handler provides maintenance HTTP endpoints: reminders, reminder
// settings, service visits and on-demand checks.
type Handler struct {
	reminders *maintapp.ReminderService
	settings  *maintapp.SettingsService
	visits    *maintapp.VisitService
	sweeper   *scheduler.Sweeper
}

// NewHandler constructs a handler.
func NewHandler(reminders *maintapp.ReminderService, settings *maintapp.SettingsService, visits *maintapp.VisitService, sweeper *scheduler.Sweeper) (*Handler, error) {
	if reminders == nil || settings == nil || visits == nil {
		return nil, errors.New("maintenance handler: nil service")
	}
	return &Handler{reminders: reminders, settings: settings, visits: visits, sweeper: sweeper}, nil
}

// ServeHTTP handles /api/v1/maintenance/ subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/maintenance/")
	if path == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch parts[0] {
	case "reminders":
		h.serveReminders(w, r, parts[1:])
	case "settings":
		h.serveSettings(w, r, parts[1:])
	case "visits":
		h.serveVisits(w, r, parts[1:])
	case "check":
		h.serveCheck(w, r, parts[1:])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) serveReminders(w http.ResponseWriter, r *http.Request, parts []string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case len(parts) == 0 || (len(parts) == 1 && parts[0] == ""):
		list, err := h.reminders.All(r.Context())
		respondListOrError(w, list, err)
	case len(parts) == 1 && parts[0] == "attention":
		list, err := h.reminders.RequiringAttention(r.Context())
		respondListOrError(w, list, err)
	case len(parts) == 1 && parts[0] == "overdue":
		list, err := h.reminders.Overdue(r.Context())
		respondListOrError(w, list, err)
	case len(parts) == 1:
		reminder, err := h.reminders.ForVehicle(r.Context(), parts[0])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, reminder)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type settingsRequest struct {
	ServiceInterval       int64  `json:"service_interval"`
	NotificationThreshold *int64 `json:"notification_threshold,omitempty"`
	Enabled               *bool  `json:"enabled,omitempty"`
}

func (h *Handler) serveSettings(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 || (len(parts) == 1 && parts[0] == ""):
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.settings.List(r.Context())
		respondListOrError(w, list, err)
	case len(parts) == 1:
		vehicleID := parts[0]
		switch r.Method {
		case http.MethodGet:
			settings, err := h.settings.Get(r.Context(), vehicleID)
			if err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, settings)
		case http.MethodPut, http.MethodPost:
			var req settingsRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			settings, err := h.settings.Save(r.Context(), maintenance.SettingsParams{
				VehicleID:             vehicleID,
				ServiceInterval:       req.ServiceInterval,
				NotificationThreshold: req.NotificationThreshold,
				Enabled:               req.Enabled,
			})
			if err != nil {
				respondError(w, err)
				return
			}
			respondJSON(w, http.StatusOK, settings)
		case http.MethodDelete:
			if err := h.settings.Delete(r.Context(), vehicleID); err != nil {
				respondError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case len(parts) == 2 && parts[1] == "exists":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		exists, err := h.settings.Exists(r.Context(), parts[0])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"exists": exists})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type visitRequest struct {
	VehicleID  string `json:"vehicle_id"`
	Counter    int64  `json:"counter"`
	StartedAt  string `json:"started_at"`
	PlannedEnd string `json:"planned_end"`
	Details    string `json:"details"`
}

type statusRequest struct {
	Status maintenance.VisitStatus `json:"status"`
}

func (h *Handler) serveVisits(w http.ResponseWriter, r *http.Request, parts []string) {
	switch {
	case len(parts) == 0 || (len(parts) == 1 && parts[0] == ""):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCreateVisit(w, r)
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		visit, err := h.visits.GetByID(r.Context(), parts[0])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, visit)
	case len(parts) == 2 && parts[1] == "status":
		if r.Method != http.MethodPut && r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req statusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		visit, err := h.visits.UpdateStatus(r.Context(), parts[0], req.Status)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, visit)
	case len(parts) == 2 && parts[0] == "vehicle":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		list, err := h.visits.ListByVehicle(r.Context(), parts[1])
		respondListOrError(w, list, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCreateVisit(w http.ResponseWriter, r *http.Request) {
	var req visitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	startedAt, err := parseOptionalTime(req.StartedAt, "started_at")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	plannedEnd, err := parseOptionalTime(req.PlannedEnd, "planned_end")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	visit, err := h.visits.Create(r.Context(), maintapp.VisitParams{
		VehicleID:  req.VehicleID,
		Counter:    req.Counter,
		StartedAt:  startedAt,
		PlannedEnd: plannedEnd,
		Details:    req.Details,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, visit)
}

func (h *Handler) serveCheck(w http.ResponseWriter, r *http.Request, parts []string) {
	if h.sweeper == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case len(parts) == 0 || (len(parts) == 1 && parts[0] == ""):
		created, err := h.sweeper.CheckAll(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]int{"notifications_created": created})
	case len(parts) == 1:
		created, err := h.sweeper.CheckVehicle(r.Context(), parts[0])
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]bool{"notification_created": created})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func parseOptionalTime(value, key string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}

func respondError(w http.ResponseWriter, err error) {
	if consistency, ok := counter.AsConsistency(err); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(consistency)
		return
	}
	switch {
	case errors.Is(err, fleet.ErrNotFound),
		errors.Is(err, maintenance.ErrNotFound),
		errors.Is(err, maintenance.ErrSettingsNotFound):
		w.WriteHeader(http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondListOrError[T any](w http.ResponseWriter, list []T, err error) {
	if err != nil {
		respondError(w, err)
		return
	}
	if list == nil {
		list = []T{}
	}
	respondJSON(w, http.StatusOK, list)
}
