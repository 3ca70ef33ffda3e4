package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	notifapp "fleet-maintenance/internal/notifications/application"
	notifications "fleet-maintenance/internal/notifications/domain"
)

// Handler provides notification HTTP endpoints.
type Handler struct {
	engine *notifapp.Engine
}

// NewHandler constructs a handler.
func NewHandler(engine *notifapp.Engine) (*Handler, error) {
	if engine == nil {
		return nil, errors.New("notifications handler: nil engine")
	}
	return &Handler{engine: engine}, nil
}

// ServeHTTP handles /api/v1/notifications and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/v1/notifications" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleActive(w, r)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/notifications/")
	if path == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")

	switch {
	case len(parts) == 1 && parts[0] == "stats":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleStats(w, r)
	case len(parts) == 1 && parts[0] == "unread-count":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleUnreadCount(w, r)
	case len(parts) == 1 && parts[0] == "read-all":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleReadAll(w, r)
	case len(parts) == 2 && parts[0] == "vehicle":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleForVehicle(w, r, parts[1])
	case len(parts) == 2 && parts[1] == "read":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRead(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "deactivate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleDeactivate(w, r, parts[0])
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.Active(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []notifications.Notification{}
	}
	respondJSON(w, list)
}

func (h *Handler) handleForVehicle(w http.ResponseWriter, r *http.Request, vehicleID string) {
	list, err := h.engine.ForVehicle(r.Context(), vehicleID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []notifications.Notification{}
	}
	respondJSON(w, list)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, stats)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.engine.UnreadCount(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]int{"unread": count})
}

func (h *Handler) handleReadAll(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.MarkAllRead(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.engine.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.engine.DeactivateByID(r.Context(), id); err != nil {
		if errors.Is(err, notifications.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
