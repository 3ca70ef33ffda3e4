package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	counterapp "fleet-maintenance/internal/counter/application"
	counter "fleet-maintenance/internal/counter/domain"
)

const timeLayout = time.RFC3339

// Handler provides counter HTTP endpoints.
type Handler struct {
	ledger *counterapp.Ledger
}

// NewHandler constructs a handler.
func NewHandler(ledger *counterapp.Ledger) (*Handler, error) {
	if ledger == nil {
		return nil, errors.New("counter handler: nil ledger")
	}
	return &Handler{ledger: ledger}, nil
}

// ServeHTTP handles /api/v1/counters/{vehicleID} and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/counters/")
	if path == "" || path == r.URL.Path {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(path, "/")
	vehicleID := parts[0]
	if vehicleID == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleInfo(w, r, vehicleID)
	case len(parts) == 2 && parts[1] == "minimum":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleMinimum(w, r, vehicleID)
	case len(parts) == 2 && parts[1] == "validate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleValidate(w, r, vehicleID)
	case len(parts) == 2 && parts[1] == "fuel":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleRecordFuel(w, r, vehicleID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request, vehicleID string) {
	info, err := h.ledger.Info(r.Context(), vehicleID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, info)
}

func (h *Handler) handleMinimum(w http.ResponseWriter, r *http.Request, vehicleID string) {
	minimum, err := h.ledger.MinimumAllowed(r.Context(), vehicleID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{
		"vehicle_id":      vehicleID,
		"minimum_allowed": minimum,
	})
}

type readingRequest struct {
	Counter    int64  `json:"counter"`
	OccurredAt string `json:"occurred_at"`
	Label      string `json:"label"`
}

func (req readingRequest) occurredAt() (time.Time, error) {
	if req.OccurredAt == "" {
		return time.Time{}, nil
	}
	parsed, err := time.Parse(timeLayout, req.OccurredAt)
	if err != nil {
		return time.Time{}, errors.New("occurred_at must be RFC3339")
	}
	return parsed.UTC(), nil
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request, vehicleID string) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	occurredAt, err := req.occurredAt()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	if err := h.ledger.Validate(r.Context(), vehicleID, req.Counter, occurredAt); err != nil {
		if consistency, ok := counter.AsConsistency(err); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"valid": false,
				"error": consistency,
			})
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]any{"valid": true})
}

func (h *Handler) handleRecordFuel(w http.ResponseWriter, r *http.Request, vehicleID string) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	occurredAt, err := req.occurredAt()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	event := counter.Event{
		VehicleID:  vehicleID,
		Value:      req.Counter,
		OccurredAt: occurredAt,
		Source:     counter.SourceFuel,
		Label:      req.Label,
	}
	if err := h.ledger.Record(r.Context(), event); err != nil {
		if consistency, ok := counter.AsConsistency(err); ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			_ = json.NewEncoder(w).Encode(consistency)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(event)
}

func respondJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
