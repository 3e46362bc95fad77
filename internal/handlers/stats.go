package handlers

import (
	"net/http"
	"strconv"
	"time"

	"photo-rater/internal/database"
	"photo-rater/internal/logging"
)

// StatsResponse summarizes the library and the rating history.
type StatsResponse struct {
	Partitions        int                    `json:"partitions"`
	UnratedImages     int                    `json:"unratedImages"`
	StatusUnrated     int                    `json:"statusUnrated"`
	StatusRated       int                    `json:"statusRated"`
	ServedOutstanding int                    `json:"servedOutstanding"`
	OperationLogBytes int64                  `json:"operationLogBytes"`
	Ratings           []database.RatingCount `json:"ratings,omitempty"`
	Raters            []database.RatingCount `json:"raters,omitempty"`
	LastExport        string                 `json:"lastExport,omitempty"`
	ServedToYou       []string               `json:"servedToYou"`
}

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Events []database.RatingEvent `json:"events"`
}

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

// GetStats returns library counts and, when history is available, rating
// totals per rating value and per rater
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.ratings.GetStats(ctx)
	if err != nil {
		logging.Error("Failed to collect stats: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to collect stats")
		return
	}

	response := StatsResponse{
		Partitions:        stats.Partitions,
		UnratedImages:     stats.UnratedImages,
		StatusUnrated:     stats.StatusUnrated,
		StatusRated:       stats.StatusRated,
		ServedOutstanding: stats.ServedOutstanding,
		OperationLogBytes: stats.OperationLogBytes,
		ServedToYou:       h.ratings.ServedTo(UserFromContext(ctx)),
	}

	if h.history != nil {
		if response.Ratings, err = h.history.RatingCounts(ctx); err != nil {
			logging.Warn("Failed to count ratings: %v", err)
		}
		if response.Raters, err = h.history.RaterCounts(ctx); err != nil {
			logging.Warn("Failed to count raters: %v", err)
		}
		if last, err := h.history.GetLastExport(ctx); err != nil {
			logging.Warn("Failed to read last export time: %v", err)
		} else if !last.IsZero() {
			response.LastExport = last.UTC().Format(time.RFC3339)
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, http.StatusOK, response)
}

// GetHistory returns the most recent rating events, newest first. The
// limit query parameter defaults to 50 and is capped at 1000.
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	if h.history == nil {
		writeMessage(w, http.StatusServiceUnavailable, "Rating history unavailable")
		return
	}

	events, err := h.history.RatingHistory(r.Context(), limit)
	if err != nil {
		logging.Error("Failed to read rating history: %v", err)
		writeMessage(w, http.StatusInternalServerError, "Failed to read rating history")
		return
	}
	if events == nil {
		events = []database.RatingEvent{}
	}

	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatus(w, http.StatusOK, HistoryResponse{Events: events})
}
