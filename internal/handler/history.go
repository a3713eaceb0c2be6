package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"recicleai/internal/dto"
	"recicleai/internal/logger"
	"recicleai/internal/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ConfirmationsHandler returns recent confirmations as JSON, optionally
// restricted to one session with ?session=.
func ConfirmationsHandler(repo repository.ConfirmationRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit := historyLimit(q.Get("limit"))

		var (
			result interface{}
			err    error
		)
		if session := q.Get("session"); session != "" {
			result, err = repo.BySession(session, limit)
		} else {
			result, err = repo.Recent(limit)
		}
		if err != nil {
			logger.Error("Error querying confirmations: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, result, logger)
	}
}

// InboundHandler returns recent lines received from the board as JSON.
func InboundHandler(repo repository.InboundRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := repo.Recent(historyLimit(r.URL.Query().Get("limit")))
		if err != nil {
			logger.Error("Error querying inbound messages: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, messages, logger)
	}
}

// StatusHandler reports live loop, serial and monitor counters.
func StatusHandler(status func() dto.Status, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, status(), logger)
	}
}

// historyLimit converts ?limit= to a bounded positive value.
func historyLimit(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return defaultHistoryLimit
	}
	if v > maxHistoryLimit {
		return maxHistoryLimit
	}
	return v
}

func writeJSON(w http.ResponseWriter, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding response: %v", err)
	}
}
