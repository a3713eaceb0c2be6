package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"recicleai/internal/logger"
)

// LogFiles are the files written by the leveled logger.
var LogFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ShowLogsHandler serves one log file as text/plain.
func ShowLogsHandler(logDir, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filePath := filepath.Join(logDir, filename)

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte("Log file not found: " + filename))
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")

		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler truncates one log file. Only POST is accepted.
func ClearLogsHandler(logger *logger.Logger, filename string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := logger.CleanLogs(filename); err != nil {
			http.Error(w, "Failed to clear "+filename, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
