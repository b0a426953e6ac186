package handlers

import (
	"net/http"
	"time"
)

// Health responds with status 200 to indicate the service is running.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "dustout-backend",
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
