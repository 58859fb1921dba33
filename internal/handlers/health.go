package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger checks that the database answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
}

// Health reports liveness and database reachability. The probe error is
// logged, never returned to the client.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		database := "connected"
		if err := db.Ping(ctx); err != nil {
			slog.WarnContext(r.Context(), "database ping failed", "error", err)
			database = "disconnected"
		}

		writeJSON(w, http.StatusOK, HealthResponse{
			Status:    "ok",
			Timestamp: time.Now().UTC(),
			Database:  database,
		})
	}
}
