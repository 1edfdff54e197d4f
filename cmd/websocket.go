package main

import (
	"context"
	"net/http"
	"time"

	"marketBack/internal/handlers"
)

// notificationsWS upgrades the connection and subscribes the caller to
// their booking events.
func (app *application) notificationsWS(w http.ResponseWriter, r *http.Request) {
	session := handlers.SessionFrom(r.Context())
	app.hub.ServeWS(w, r, session.UserID)
}

func (app *application) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := app.db.PingContext(ctx); err != nil {
		app.log.Warnf("health check: database: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	if app.rdb != nil {
		if err := app.rdb.Ping(ctx).Err(); err != nil {
			app.log.Warnf("health check: redis: %v", err)
		}
	}
	w.Write([]byte(`{"status":"ok"}`))
}
