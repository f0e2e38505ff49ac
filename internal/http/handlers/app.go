// Package handlers exposes the browser-facing JSON API: prompt
// submission, state polling, cancellation, artifact downloads and the
// per-session history.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dreamboard/internal/domain"
	"dreamboard/internal/download"
	"dreamboard/internal/generate"
	"dreamboard/internal/i18n"
	"dreamboard/internal/infra"
	"dreamboard/internal/middleware"
)

const sessionCookie = "db_session"

// App carries the shared dependencies for all HTTP handlers.
type App struct {
	Cfg      *infra.Config
	Logger   zerolog.Logger
	Sessions *generate.Sessions
	Engine   *generate.Engine
	Bridge   *download.Bridge
	Repo     domain.JobRepository // nil when history is disabled
}

// sessionID returns the visitor's opaque session id, minting a cookie on
// first contact. The id keys both the in-memory state and history rows.
func (a *App) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		if _, err := uuid.Parse(c.Value); err == nil {
			return c.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (a *App) json(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.Logger.Error().Err(err).Msg("handlers: encode response failed")
	}
}

func (a *App) error(w http.ResponseWriter, status int, message string) {
	a.json(w, status, map[string]string{"error": message})
}

// fail localizes err for the visitor and maps it to an HTTP status.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	a.error(w, statusFor(err), i18n.MessageFor(locale, err))
}

func statusFor(err error) int {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, domain.ErrQuotaExceeded) {
		return http.StatusTooManyRequests
	}
	if errors.Is(err, domain.ErrNotFound) {
		return http.StatusNotFound
	}
	var serviceErr *domain.ServiceError
	var transportErr *domain.TransportError
	var downloadErr *domain.DownloadError
	if errors.As(err, &serviceErr) || errors.As(err, &transportErr) || errors.As(err, &downloadErr) {
		return http.StatusBadGateway
	}
	if errors.Is(err, domain.ErrPollTimeout) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// statePayload is the wire shape of a session snapshot.
type statePayload struct {
	Phase    string      `json:"phase"`
	Job      *domain.Job `json:"job,omitempty"`
	Error    string      `json:"error,omitempty"`
	InFlight bool        `json:"in_flight"`
	Progress int         `json:"progress"`
	Gallery  []string    `json:"gallery,omitempty"`
}

func (a *App) snapshotPayload(r *http.Request, snap generate.Snapshot) statePayload {
	locale := middleware.LocaleFromContext(r.Context())
	payload := statePayload{
		Phase:    string(snap.Phase),
		Job:      snap.Job,
		InFlight: snap.InFlight,
		Progress: snap.Progress,
		Gallery:  snap.Job.Gallery(),
	}
	if snap.Err != nil {
		payload.Error = i18n.MessageFor(locale, snap.Err)
	}
	return payload
}
