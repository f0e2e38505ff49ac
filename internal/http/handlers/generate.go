package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

type submitRequest struct {
	Prompt string `json:"prompt"`
}

// Submit accepts a prompt and starts a generation run. A new submission
// replaces the session's previous run wholesale. Validation and quota
// rejections come back as localized errors; acceptance answers 202 with
// the initial snapshot.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	sid := a.sessionID(w, r)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session := a.Sessions.Get(sid)
	if err := a.Engine.Submit(r.Context(), session, sid, req.Prompt); err != nil {
		a.fail(w, r, err)
		return
	}

	a.json(w, http.StatusAccepted, a.snapshotPayload(r, session.Snapshot()))
}

// State returns the session's current snapshot. The front end polls this
// endpoint to drive the progress bar and the gallery.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	sid := a.sessionID(w, r)
	session := a.Sessions.Get(sid)
	a.json(w, http.StatusOK, a.snapshotPayload(r, session.Snapshot()))
}

// Cancel abandons the session's current run. The last published job and
// gallery stay visible; no error is recorded.
func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	sid := a.sessionID(w, r)
	session := a.Sessions.Get(sid)
	a.Engine.Cancel(session)
	a.json(w, http.StatusOK, a.snapshotPayload(r, session.Snapshot()))
}

type historyItem struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Status    string    `json:"status"`
	Output    []string  `json:"output,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const recentLimit = 20

// Recent lists the session's most recent submissions from the history
// store. Without a database the endpoint answers an empty list rather
// than failing, so the front end needs no special casing.
func (a *App) Recent(w http.ResponseWriter, r *http.Request) {
	sid := a.sessionID(w, r)

	if a.Repo == nil {
		a.json(w, http.StatusOK, map[string]any{"jobs": []historyItem{}})
		return
	}

	records, err := a.Repo.ListRecent(r.Context(), sid, recentLimit)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: list recent jobs failed")
		a.fail(w, r, err)
		return
	}

	items := make([]historyItem, 0, len(records))
	for _, rec := range records {
		items = append(items, historyItem{
			ID:        rec.ID,
			Prompt:    rec.Prompt,
			Status:    string(rec.Status),
			Output:    rec.Output,
			Detail:    rec.Detail,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"jobs": items})
}
