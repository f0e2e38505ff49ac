package handlers

import (
	"fmt"
	"net/http"

	"dreamboard/pkg/zip"
)

// Download streams a single artifact to the browser as an attachment.
// The ref query parameter may be absolute or site-relative; the bridge
// resolves it against the render service origin.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		a.error(w, http.StatusBadRequest, "missing ref parameter")
		return
	}

	artifact, err := a.Bridge.Fetch(r.Context(), ref)
	if err != nil {
		a.Logger.Warn().Err(err).Str("ref", ref).Msg("handlers: artifact fetch failed")
		a.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", artifact.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", artifact.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Data)
}

// Archive bundles the session's current gallery into a single zip. Any
// reference that fails to fetch fails the whole archive; a partial bundle
// would silently drop images.
func (a *App) Archive(w http.ResponseWriter, r *http.Request) {
	sid := a.sessionID(w, r)
	snap := a.Sessions.Get(sid).Snapshot()

	gallery := snap.Job.Gallery()
	if len(gallery) == 0 {
		a.error(w, http.StatusNotFound, "no artifacts to archive")
		return
	}

	assets := make([]zip.Asset, 0, len(gallery))
	for _, ref := range gallery {
		artifact, err := a.Bridge.Fetch(r.Context(), ref)
		if err != nil {
			a.Logger.Warn().Err(err).Str("ref", ref).Msg("handlers: archive fetch failed")
			a.fail(w, r, err)
			return
		}
		assets = append(assets, zip.Asset{
			Filename: artifact.Filename,
			MIME:     artifact.MIME,
			Data:     artifact.Data,
		})
	}

	payload := zip.ArchiveAssets(assets)
	if len(payload) == 0 {
		a.error(w, http.StatusInternalServerError, "failed to build archive")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="dreamboard-gallery.zip"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}
