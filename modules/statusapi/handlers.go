package statusapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/GoCodeAlone/stepper/modules/progress"
)

type health struct {
	Status  string `json:"status"`
	Tick    uint64 `json:"tick"`
	Exiting bool   `json:"exiting"`
}

func (p *Plugin) healthz(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if p.app.Exiting() {
		status = "exiting"
	}
	writeJSON(w, http.StatusOK, health{Status: status, Tick: p.app.Tick(), Exiting: p.app.Exiting()})
}

// listTrackers handles GET /progress. It returns {"trackers": [...]} ordered
// by tag name.
func (p *Plugin) listTrackers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"trackers": progress.RegistryOf(p.app).Snapshots(),
	})
}

// getTracker handles GET /progress/{tag}. It returns {"tracker": {...}} or
// 404 when no tracker is registered under tag.
func (p *Plugin) getTracker(w http.ResponseWriter, r *http.Request) {
	tag, err := tagParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, ok := progress.RegistryOf(p.app).Snapshot(tag)
	if !ok {
		writeError(w, http.StatusNotFound, "tracker not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracker": snap})
}

// restartTracker handles POST /progress/{tag}/restart. It returns 202 with
// the restarted snapshot, 404 for unknown tags, or 500 if the restart fails.
func (p *Plugin) restartTracker(w http.ResponseWriter, r *http.Request) {
	tag, err := tagParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	registry := progress.RegistryOf(p.app)
	if err := registry.Restart(r.Context(), tag); err != nil {
		if errors.Is(err, progress.ErrTagNotFound) || errors.Is(err, progress.ErrEntityNotTracked) {
			writeError(w, http.StatusNotFound, "tracker not found")
			return
		}
		p.logger.Error("Restart failed", "tag", tag, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to restart tracker")
		return
	}
	snap, _ := registry.Snapshot(tag)
	writeJSON(w, http.StatusAccepted, map[string]any{"tracker": snap})
}

func tagParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "tag")
	if raw == "" {
		return "", errors.New("tag is required")
	}
	tag, err := url.PathUnescape(raw)
	if err != nil {
		return "", errors.New("invalid tag")
	}
	return tag, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
