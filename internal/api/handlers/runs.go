package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Fantasim/dropmint/internal/config"
	"github.com/Fantasim/dropmint/internal/models"
)

// RunStore reads run history.
type RunStore interface {
	ListRuns(limit int) ([]models.Run, error)
	GetRun(id string) (*models.RunDetail, error)
}

// ListRuns handles GET /api/runs?limit=N.
func ListRuns(store RunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := config.DefaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > config.MaxHistoryLimit {
				writeError(w, http.StatusBadRequest, config.ErrorInvalidRequest,
					"limit must be between 1 and "+strconv.Itoa(config.MaxHistoryLimit))
				return
			}
			limit = n
		}

		runs, err := store.ListRuns(limit)
		if err != nil {
			slog.Error("failed to list runs", "error", err)
			writeError(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to list runs")
			return
		}
		if runs == nil {
			runs = []models.Run{}
		}

		slog.Debug("runs listed", "count", len(runs), "limit", limit)
		writeJSON(w, http.StatusOK, runs)
	}
}

// GetRun handles GET /api/runs/{id}.
func GetRun(store RunStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		detail, err := store.GetRun(id)
		if errors.Is(err, config.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, config.ErrorRunNotFound, "run not found")
			return
		}
		if err != nil {
			slog.Error("failed to get run", "runID", id, "error", err)
			writeError(w, http.StatusInternalServerError, config.ErrorDatabase, "failed to get run")
			return
		}
		if detail.Txs == nil {
			detail.Txs = []models.RunTx{}
		}

		writeJSON(w, http.StatusOK, detail)
	}
}
