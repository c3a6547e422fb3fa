package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/ml"
)

// ModelManager exposes the resident artifact.
type ModelManager interface {
	Current() (ml.Report, error)
	Reload(ctx context.Context) (ml.Report, error)
}

// ModelHandler reports on and reloads the scoring artifact.
type ModelHandler struct {
	models ModelManager
	logger *slog.Logger
}

// NewModelHandler creates a new ModelHandler.
func NewModelHandler(models ModelManager, logger *slog.Logger) *ModelHandler {
	return &ModelHandler{models: models, logger: logger}
}

// Get handles GET /api/v1/model.
func (h *ModelHandler) Get(w http.ResponseWriter, r *http.Request) {
	report, err := h.models.Current()
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Reload handles POST /api/v1/admin/model/reload. A failed reload leaves
// the previous artifact active.
func (h *ModelHandler) Reload(w http.ResponseWriter, r *http.Request) {
	report, err := h.models.Reload(r.Context())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("model_reloaded",
		"version", report.Version,
		"requested_by", auth.UserIDFromContext(r.Context()),
	)
	writeJSON(w, http.StatusOK, report)
}
