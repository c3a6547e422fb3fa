package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/handler/dto"
	"github.com/loanwise/loanwise/internal/service"
)

// PredictionHandler handles scoring requests and history reads.
type PredictionHandler struct {
	svc    *service.PredictionService
	logger *slog.Logger
}

// NewPredictionHandler creates a new PredictionHandler.
func NewPredictionHandler(svc *service.PredictionService, logger *slog.Logger) *PredictionHandler {
	return &PredictionHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/predictions.
func (h *PredictionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePredictionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}

	id := auth.MustIdentityFromContext(r.Context())
	p, err := h.svc.Create(r.Context(), id.UserID, req.ToInput())
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("prediction_created",
		"prediction_id", p.ID,
		"user_id", p.UserID,
		"risk_classification", p.RiskClassification,
		"model_version", p.ModelVersion,
	)
	writeJSON(w, http.StatusCreated, dto.ToPredictionResponse(p))
}

// List handles GET /api/v1/predictions.
func (h *PredictionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 0
	if l := query.Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	id := auth.MustIdentityFromContext(r.Context())
	out, err := h.svc.List(r.Context(), service.ListPredictionsInput{
		UserID: id.UserID,
		Cursor: query.Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToPredictionListResponse(out.Predictions, out.NextCursor, out.HasMore))
}
