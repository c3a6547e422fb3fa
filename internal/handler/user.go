package handler

import (
	"log/slog"
	"net/http"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/handler/dto"
	"github.com/loanwise/loanwise/internal/service"
)

// UserHandler serves the caller's own account.
type UserHandler struct {
	svc    *service.UserService
	logger *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Me handles GET /api/v1/users/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.svc.Me(r.Context(), auth.MustIdentityFromContext(r.Context()).UserID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// UpdateMe handles PUT /api/v1/users/me.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if req.FullName == nil {
		writeError(w, http.StatusUnprocessableEntity, "MISSING_FIELD", "full_name is required")
		return
	}

	id := auth.MustIdentityFromContext(r.Context())
	user, err := h.svc.UpdateMe(r.Context(), id.UserID, *req.FullName)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("user_updated", "user_id", user.ID)
	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}
