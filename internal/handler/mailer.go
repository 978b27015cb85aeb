package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/msomdec/recipe-box/internal/service"
)

// MailerHandler serves password recovery.
type MailerHandler struct {
	recovery *service.RecoveryService
}

// NewMailerHandler creates a new MailerHandler.
func NewMailerHandler(recovery *service.RecoveryService) *MailerHandler {
	return &MailerHandler{recovery: recovery}
}

// HandleRecoverPassword mails a reset link.
// POST /mailer/recover-pass
// Request: {"to":"..."}
func (h *MailerHandler) HandleRecoverPassword(w http.ResponseWriter, r *http.Request) {
	var req recoverPasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.recovery.RequestReset(r.Context(), req.To); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Recovery mail sent"})
}

// HandleNewPassword sets a new password using a mailed token.
// POST /mailer/newPassRequest/{token}
// Request: {"newPassword":"..."}
func (h *MailerHandler) HandleNewPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if err := h.recovery.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.NewPassword); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Password updated"})
}
