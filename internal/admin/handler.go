package admin

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/web"
)

type Handler struct {
	svc    *Service
	logger *slog.Logger
}

func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger,
	}
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, d)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers(r.Context())
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, users)
}

type updateUserRequest struct {
	IsAdmin *bool `json:"isAdmin"`
}

func (h *Handler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	if req.IsAdmin == nil {
		web.WriteError(w, r, h.logger, domain.Validation("isAdmin is required"))
		return
	}

	u, err := h.svc.SetAdmin(r.Context(), auth.MustUser(r), r.PathValue("id"), *req.IsAdmin)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, u)
}
