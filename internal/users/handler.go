package users

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

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	session, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusCreated, session)
}

type loginRequest struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Cart     []domain.CartItem `json:"cart"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	session, err := h.svc.Login(r.Context(), req.Email, req.Password, req.Cart)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, session)
}

func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	web.WriteJSON(w, h.logger, http.StatusOK, auth.MustUser(r))
}

func (h *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req domain.ProfileUpdate
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	user, err := h.svc.UpdateProfile(r.Context(), auth.MustUser(r), req)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, user)
}
