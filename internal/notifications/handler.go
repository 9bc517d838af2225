package notifications

import (
	"log/slog"
	"net/http"
	"strconv"

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

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	unreadOnly := query.Get("unread") == "true"

	var limit int64
	if raw := query.Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			web.WriteError(w, r, h.logger, domain.Validation("Limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	list, err := h.svc.List(r.Context(), auth.MustUser(r).ID, unreadOnly, limit)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, list)
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

func (h *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadCount(r.Context(), auth.MustUser(r).ID)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, unreadCountResponse{Count: n})
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkRead(r.Context(), auth.MustUser(r).ID, r.PathValue("id"))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, n)
}

type markAllResponse struct {
	Message  string `json:"message"`
	Modified int64  `json:"modified"`
}

func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), auth.MustUser(r).ID)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, markAllResponse{Message: "All notifications marked as read", Modified: n})
}
