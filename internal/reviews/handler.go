package reviews

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dormdeals/internal/auth"
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

type createReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, list)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createReviewRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	rv, err := h.svc.Create(r.Context(), auth.MustUser(r), r.PathValue("id"), req.Rating, req.Comment)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusCreated, rv)
}

func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, summary)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), auth.MustUser(r), r.PathValue("id")); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteMessage(w, h.logger, http.StatusOK, "Review removed")
}
