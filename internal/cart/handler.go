package cart

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

type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  *int   `json:"qty"`
}

type quantityRequest struct {
	Quantity int `json:"qty"`
}

type itemsRequest struct {
	Items []domain.CartItem `json:"items"`
}

type wishlistRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Get(r.Context(), auth.MustUser(r).ID)
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}

	lines, err := h.svc.Add(r.Context(), auth.MustUser(r).ID, req.ProductID, qty)
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleSetQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	lines, err := h.svc.SetQuantity(r.Context(), auth.MustUser(r).ID, r.PathValue("productId"), req.Quantity)
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Remove(r.Context(), auth.MustUser(r).ID, r.PathValue("productId"))
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.Clear(r.Context(), auth.MustUser(r).ID)
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	lines, err := h.svc.Replace(r.Context(), auth.MustUser(r).ID, req.Items)
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleMerge(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	lines, err := h.svc.MergeCart(r.Context(), auth.MustUser(r).ID, req.Items)
	h.respond(w, r, lines, err)
}

func (h *Handler) HandleGetWishlist(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Wishlist(r.Context(), auth.MustUser(r).ID)
	h.respond(w, r, products, err)
}

func (h *Handler) HandleAddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req wishlistRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	products, err := h.svc.AddToWishlist(r.Context(), auth.MustUser(r).ID, req.ProductID)
	h.respond(w, r, products, err)
}

func (h *Handler) HandleRemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.RemoveFromWishlist(r.Context(), auth.MustUser(r).ID, r.PathValue("productId"))
	h.respond(w, r, products, err)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, data)
}
