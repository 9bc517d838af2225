package catalog

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

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
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	products, err := h.svc.List(r.Context(), filter)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, products)
}

func parseFilter(q url.Values) (domain.ProductFilter, error) {
	f := domain.ProductFilter{
		Keyword:  q.Get("keyword"),
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
		Usage:    q.Get("usage"),
		Sort:     domain.ProductSort(q.Get("sort")),
	}

	for name, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return f, domain.Validation("Invalid " + name)
		}
		*dst = &v
	}

	if raw := q.Get("inStock"); raw != "" {
		inStock, err := strconv.ParseBool(raw)
		if err != nil {
			return f, domain.Validation("Invalid inStock")
		}
		f.InStock = inStock
	}
	return f, nil
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductChanges
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	product, err := h.svc.Create(r.Context(), req)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusCreated, product)
}

func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductChanges
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	product, err := h.svc.Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, product)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteMessage(w, h.logger, http.StatusOK, "Product removed")
}
