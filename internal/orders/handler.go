package orders

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

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

type createOrderRequest struct {
	OrderItems      []domain.OrderItem `json:"orderItems"`
	ShippingAddress domain.Address     `json:"shippingAddress"`
	PaymentMethod   string             `json:"paymentMethod"`
	TotalPrice      decimal.Decimal    `json:"totalPrice"`
	IsPaid          bool               `json:"isPaid"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.svc.Place(r.Context(), auth.MustUser(r), domain.NewOrderInput{
		Items:           req.OrderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		TotalPrice:      req.TotalPrice,
		IsPaid:          req.IsPaid,
	})
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	web.WriteJSON(w, h.logger, http.StatusCreated, order)
}

func (h *Handler) HandlePay(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Pay(r.Context(), auth.MustUser(r), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Get(r.Context(), auth.MustUser(r), r.PathValue("id"))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListMine(r.Context(), auth.MustUser(r))
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, orders)
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAll(r.Context())
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, orders)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.svc.Cancel(r.Context(), auth.MustUser(r), r.PathValue("id"), req.Reason)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleCancelItem(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.svc.CancelItem(r.Context(), auth.MustUser(r), r.PathValue("id"), r.PathValue("itemId"), req.Reason)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

type refundRequest struct {
	Action string `json:"action"`
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.svc.ProcessRefund(r.Context(), r.PathValue("id"), req.Action)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleItemRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}

	order, err := h.svc.ProcessItemRefund(r.Context(), r.PathValue("id"), r.PathValue("itemId"), req.Action)
	if err != nil {
		web.WriteError(w, r, h.logger, err)
		return
	}
	web.WriteJSON(w, h.logger, http.StatusOK, order)
}
