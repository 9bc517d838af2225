package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is an open string type: admins may assign any
// value through UpdateStatus. The constants are the values the storefront uses.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

type RefundStatus string

const (
	RefundStatusNone      RefundStatus = "none"
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusRejected  RefundStatus = "rejected"
	RefundStatusProcessed RefundStatus = "processed"
)

type RefundAction string

const (
	RefundActionProcess RefundAction = "process"
	RefundActionReject  RefundAction = "reject"
)

var errInvalidRefundAction = Validation("Invalid action. Use 'process' or 'reject'")

const (
	DefaultCancellationReason = "Cancelled by customer"
	AllItemsCancelledReason   = "All items cancelled"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type OrderItem struct {
	ID                 string          `json:"id"`
	ProductID          string          `json:"product"`
	Name               string          `json:"name"`
	Image              string          `json:"image"`
	Price              decimal.Decimal `json:"price"`
	Quantity           int             `json:"qty"`
	IsCancelled        bool            `json:"isCancelled"`
	CancellationReason string          `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelledAt,omitempty"`
	RefundStatus       RefundStatus    `json:"refundStatus"`
	RefundAmount       decimal.Decimal `json:"refundAmount"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// UserSummary is attached to orders on admin listings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	User            *UserSummary    `json:"user,omitempty"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress Address         `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	Status          OrderStatus     `json:"status"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`

	IsCancelled             bool            `json:"isCancelled"`
	CancellationReason      string          `json:"cancellationReason,omitempty"`
	CancellationRequestedAt *time.Time      `json:"cancellationRequestedAt,omitempty"`
	CancelledAt             *time.Time      `json:"cancelledAt,omitempty"`
	RefundStatus            RefundStatus    `json:"refundStatus"`
	RefundAmount            decimal.Decimal `json:"refundAmount"`
	RefundedAt              *time.Time      `json:"refundedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NewOrderInput struct {
	UserID          string
	Items           []OrderItem
	ShippingAddress Address
	PaymentMethod   string
	TotalPrice      decimal.Decimal
	IsPaid          bool
}

// NewOrder builds an order from a checkout. Item prices and the total are the
// client's snapshot and are not re-checked against the catalog, only rounded
// to MoneyPlaces.
func NewOrder(in NewOrderInput, now time.Time) (*Order, error) {
	if len(in.Items) == 0 {
		return nil, Validation("No order items")
	}
	for _, item := range in.Items {
		if item.ProductID == "" {
			return nil, Validation("Order item is missing a product")
		}
		if item.Quantity < 1 {
			return nil, Validation("Order item quantity must be at least 1")
		}
		if item.Price.IsNegative() {
			return nil, Validation("Order item price cannot be negative")
		}
	}
	if in.TotalPrice.IsNegative() {
		return nil, Validation("Total price cannot be negative")
	}

	items := make([]OrderItem, len(in.Items))
	for i, item := range in.Items {
		items[i] = OrderItem{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Image:        item.Image,
			Price:        RoundMoney(item.Price),
			Quantity:     item.Quantity,
			RefundStatus: RefundStatusNone,
			RefundAmount: decimal.Zero,
		}
	}

	order := &Order{
		UserID:          in.UserID,
		Items:           items,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		TotalPrice:      RoundMoney(in.TotalPrice),
		Status:          OrderStatusPending,
		RefundStatus:    RefundStatusNone,
		RefundAmount:    decimal.Zero,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.IsPaid {
		order.markPaid(now)
	}
	return order, nil
}

func (o *Order) markPaid(now time.Time) {
	o.IsPaid = true
	o.PaidAt = &now
	o.Status = OrderStatusProcessing
}

// Pay records a mock payment capture for an unpaid, live order.
func (o *Order) Pay(actorID string, now time.Time) error {
	if o.UserID != actorID {
		return Forbidden("Not authorized to pay for this order")
	}
	if o.IsCancelled {
		return InvalidState("Cannot pay for a cancelled order")
	}
	if o.IsPaid {
		return InvalidState("Order is already paid")
	}
	o.markPaid(now)
	o.UpdatedAt = now
	return nil
}

// UpdateStatus assigns any non-empty status. No transition table is enforced.
func (o *Order) UpdateStatus(status OrderStatus, now time.Time) error {
	if status == "" {
		return Validation("Status is required")
	}
	o.Status = status
	if status == OrderStatusDelivered && o.DeliveredAt == nil {
		o.DeliveredAt = &now
	}
	o.UpdatedAt = now
	return nil
}

// Cancel is the customer's whole-order cancellation. The guards run in a
// fixed order and the first failure wins.
func (o *Order) Cancel(actorID, reason string, now time.Time) error {
	if o.UserID != actorID {
		return Forbidden("Not authorized to cancel this order")
	}
	if o.IsCancelled {
		return InvalidState("Order is already cancelled")
	}
	if o.Status == OrderStatusDelivered {
		return InvalidState("Cannot cancel an order that has been delivered")
	}
	if o.Status == OrderStatusShipped {
		return InvalidState("Order has already been shipped. Please contact support to cancel it")
	}
	if reason == "" {
		reason = DefaultCancellationReason
	}
	o.markCancelled(reason, now)
	return nil
}

func (o *Order) markCancelled(reason string, now time.Time) {
	o.CancellationReason = reason
	o.CancellationRequestedAt = &now
	o.CancelledAt = &now
	o.Status = OrderStatusCancelled
	o.IsCancelled = true
	if o.IsPaid {
		o.RefundStatus = RefundStatusPending
		o.RefundAmount = o.TotalPrice
	}
	o.UpdatedAt = now
}

func (o *Order) item(itemID string) (*OrderItem, error) {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i], nil
		}
	}
	return nil, NotFound("Order item not found")
}

// CancelItem cancels one line item, recomputes the live total and promotes the
// whole order to cancelled once no live item remains. A cancelled order is
// terminal, so its items can no longer be cancelled.
func (o *Order) CancelItem(actorID, itemID, reason string, now time.Time) error {
	if o.UserID != actorID {
		return Forbidden("Not authorized to cancel items in this order")
	}
	if o.IsCancelled {
		return InvalidState("Order is already cancelled")
	}
	if o.Status == OrderStatusDelivered {
		return InvalidState("Cannot cancel items from an order that has been delivered")
	}
	if o.Status == OrderStatusShipped {
		return InvalidState("Cannot cancel items from an order that has been shipped")
	}
	item, err := o.item(itemID)
	if err != nil {
		return err
	}
	if item.IsCancelled {
		return InvalidState("Item is already cancelled")
	}
	if reason == "" {
		reason = DefaultCancellationReason
	}

	item.IsCancelled = true
	item.CancellationReason = reason
	item.CancelledAt = &now
	item.RefundStatus = RefundStatusNone
	if o.IsPaid {
		item.RefundStatus = RefundStatusPending
	}
	item.RefundAmount = item.Subtotal()

	o.TotalPrice = o.LiveTotal()
	o.UpdatedAt = now

	if !o.IsCancelled && o.AllItemsCancelled() {
		o.markCancelled(AllItemsCancelledReason, now)
	}
	return nil
}

// LiveTotal sums price × qty over the items that are not cancelled.
func (o *Order) LiveTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		if !item.IsCancelled {
			total = total.Add(item.Subtotal())
		}
	}
	return total
}

func (o *Order) AllItemsCancelled() bool {
	for _, item := range o.Items {
		if !item.IsCancelled {
			return false
		}
	}
	return true
}

// ProcessRefund resolves the whole-order refund. Only "processed" is final;
// a rejected refund can still be processed later.
func (o *Order) ProcessRefund(action RefundAction, now time.Time) error {
	if !o.IsCancelled {
		return InvalidState("Order is not cancelled")
	}
	if o.RefundStatus == RefundStatusProcessed {
		return InvalidState("Refund has already been processed")
	}
	switch action {
	case RefundActionProcess:
		o.RefundStatus = RefundStatusProcessed
		o.RefundedAt = &now
	case RefundActionReject:
		o.RefundStatus = RefundStatusRejected
		o.RefundAmount = decimal.Zero
	default:
		return errInvalidRefundAction
	}
	o.UpdatedAt = now
	return nil
}

// ProcessItemRefund resolves one item's refund. There is no already-processed
// guard at item level.
func (o *Order) ProcessItemRefund(itemID string, action RefundAction, now time.Time) error {
	item, err := o.item(itemID)
	if err != nil {
		return err
	}
	if !item.IsCancelled {
		return InvalidState("Item is not cancelled")
	}
	switch action {
	case RefundActionProcess:
		item.RefundStatus = RefundStatusProcessed
	case RefundActionReject:
		item.RefundStatus = RefundStatusRejected
		item.RefundAmount = decimal.Zero
	default:
		return errInvalidRefundAction
	}
	o.UpdatedAt = now
	return nil
}

// CanView reports whether the actor may read the order.
func (o *Order) CanView(actorID string, isAdmin bool) bool {
	return isAdmin || o.UserID == actorID
}

// OrderStats aggregates every order for the back-office dashboard. Revenue
// counts paid orders that were not cancelled.
type OrderStats struct {
	TotalOrders    int                 `json:"totalOrders"`
	Revenue        decimal.Decimal     `json:"revenue"`
	ByStatus       map[OrderStatus]int `json:"ordersByStatus"`
	PendingRefunds int                 `json:"pendingRefunds"`
}
