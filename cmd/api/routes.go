package main

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/dormdeals/internal/admin"
	"github.com/joao-fontenele/dormdeals/internal/auth"
	"github.com/joao-fontenele/dormdeals/internal/cart"
	"github.com/joao-fontenele/dormdeals/internal/catalog"
	"github.com/joao-fontenele/dormdeals/internal/notifications"
	"github.com/joao-fontenele/dormdeals/internal/orders"
	"github.com/joao-fontenele/dormdeals/internal/reviews"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
	"github.com/joao-fontenele/dormdeals/internal/users"
)

type services struct {
	users         *users.Service
	catalog       *catalog.Service
	cart          *cart.Service
	orders        *orders.Service
	reviews       *reviews.Service
	notifications *notifications.Service
	admin         *admin.Service
}

func newRouter(s services, mw *auth.Middleware, logger *slog.Logger) *http.ServeMux {
	userHandler := users.NewHandler(s.users, logger)
	catalogHandler := catalog.NewHandler(s.catalog, logger)
	cartHandler := cart.NewHandler(s.cart, logger)
	orderHandler := orders.NewHandler(s.orders, logger)
	reviewHandler := reviews.NewHandler(s.reviews, logger)
	notificationHandler := notifications.NewHandler(s.notifications, logger)
	adminHandler := admin.NewHandler(s.admin, logger)

	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h))
	}
	authed := mw.Authenticate

	route("POST /auth/register", userHandler.HandleRegister)
	route("POST /auth/login", userHandler.HandleLogin)
	route("GET /auth/profile", authed(userHandler.HandleGetProfile))
	route("PUT /auth/profile", authed(userHandler.HandleUpdateProfile))

	route("GET /products", catalogHandler.HandleList)
	route("GET /products/{id}", catalogHandler.HandleGet)
	route("POST /products", mw.Admin("products", "write", catalogHandler.HandleCreate))
	route("PUT /products/{id}", mw.Admin("products", "write", catalogHandler.HandleUpdate))
	route("DELETE /products/{id}", mw.Admin("products", "write", catalogHandler.HandleDelete))

	route("GET /products/{id}/reviews", reviewHandler.HandleList)
	route("POST /products/{id}/reviews", authed(reviewHandler.HandleCreate))
	route("GET /products/{id}/reviews/average", reviewHandler.HandleSummary)
	route("DELETE /reviews/{id}", authed(reviewHandler.HandleDelete))

	route("GET /cart", authed(cartHandler.HandleGet))
	route("POST /cart", authed(cartHandler.HandleAdd))
	route("PUT /cart", authed(cartHandler.HandleReplace))
	route("DELETE /cart", authed(cartHandler.HandleClear))
	route("POST /cart/merge", authed(cartHandler.HandleMerge))
	route("PUT /cart/{productId}", authed(cartHandler.HandleSetQuantity))
	route("DELETE /cart/{productId}", authed(cartHandler.HandleRemove))

	route("GET /wishlist", authed(cartHandler.HandleGetWishlist))
	route("POST /wishlist", authed(cartHandler.HandleAddToWishlist))
	route("DELETE /wishlist/{productId}", authed(cartHandler.HandleRemoveFromWishlist))

	route("POST /orders", authed(orderHandler.HandleCreate))
	route("GET /orders/myorders", authed(orderHandler.HandleListMine))
	route("GET /orders/admin", mw.Admin("orders", "read", orderHandler.HandleListAll))
	route("GET /orders/{id}", authed(orderHandler.HandleGet))
	route("PUT /orders/{id}/pay", authed(orderHandler.HandlePay))
	route("PUT /orders/{id}/status", mw.Admin("orders", "write", orderHandler.HandleUpdateStatus))
	route("PUT /orders/{id}/cancel", authed(orderHandler.HandleCancel))
	route("PUT /orders/{id}/item/{itemId}/cancel", authed(orderHandler.HandleCancelItem))
	route("PUT /orders/{id}/refund", mw.Admin("refunds", "write", orderHandler.HandleRefund))
	route("PUT /orders/{id}/item/{itemId}/refund", mw.Admin("refunds", "write", orderHandler.HandleItemRefund))

	route("GET /notifications", mw.Admin("notifications", "read", notificationHandler.HandleList))
	route("GET /notifications/unread-count", mw.Admin("notifications", "read", notificationHandler.HandleUnreadCount))
	route("PUT /notifications/read-all", mw.Admin("notifications", "write", notificationHandler.HandleMarkAllRead))
	route("PUT /notifications/{id}/read", mw.Admin("notifications", "write", notificationHandler.HandleMarkRead))

	route("GET /admin/dashboard", mw.Admin("dashboard", "read", adminHandler.HandleDashboard))
	route("GET /admin/users", mw.Admin("users", "read", adminHandler.HandleListUsers))
	route("PUT /admin/users/{id}", mw.Admin("users", "write", adminHandler.HandleUpdateUser))

	return mux
}
