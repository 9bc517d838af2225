package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/joao-fontenele/dormdeals/internal/config"
)

// InitMeterProvider installs a Prometheus-backed global MeterProvider and
// returns the /metrics handler with its shutdown function.
func InitMeterProvider(cfg config.Otel, serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(newResource(serviceName, serviceVersion, cfg.Environment)),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// Counters are the storefront's business metrics.
type Counters struct {
	OrdersPlaced         metric.Int64Counter
	OrdersCancelled      metric.Int64Counter
	OrderItemsCancelled  metric.Int64Counter
	RefundsResolved      metric.Int64Counter
	NotificationsCreated metric.Int64Counter
}

func NewCounters(meter metric.Meter) (*Counters, error) {
	var (
		c   Counters
		err error
	)
	if c.OrdersPlaced, err = meter.Int64Counter("dormdeals.orders.placed",
		metric.WithDescription("Orders placed at checkout")); err != nil {
		return nil, fmt.Errorf("create orders placed counter: %w", err)
	}
	if c.OrdersCancelled, err = meter.Int64Counter("dormdeals.orders.cancelled",
		metric.WithDescription("Orders moved to the cancelled state")); err != nil {
		return nil, fmt.Errorf("create orders cancelled counter: %w", err)
	}
	if c.OrderItemsCancelled, err = meter.Int64Counter("dormdeals.order_items.cancelled",
		metric.WithDescription("Order line items cancelled")); err != nil {
		return nil, fmt.Errorf("create order items cancelled counter: %w", err)
	}
	if c.RefundsResolved, err = meter.Int64Counter("dormdeals.refunds.resolved",
		metric.WithDescription("Refunds processed or rejected by an admin")); err != nil {
		return nil, fmt.Errorf("create refunds counter: %w", err)
	}
	if c.NotificationsCreated, err = meter.Int64Counter("dormdeals.notifications.created",
		metric.WithDescription("Admin notifications written by the fan-out")); err != nil {
		return nil, fmt.Errorf("create notifications counter: %w", err)
	}
	return &c, nil
}

// MustCounters is NewCounters on the global MeterProvider.
func MustCounters() *Counters {
	c, err := NewCounters(otel.Meter("github.com/joao-fontenele/dormdeals"))
	if err != nil {
		panic(err)
	}
	return c
}
