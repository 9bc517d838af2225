package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/dormdeals/internal/domain"
	"github.com/joao-fontenele/dormdeals/internal/telemetry"
)

type Store interface {
	InsertMany(ctx context.Context, list []domain.Notification) error
	List(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]domain.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
}

// AdminDirectory lists the recipients of every fan-out.
type AdminDirectory interface {
	AdminIDs(ctx context.Context) ([]string, error)
}

type Service struct {
	store    Store
	admins   AdminDirectory
	counters *telemetry.Counters
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(store Store, admins AdminDirectory, counters *telemetry.Counters, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		admins:   admins,
		counters: counters,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) OrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	return s.FanOut(ctx, domain.OrderPlacedTemplate(event))
}

func (s *Service) StockLow(ctx context.Context, event domain.StockLowEvent) error {
	return s.FanOut(ctx, domain.StockLowTemplate(event))
}

// FanOut writes one copy of the notification for every admin.
func (s *Service) FanOut(ctx context.Context, tmpl domain.NotificationTemplate) error {
	adminIDs, err := s.admins.AdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}
	if len(adminIDs) == 0 {
		s.logger.Warn("no admins to notify", "type", tmpl.Type)
		return nil
	}

	now := s.now()
	list := make([]domain.Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		list = append(list, tmpl.For(id, now))
	}
	if err := s.store.InsertMany(ctx, list); err != nil {
		return err
	}

	s.counters.NotificationsCreated.Add(ctx, int64(len(list)),
		metric.WithAttributes(attribute.String("type", string(tmpl.Type))))
	s.logger.Info("notifications created", "type", tmpl.Type, "recipients", len(list))
	return nil
}

func (s *Service) List(ctx context.Context, recipientID string, unreadOnly bool, limit int64) ([]domain.Notification, error) {
	return s.store.List(ctx, recipientID, unreadOnly, limit)
}

func (s *Service) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	return s.store.UnreadCount(ctx, recipientID)
}

func (s *Service) MarkRead(ctx context.Context, recipientID, id string) (*domain.Notification, error) {
	return s.store.MarkRead(ctx, recipientID, id)
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	return s.store.MarkAllRead(ctx, recipientID)
}
