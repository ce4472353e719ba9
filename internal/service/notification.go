package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sekkot/portal/internal/model"
	"github.com/sekkot/portal/internal/realtime"
	"github.com/sekkot/portal/internal/repository"
)

type NotificationService struct {
	notificationRepository repository.NotificationRepository
	broker                 realtime.Broker
}

func NewNotificationService(notificationRepository repository.NotificationRepository, broker realtime.Broker) *NotificationService {
	return &NotificationService{
		notificationRepository: notificationRepository,
		broker:                 broker,
	}
}

// Create stores a notification and pushes it to the user's open dashboards.
func (s *NotificationService) Create(ctx context.Context, userID, title, message, notificationType string) (*model.Notification, error) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notificationType,
		CreatedAt: time.Now().UTC(),
	}

	err := s.notificationRepository.Create(ctx, n)
	if err != nil {
		return nil, remote("create notification", err)
	}

	err = s.broker.Publish(ctx, n)
	if err != nil {
		slog.Warn("failed to publish notification", "error", err, "notification_id", n.ID, "user_id", userID)
	}

	return n, nil
}

func (s *NotificationService) Notifications(ctx context.Context, userID string) ([]*model.Notification, error) {
	ns, err := s.notificationRepository.ByUser(ctx, userID)
	if err != nil {
		return nil, remote("load notifications", err)
	}
	return ns, nil
}

// MarkRead reports whether the notification changed. Marking twice is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (bool, error) {
	changed, err := s.notificationRepository.MarkRead(ctx, userID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return false, err
		}
		return false, remote("mark notification as read", err)
	}
	return changed, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.notificationRepository.CountUnread(ctx, userID)
	if err != nil {
		return 0, remote("count notifications", err)
	}
	return count, nil
}

// OpenFeed starts a live notification list for userID. Close it when done.
func (s *NotificationService) OpenFeed(ctx context.Context, userID string) (*realtime.Feed, error) {
	feed, err := realtime.OpenFeed(ctx, userID, s.notificationRepository, s.broker)
	if err != nil {
		return nil, remote("subscribe to notifications", err)
	}
	return feed, nil
}
