package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

// NotifyOptions carries the optional notification fields.
type NotifyOptions struct {
	ClassroomID *string
	ActionURL   *string
}

// NotificationProducer is the interface producers (invites, announcements,
// test saves) use to append to an account's feed.
type NotificationProducer interface {
	Notify(ctx context.Context, accountID string, t models.NotificationType, title, message string, opts NotifyOptions) error
}

type notificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

// NotificationService owns the notification lifecycle: unread on creation,
// read as the single absorbing terminal state.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// Notify appends a notification to an account's feed.
func (s *NotificationService) Notify(ctx context.Context, accountID string, t models.NotificationType, title, message string, opts NotifyOptions) error {
	if !t.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown notification type")
	}
	n := &models.Notification{
		UserID:      accountID,
		Type:        t,
		Title:       title,
		Message:     message,
		ClassroomID: opts.ClassroomID,
		ActionURL:   opts.ActionURL,
		Read:        false,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return nil
}

// List returns the account's feed with pagination metadata.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	filter := models.NotificationFilter{UserID: userID, UnreadOnly: unreadOnly, Page: page, PageSize: pageSize}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	notifications, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return notifications, pagination, nil
}

// MarkRead flips one of the account's own notifications to read. Marking an
// already-read notification is a no-op, not an error.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	n, err := s.repo.FindByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notification")
	}
	if n.UserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "not your notification")
	}
	if n.Read {
		return nil
	}
	if err := s.repo.MarkRead(ctx, notificationID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	return nil
}
