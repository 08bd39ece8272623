package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classnest/classnest-api/internal/models"
	appErrors "github.com/classnest/classnest-api/pkg/errors"
)

type mockNotificationRepo struct {
	notifications map[string]*models.Notification
	seq           int
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{notifications: make(map[string]*models.Notification)}
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	m.seq++
	n.ID = "ntf" + string(rune('0'+m.seq))
	m.notifications[n.ID] = n
	return nil
}

func (m *mockNotificationRepo) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error) {
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	return out, len(out), nil
}

func (m *mockNotificationRepo) FindByID(ctx context.Context, id string) (*models.Notification, error) {
	if n, ok := m.notifications[id]; ok {
		return n, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id string) error {
	n, ok := m.notifications[id]
	if !ok {
		return sql.ErrNoRows
	}
	n.Read = true
	return nil
}

func TestNotifyStartsUnread(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, nil)

	err := svc.Notify(context.Background(), "u1", models.NotificationInvitation, "Invite", "Join us", NotifyOptions{})
	require.NoError(t, err)
	require.Len(t, repo.notifications, 1)
	for _, n := range repo.notifications {
		assert.False(t, n.Read)
	}
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	svc := NewNotificationService(newMockNotificationRepo(), nil)
	err := svc.Notify(context.Background(), "u1", models.NotificationType("SPAM"), "t", "m", NotifyOptions{})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestMarkReadIsTerminalAndIdempotent(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, nil)
	require.NoError(t, svc.Notify(context.Background(), "u1", models.NotificationSystem, "t", "m", NotifyOptions{}))

	var id string
	for k := range repo.notifications {
		id = k
	}

	require.NoError(t, svc.MarkRead(context.Background(), "u1", id))
	assert.True(t, repo.notifications[id].Read)

	// Second mark is a silent no-op.
	require.NoError(t, svc.MarkRead(context.Background(), "u1", id))
	assert.True(t, repo.notifications[id].Read)
}

func TestMarkReadOwnershipEnforced(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, nil)
	require.NoError(t, svc.Notify(context.Background(), "u1", models.NotificationSystem, "t", "m", NotifyOptions{}))

	var id string
	for k := range repo.notifications {
		id = k
	}

	err := svc.MarkRead(context.Background(), "intruder", id)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.False(t, repo.notifications[id].Read)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := NewNotificationService(newMockNotificationRepo(), nil)
	err := svc.MarkRead(context.Background(), "u1", "missing")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestListUnreadFilter(t *testing.T) {
	repo := newMockNotificationRepo()
	svc := NewNotificationService(repo, nil)
	require.NoError(t, svc.Notify(context.Background(), "u1", models.NotificationSystem, "a", "m", NotifyOptions{}))
	require.NoError(t, svc.Notify(context.Background(), "u1", models.NotificationSystem, "b", "m", NotifyOptions{}))

	var first string
	for k := range repo.notifications {
		first = k
		break
	}
	require.NoError(t, svc.MarkRead(context.Background(), "u1", first))

	unread, _, err := svc.List(context.Background(), "u1", true, 1, 20)
	require.NoError(t, err)
	assert.Len(t, unread, 1)

	all, pagination, err := svc.List(context.Background(), "u1", false, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
}
