package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mkatta/pushgate/pkg/database"
	"github.com/mkatta/pushgate/pkg/models"
	"github.com/mkatta/pushgate/pkg/queue"
	"github.com/mkatta/pushgate/pkg/repositories"
	"github.com/mkatta/pushgate/pkg/webpush"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []string
	failures map[string]error
}

func (f *fakeSender) Send(_ context.Context, _ webpush.VAPIDIdentity, target webpush.Endpoint, _ webpush.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[target.URL]; ok {
		return err
	}
	f.sent = append(f.sent, target.URL)
	return nil
}

type fixture struct {
	db            *gorm.DB
	dispatcher    *Dispatcher
	sender        *fakeSender
	notifications *repositories.NotificationRepository
	subscriptions *repositories.SubscriptionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.MigrateDB(db))

	sender := &fakeSender{failures: map[string]error{}}
	notifications := repositories.NewNotificationRepository(db)
	subscriptions := repositories.NewSubscriptionRepository(db)

	return &fixture{
		db:            db,
		sender:        sender,
		notifications: notifications,
		subscriptions: subscriptions,
		dispatcher: NewDispatcher(
			notifications,
			subscriptions,
			sender,
			otel.Tracer("test"),
			zap.NewNop(),
			8,
		),
	}
}

func (f *fixture) seedProject(t *testing.T, active bool) *models.Project {
	t.Helper()
	user := &models.User{Email: uuid.NewString() + "@example.com", Password: "x"}
	require.NoError(t, f.db.Create(user).Error)
	project := &models.Project{
		UserID:          user.ID,
		Name:            "p",
		APIKey:          uuid.NewString(),
		VapidPublicKey:  "pub",
		VapidPrivateKey: "priv",
		VapidEmail:      "mailto:ops@example.com",
		IsActive:        active,
	}
	require.NoError(t, f.db.Create(project).Error)
	return project
}

func (f *fixture) seedSubscription(t *testing.T, projectID uuid.UUID, endpoint, browser string) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		ProjectID:   projectID,
		Endpoint:    endpoint,
		P256dhKey:   "p",
		AuthKey:     "a",
		IsActive:    true,
		BrowserName: browser,
	}
	require.NoError(t, f.db.Create(sub).Error)
	return sub
}

func (f *fixture) seedNotification(t *testing.T, projectID uuid.UUID, targetType, criteria string) *models.Notification {
	t.Helper()
	notification := &models.Notification{
		ProjectID:      projectID,
		Title:          "t",
		Body:           "b",
		TargetType:     targetType,
		TargetCriteria: criteria,
		Status:         models.StatusDraft,
	}
	require.NoError(t, f.db.Create(notification).Error)
	return notification
}

func TestHandleFansOutToAllActive(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	f.seedSubscription(t, project.ID, "https://push.example.com/a", "Chrome")
	f.seedSubscription(t, project.ID, "https://push.example.com/b", "Firefox")
	notification := f.seedNotification(t, project.ID, models.TargetAll, "")

	err := f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID})
	require.NoError(t, err)

	stored, err := f.notifications.GetByID(notification.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSent, stored.Status)
	require.Equal(t, 2, stored.TotalSent)
	require.Zero(t, stored.TotalFailed)
	require.NotNil(t, stored.SentAt)

	logs, err := f.notifications.ListLogs(notification.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
}

func TestHandleIsolatesEndpointFailures(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	f.seedSubscription(t, project.ID, "https://push.example.com/a", "Chrome")
	f.seedSubscription(t, project.ID, "https://push.example.com/b", "Chrome")
	f.sender.failures["https://push.example.com/b"] = errors.New("connection refused")
	notification := f.seedNotification(t, project.ID, models.TargetAll, "")

	err := f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID})
	require.NoError(t, err)

	stored, err := f.notifications.GetByID(notification.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TotalSent)
	require.Equal(t, 1, stored.TotalFailed)

	logs, err := f.notifications.ListLogs(notification.ID)
	require.NoError(t, err)
	statuses := map[string]string{}
	for _, l := range logs {
		statuses[l.Status] = l.ErrorMessage
	}
	require.Contains(t, statuses, models.LogSent)
	require.Contains(t, statuses[models.LogFailed], "connection refused")
}

func TestHandleGoneEndpointIsDeactivatedAndExcluded(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	f.seedSubscription(t, project.ID, "https://push.example.com/a", "Chrome")
	gone := f.seedSubscription(t, project.ID, "https://push.example.com/b", "Chrome")
	f.seedSubscription(t, project.ID, "https://push.example.com/c", "Chrome")
	f.sender.failures["https://push.example.com/b"] = &webpush.SendError{StatusCode: http.StatusGone}

	first := f.seedNotification(t, project.ID, models.TargetAll, "")
	require.NoError(t, f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: first.ID}))

	stored, err := f.notifications.GetByID(first.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.TotalSent)
	require.Equal(t, 1, stored.TotalFailed)

	sub, err := f.subscriptions.GetByID(gone.ID, project.ID)
	require.NoError(t, err)
	require.False(t, sub.IsActive)

	second := f.seedNotification(t, project.ID, models.TargetAll, "")
	require.NoError(t, f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: second.ID}))

	stored, err = f.notifications.GetByID(second.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.TotalSent)
	require.Zero(t, stored.TotalFailed)

	logs, err := f.notifications.ListLogs(second.ID)
	require.NoError(t, err)
	for _, l := range logs {
		require.NotEqual(t, gone.ID, l.SubscriptionID)
	}
}

func TestHandleEmptyAudienceMarksSentWithZeros(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	notification := f.seedNotification(t, project.ID, models.TargetAll, "")

	require.NoError(t, f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID}))

	stored, err := f.notifications.GetByID(notification.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusSent, stored.Status)
	require.Zero(t, stored.TotalSent)
	require.Zero(t, stored.TotalFailed)
	require.Empty(t, f.sender.sent)
}

func TestHandleInactiveProjectIsFatal(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, false)
	f.seedSubscription(t, project.ID, "https://push.example.com/a", "Chrome")
	notification := f.seedNotification(t, project.ID, models.TargetAll, "")

	err := f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID})
	require.Error(t, err)
	require.True(t, queue.IsFatal(err))

	stored, getErr := f.notifications.GetByID(notification.ID, project.ID)
	require.NoError(t, getErr)
	require.Equal(t, models.StatusDraft, stored.Status)
	require.Empty(t, f.sender.sent)
}

func TestHandleMissingNotificationIsFatal(t *testing.T) {
	f := newFixture(t)

	err := f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: uuid.New()})
	require.Error(t, err)
	require.True(t, queue.IsFatal(err))
}

func TestHandleAlreadySentIsSkipped(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	f.seedSubscription(t, project.ID, "https://push.example.com/a", "Chrome")
	notification := f.seedNotification(t, project.ID, models.TargetAll, "")
	require.NoError(t, f.db.Model(notification).Update("status", models.StatusSent).Error)

	require.NoError(t, f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID}))
	require.Empty(t, f.sender.sent)
}

func TestHandleSegmentTargetsMatchingSubscriptions(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	f.seedSubscription(t, project.ID, "https://push.example.com/chrome", "Chrome")
	f.seedSubscription(t, project.ID, "https://push.example.com/firefox", "Firefox")
	notification := f.seedNotification(t, project.ID, models.TargetSegment, `{"browser":"chrome"}`)

	require.NoError(t, f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID}))

	stored, err := f.notifications.GetByID(notification.ID, project.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TotalSent)
	require.Equal(t, []string{"https://push.example.com/chrome"}, f.sender.sent)
}

func TestHandleMalformedCriteriaIsFatal(t *testing.T) {
	f := newFixture(t)
	project := f.seedProject(t, true)
	notification := f.seedNotification(t, project.ID, models.TargetSegment, "{not json")

	err := f.dispatcher.Handle(context.Background(), queue.Job{NotificationID: notification.ID})
	require.Error(t, err)
	require.True(t, queue.IsFatal(err))
}
