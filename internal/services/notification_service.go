package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"talentdesk/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	notificationQueueKey      = "talentdesk:notifications:pending"
	notificationDeadLetterKey = "talentdesk:notifications:dead"
	maxNotificationAttempts   = 3
	dispatchTimeout           = 5 * time.Second
)

// NotificationDispatcher hands notifications to the delivery queue without
// blocking the caller. Dispatch never reports failure; problems are logged.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, notification models.Notification)
	// Wait blocks until in-flight dispatches have finished.
	Wait()
}

type redisDispatcher struct {
	client *redis.Client
	logger *zap.Logger
	wg     sync.WaitGroup
}

func NewNotificationDispatcher(client *redis.Client, logger *zap.Logger) NotificationDispatcher {
	return &redisDispatcher{client: client, logger: logger}
}

func (d *redisDispatcher) Dispatch(ctx context.Context, notification models.Notification) {
	if notification.ID == uuid.Nil {
		notification.ID = uuid.New()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dispatchTimeout)
		defer cancel()

		payload, err := json.Marshal(notification)
		if err == nil {
			err = d.client.RPush(ctx, notificationQueueKey, payload).Err()
		}
		if err != nil {
			d.logger.Warn("notification dispatch failed",
				zap.String("notification_id", notification.ID.String()),
				zap.String("kind", notification.Kind),
				zap.Error(err),
			)
		}
	}()
}

func (d *redisDispatcher) Wait() {
	d.wg.Wait()
}

// NotificationSender delivers one notification.
type NotificationSender interface {
	Send(ctx context.Context, notification models.Notification) error
}

type logSender struct {
	logger *zap.Logger
}

// NewLogSender records notifications in the log instead of delivering them.
func NewLogSender(logger *zap.Logger) NotificationSender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(ctx context.Context, notification models.Notification) error {
	s.logger.Info("notification",
		zap.String("notification_id", notification.ID.String()),
		zap.String("recipient", notification.Recipient),
		zap.String("kind", notification.Kind),
		zap.Any("context", notification.Context),
	)
	return nil
}

type webhookSender struct {
	client *resty.Client
	url    string
}

// NewWebhookSender posts notifications as JSON to url.
func NewWebhookSender(url string, timeout time.Duration) NotificationSender {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &webhookSender{client: client, url: url}
}

func (s *webhookSender) Send(ctx context.Context, notification models.Notification) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("X-Notification-ID", notification.ID.String()).
		SetBody(notification).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

// NotificationWorker drains the delivery queue.
type NotificationWorker interface {
	Drain(ctx context.Context, max int) (int, error)
}

type notificationWorker struct {
	client *redis.Client
	sender NotificationSender
	logger *zap.Logger
}

func NewNotificationWorker(client *redis.Client, sender NotificationSender, logger *zap.Logger) NotificationWorker {
	return &notificationWorker{client: client, sender: sender, logger: logger}
}

// Drain delivers up to max queued notifications and returns how many were
// delivered. Failed deliveries are requeued until they run out of attempts
// and then parked on the dead-letter list.
func (w *notificationWorker) Drain(ctx context.Context, max int) (int, error) {
	delivered := 0
	for i := 0; i < max; i++ {
		payload, err := w.client.LPop(ctx, notificationQueueKey).Bytes()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return delivered, fmt.Errorf("pop notification: %w", err)
		}

		var notification models.Notification
		if err := json.Unmarshal(payload, &notification); err != nil {
			w.logger.Error("dropping undecodable notification", zap.ByteString("payload", payload), zap.Error(err))
			continue
		}

		if err := w.sender.Send(ctx, notification); err != nil {
			w.retry(ctx, notification, err)
			continue
		}
		delivered++
	}
	return delivered, nil
}

func (w *notificationWorker) retry(ctx context.Context, notification models.Notification, cause error) {
	notification.Attempts++
	notification.LastError = cause.Error()

	key := notificationQueueKey
	if notification.Attempts >= maxNotificationAttempts {
		key = notificationDeadLetterKey
	}

	fields := []zap.Field{
		zap.String("notification_id", notification.ID.String()),
		zap.String("kind", notification.Kind),
		zap.Int("attempts", notification.Attempts),
		zap.Error(cause),
	}
	payload, err := json.Marshal(notification)
	if err == nil {
		err = w.client.RPush(ctx, key, payload).Err()
	}
	if err != nil {
		w.logger.Error("notification lost", append(fields, zap.NamedError("requeue_error", err))...)
		return
	}
	if key == notificationDeadLetterKey {
		w.logger.Error("notification moved to dead letter queue", fields...)
		return
	}
	w.logger.Warn("notification delivery failed, requeued", fields...)
}
