// Package notification pushes appended inbox messages to subscribed browsers.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"training-planner-backend/internal/metrics"
	"training-planner-backend/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Payload is the JSON body delivered to the service worker.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	MessageID int64  `json:"message_id"`
}

// WorkerPool manages a pool of workers for sending notifications. Jobs are
// message ids.
type WorkerPool struct {
	size    int
	jobs    chan int64
	db      *gorm.DB
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	slog.Debug("push worker started", "worker", id)
	for {
		select {
		case messageID := <-wp.jobs:
			wp.sendNotificationsForMessage(ctx, messageID)
		case <-ctx.Done():
			slog.Debug("push worker shutting down", "worker", id)
			return
		}
	}
}

// Dispatch queues a message for delivery. It never blocks the caller; when
// the queue is full the message stays in the inbox only.
func (wp *WorkerPool) Dispatch(messageID int64) {
	select {
	case wp.jobs <- messageID:
	default:
		slog.Warn("push queue full, dropping notification", "message_id", messageID)
		metrics.PushSent.WithLabelValues("dropped").Inc()
	}
}

func (wp *WorkerPool) sendNotificationsForMessage(ctx context.Context, messageID int64) {
	var msg model.Message
	if err := wp.db.WithContext(ctx).First(&msg, messageID).Error; err != nil {
		slog.Error("failed to load message for push", "message_id", messageID, "error", err)
		return
	}

	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		slog.Error("failed to load push subscriptions", "message_id", messageID, "error", err)
		return
	}

	payload, err := json.Marshal(Payload{
		Title:     fmt.Sprintf("Planner %s", msg.Type),
		Body:      msg.Content,
		Type:      msg.Type,
		MessageID: msg.ID,
	})
	if err != nil {
		slog.Error("failed to encode push payload", "message_id", messageID, "error", err)
		return
	}

	for _, sub := range subscriptions {
		if !Wants(sub, msg.Type) {
			continue
		}
		wp.sendNotification(ctx, sub, payload)
	}
}

// Wants reports whether sub accepts messages of the given type.
func Wants(sub model.PushSubscription, messageType string) bool {
	if strings.TrimSpace(sub.MessageTypes) == "" {
		return true
	}
	for _, t := range strings.Split(sub.MessageTypes, ",") {
		if strings.EqualFold(strings.TrimSpace(t), messageType) {
			return true
		}
	}
	return false
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		slog.Warn("failed to send push notification", "endpoint", sub.Endpoint, "error", err)
		metrics.PushSent.WithLabelValues("failed").Inc()
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		slog.Info("push subscription expired, deleting", "endpoint", sub.Endpoint)
		metrics.PushSent.WithLabelValues("expired").Inc()
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			slog.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
		return
	}
	metrics.PushSent.WithLabelValues("sent").Inc()
}
