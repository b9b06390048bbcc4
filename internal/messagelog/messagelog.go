// Package messagelog is the append-only audit trail read by the inbox.
package messagelog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"training-planner-backend/internal/model"
)

// Notifier is told about every appended message.
type Notifier interface {
	Dispatch(messageID int64)
}

// Log reads and writes the messages table.
type Log struct {
	db       *gorm.DB
	notifier Notifier
}

// New returns a log bound to db. notifier may be nil.
func New(db *gorm.DB, notifier Notifier) *Log {
	return &Log{db: db, notifier: notifier}
}

// Append writes an unread message and hands it to the notifier.
func (l *Log) Append(ctx context.Context, messageType, content string) (int64, error) {
	msg := model.Message{Type: messageType, Content: content, Status: model.MessageNotRead}
	if err := l.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return 0, fmt.Errorf("failed to append %s message: %w", messageType, err)
	}
	if l.notifier != nil {
		l.notifier.Dispatch(msg.ID)
	}
	return msg.ID, nil
}

// List returns messages of the given type and read state, newest first.
// Empty arguments match everything.
func (l *Log) List(ctx context.Context, messageType, status string) ([]model.Message, int64, error) {
	q := l.db.WithContext(ctx).Model(&model.Message{})
	if messageType != "" {
		q = q.Where("message_type = ?", messageType)
	}
	if status != "" {
		q = q.Where("message_status = ?", status)
	}
	var msgs []model.Message
	if err := q.Order("message_id DESC").Find(&msgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	return msgs, int64(len(msgs)), nil
}

// Get loads one message.
func (l *Log) Get(ctx context.Context, id int64) (*model.Message, error) {
	var msg model.Message
	if err := l.db.WithContext(ctx).First(&msg, "message_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead flags a message as read. It returns gorm.ErrRecordNotFound for an
// unknown id.
func (l *Log) MarkRead(ctx context.Context, id int64) error {
	res := l.db.WithContext(ctx).Model(&model.Message{}).
		Where("message_id = ?", id).
		Update("message_status", model.MessageRead)
	if res.Error != nil {
		return fmt.Errorf("failed to mark message %d as read: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountUnread returns the number of unread messages.
func (l *Log) CountUnread(ctx context.Context) (int64, error) {
	var n int64
	err := l.db.WithContext(ctx).Model(&model.Message{}).
		Where("message_status = ?", model.MessageNotRead).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}
