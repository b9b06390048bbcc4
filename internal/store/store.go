// Package store answers the read-side queries of the planner: listings,
// dashboards, warnings and the small reference tables.
package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
)

// Store defines the interface for all read-side database operations.
type Store interface {
	DB() *gorm.DB

	EventsInRange(ctx context.Context, start, end time.Time) ([]EventListing, error)
	OpenEvents(ctx context.Context) ([]model.Event, error)
	EventResources(ctx context.Context, eventID int64) ([]LinkedResource, error)

	KPI(ctx context.Context) (*KPI, error)
	DeadlineWarnings(ctx context.Context, today time.Time, within int) ([]DeadlineWarning, error)
	ParticipantWarnings(ctx context.Context, today time.Time, trainingTypes []string) ([]ParticipantWarning, error)
	Schedule(ctx context.Context, start, end time.Time) ([]ScheduleEntry, error)
	StatusTable(ctx context.Context, start, end time.Time) ([]StatusRow, error)

	AddHoliday(ctx context.Context, start, end time.Time, name string) (*model.Holiday, error)
	Holidays(ctx context.Context, start, end time.Time) ([]model.Holiday, error)
	Trainings(ctx context.Context) ([]model.Training, error)
	UserByCode(ctx context.Context, code string) (*model.User, error)

	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	Subscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// EventsInRange lists the events lying entirely inside [start, end] with
// their resources and participants.
func (s *gormStore) EventsInRange(ctx context.Context, start, end time.Time) ([]EventListing, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Where("event_start_date >= ? AND event_end_date <= ?", parse.Day(start), parse.Day(end)).
		Order("event_start_date, event_id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	if len(events) == 0 {
		return []EventListing{}, nil
	}

	ids := make([]int64, len(events))
	for i, ev := range events {
		ids[i] = ev.ID
	}

	var links []LinkedResource
	if err := s.linkedResources(ctx, ids).Scan(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list event resources: %w", err)
	}
	byEvent := make(map[int64][]LinkedResource)
	for _, l := range links {
		byEvent[l.EventID] = append(byEvent[l.EventID], l)
	}

	var parts []model.Participants
	if err := s.db.WithContext(ctx).Where("event_id IN ?", ids).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	partMap := make(map[int64]model.Participants, len(parts))
	for _, p := range parts {
		partMap[p.EventID] = p
	}

	out := make([]EventListing, len(events))
	for i, ev := range events {
		out[i] = EventListing{Event: ev, Resources: byEvent[ev.ID]}
		if out[i].Resources == nil {
			out[i].Resources = []LinkedResource{}
		}
		if p, ok := partMap[ev.ID]; ok {
			out[i].Participants = &p
		}
	}
	return out, nil
}

func (s *gormStore) linkedResources(ctx context.Context, eventIDs []int64) *gorm.DB {
	return s.db.WithContext(ctx).Table("event_resources er").
		Select("er.event_id, er.resource_id, r.resource_name, r.resource_category_id, er.assign_status").
		Joins("JOIN resources r ON r.resource_id = er.resource_id").
		Where("er.event_id IN ?", eventIDs).
		Order("er.event_id, r.resource_category_id, r.resource_name")
}

// OpenEvents lists every event that has not been executed yet.
func (s *gormStore) OpenEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	err := s.db.WithContext(ctx).
		Where("event_status <> ?", model.StatusExecuted).
		Order("event_start_date, event_id").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open events: %w", err)
	}
	return events, nil
}

// EventResources lists the resources linked to one event.
func (s *gormStore) EventResources(ctx context.Context, eventID int64) ([]LinkedResource, error) {
	links := []LinkedResource{}
	if err := s.linkedResources(ctx, []int64{eventID}).Scan(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources of event %d: %w", eventID, err)
	}
	return links, nil
}

// KPI computes the dashboard counters.
func (s *gormStore) KPI(ctx context.Context) (*KPI, error) {
	k := &KPI{ByType: []TypeCount{}}
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Event{}).Where("event_status = ?", model.StatusReserved).Count(&k.Planned).Error; err != nil {
		return nil, fmt.Errorf("failed to count planned events: %w", err)
	}
	if err := db.Model(&model.Event{}).Where("event_status = ?", model.StatusExecuted).Count(&k.Executed).Error; err != nil {
		return nil, fmt.Errorf("failed to count executed events: %w", err)
	}
	if err := db.Model(&model.Participants{}).Select("COALESCE(SUM(total_part), 0)").Scan(&k.Participants).Error; err != nil {
		return nil, fmt.Errorf("failed to sum participants: %w", err)
	}
	if err := db.Model(&model.Message{}).Where("message_status = ?", model.MessageNotRead).Count(&k.UnreadMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	err := db.Model(&model.Event{}).
		Select("event_type, COUNT(*) AS total").
		Group("event_type").
		Order("event_type").
		Scan(&k.ByType).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count events by type: %w", err)
	}
	return k, nil
}

// DeadlineWarnings lists Reserved events whose confirmation deadline falls
// on or before today+within days, soonest first. Overdue events are included
// with a negative DaysLeft.
func (s *gormStore) DeadlineWarnings(ctx context.Context, today time.Time, within int) ([]DeadlineWarning, error) {
	limit := parse.Day(today).AddDate(0, 0, within)
	out := []DeadlineWarning{}
	err := s.db.WithContext(ctx).Model(&model.Event{}).
		Select("event_id, event_name, event_start_date, event_confirmation_deadline").
		Where("event_status = ? AND event_confirmation_deadline <= ?", model.StatusReserved, limit).
		Order("event_confirmation_deadline, event_id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list deadline warnings: %w", err)
	}
	for i := range out {
		out[i].DaysLeft = parse.DaysBetween(today, out[i].ConfirmationDeadline)
	}
	return out, nil
}

// ParticipantWarnings lists upcoming trainings that have fewer inscribed
// than required participants.
func (s *gormStore) ParticipantWarnings(ctx context.Context, today time.Time, trainingTypes []string) ([]ParticipantWarning, error) {
	out := []ParticipantWarning{}
	if len(trainingTypes) == 0 {
		return out, nil
	}
	err := s.db.WithContext(ctx).Table("events e").
		Select("e.event_id, e.event_name, e.event_type, e.event_start_date, p.required_participants, p.inscribed_participants").
		Joins("JOIN participants p ON p.event_id = e.event_id").
		Where("e.event_type IN ?", trainingTypes).
		Where("e.event_status <> ?", model.StatusExecuted).
		Where("e.event_start_date >= ?", parse.Day(today)).
		Where("p.inscribed_participants < p.required_participants").
		Order("e.event_start_date, e.event_id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participant warnings: %w", err)
	}
	for i := range out {
		out[i].DaysToGo = parse.DaysBetween(today, out[i].StartDate)
	}
	return out, nil
}

// scheduleCategories are the categories shown on the monthly schedule.
var scheduleCategories = []int64{model.CategoryRoom, model.CategoryWorkstation}

// Schedule lists the ledger intervals of rooms and workstations that
// intersect [start, end].
func (s *gormStore) Schedule(ctx context.Context, start, end time.Time) ([]ScheduleEntry, error) {
	out := []ScheduleEntry{}
	err := s.db.WithContext(ctx).Table("resource_status_history h").
		Select("h.temporal_status_id, h.resource_id, r.resource_name, r.resource_category_id, h.status_type, h.start_date, h.end_date, h.details").
		Joins("JOIN resources r ON r.resource_id = h.resource_id").
		Where("r.resource_category_id IN ?", scheduleCategories).
		Where("h.start_date <= ? AND (h.end_date >= ? OR h.end_date IS NULL)", parse.Day(end), parse.Day(start)).
		Order("r.resource_category_id, r.resource_name, h.start_date").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build schedule: %w", err)
	}
	return out, nil
}

// StatusTable lists the events starting inside [start, end] with their
// enrolment figures.
func (s *gormStore) StatusTable(ctx context.Context, start, end time.Time) ([]StatusRow, error) {
	out := []StatusRow{}
	err := s.db.WithContext(ctx).Table("events e").
		Select("e.event_id, e.event_name, e.event_type, e.event_start_date, e.event_end_date, e.event_status, e.event_confirmation_deadline, "+
			"p.required_participants, p.inscribed_participants, p.total_part").
		Joins("LEFT JOIN participants p ON p.event_id = e.event_id").
		Where("e.event_start_date >= ? AND e.event_start_date <= ?", parse.Day(start), parse.Day(end)).
		Order("e.event_start_date, e.event_id").
		Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to build status table: %w", err)
	}
	return out, nil
}

// AddHoliday stores a blocked-out range.
func (s *gormStore) AddHoliday(ctx context.Context, start, end time.Time, name string) (*model.Holiday, error) {
	h := model.Holiday{StartDate: parse.Day(start), EndDate: parse.Day(end), Holiday: name}
	if err := s.db.WithContext(ctx).Create(&h).Error; err != nil {
		return nil, fmt.Errorf("failed to add holiday: %w", err)
	}
	return &h, nil
}

// Holidays lists the holidays intersecting [start, end].
func (s *gormStore) Holidays(ctx context.Context, start, end time.Time) ([]model.Holiday, error) {
	out := []model.Holiday{}
	err := s.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", parse.Day(end), parse.Day(start)).
		Order("start_date").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list holidays: %w", err)
	}
	return out, nil
}

// Trainings lists the event-name catalog.
func (s *gormStore) Trainings(ctx context.Context) ([]model.Training, error) {
	out := []model.Training{}
	if err := s.db.WithContext(ctx).Order("training_type, training_name").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list trainings: %w", err)
	}
	return out, nil
}

// UserByCode finds an operator by login code.
func (s *gormStore) UserByCode(ctx context.Context, code string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", code).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// SaveSubscription creates or replaces a push subscription.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_code", "message_types"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription: %w", err)
	}
	return nil
}

// Subscription loads one push subscription.
func (s *gormStore) Subscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	if err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes a push subscription.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{}, "endpoint = ?", endpoint).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}
