// Package ledger stores the resource status history: interval records saying
// when a resource is unavailable and why. It performs no overlap policy of its
// own; callers decide what an overlap means.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
)

// ErrEmptyFilter is returned by Delete when the filter has no predicate.
var ErrEmptyFilter = errors.New("ledger: refusing to delete without a filter")

// exclusionViolation is the postgres SQLSTATE raised by an EXCLUDE constraint.
const exclusionViolation = "23P01"

// Entry describes an interval to record.
type Entry struct {
	ResourceID int64
	StatusType string
	StartDate  time.Time
	EndDate    *time.Time
	Details    string
	CreatedBy  string
}

// Filter selects rows to delete. Set fields are ANDed together.
type Filter struct {
	ID          int64
	IDs         []int64
	ResourceIDs []int64
	StatusTypes []string
	StartDate   *time.Time
	EndDate     *time.Time
	// StartingFrom matches rows whose start date is on or after the day.
	StartingFrom *time.Time
}

func (f Filter) empty() bool {
	return f.ID == 0 && len(f.IDs) == 0 && len(f.ResourceIDs) == 0 && len(f.StatusTypes) == 0 &&
		f.StartDate == nil && f.EndDate == nil && f.StartingFrom == nil
}

// Ledger reads and writes resource_status_history.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

// New returns a ledger bound to db.
func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// WithTx returns a copy of the ledger that issues every statement on tx.
func (l *Ledger) WithTx(tx *gorm.DB) *Ledger {
	return &Ledger{db: tx, now: l.now}
}

// Record appends one interval and returns its temporal_status_id.
func (l *Ledger) Record(ctx context.Context, e Entry) (int64, error) {
	row := model.ResourceStatusHistory{
		ResourceID: e.ResourceID,
		StatusType: e.StatusType,
		StartDate:  parse.Day(e.StartDate),
		Details:    e.Details,
		CreatedBy:  e.CreatedBy,
	}
	if e.EndDate != nil {
		end := parse.Day(*e.EndDate)
		row.EndDate = &end
	}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("failed to record interval for resource %d: %w", e.ResourceID, err)
	}
	return row.ID, nil
}

// Get loads one entry by id.
func (l *Ledger) Get(ctx context.Context, id int64) (*model.ResourceStatusHistory, error) {
	var row model.ResourceStatusHistory
	if err := l.db.WithContext(ctx).First(&row, "temporal_status_id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// where applies f to q.
func (f Filter) where(q *gorm.DB) *gorm.DB {
	if f.ID != 0 {
		q = q.Where("temporal_status_id = ?", f.ID)
	}
	if len(f.IDs) > 0 {
		q = q.Where("temporal_status_id IN ?", f.IDs)
	}
	if len(f.ResourceIDs) > 0 {
		q = q.Where("resource_id IN ?", f.ResourceIDs)
	}
	if len(f.StatusTypes) > 0 {
		q = q.Where("status_type IN ?", f.StatusTypes)
	}
	if f.StartDate != nil {
		q = q.Where("start_date = ?", parse.Day(*f.StartDate))
	}
	if f.EndDate != nil {
		q = q.Where("end_date = ?", parse.Day(*f.EndDate))
	}
	if f.StartingFrom != nil {
		q = q.Where("start_date >= ?", parse.Day(*f.StartingFrom))
	}
	return q
}

// Find returns every row matching f.
func (l *Ledger) Find(ctx context.Context, f Filter) ([]model.ResourceStatusHistory, error) {
	if f.empty() {
		return nil, ErrEmptyFilter
	}
	var rows []model.ResourceStatusHistory
	if err := f.where(l.db.WithContext(ctx)).Order("temporal_status_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find intervals: %w", err)
	}
	return rows, nil
}

// Delete removes every row matching f and returns the number removed.
func (l *Ledger) Delete(ctx context.Context, f Filter) (int64, error) {
	if f.empty() {
		return 0, ErrEmptyFilter
	}
	res := f.where(l.db.WithContext(ctx)).Delete(&model.ResourceStatusHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete intervals: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Restore re-inserts rows previously read from the ledger, keeping their ids.
func (l *Ledger) Restore(ctx context.Context, rows []model.ResourceStatusHistory) error {
	if len(rows) == 0 {
		return nil
	}
	restored := make([]model.ResourceStatusHistory, len(rows))
	copy(restored, rows)
	if err := l.db.WithContext(ctx).Create(&restored).Error; err != nil {
		return fmt.Errorf("failed to restore %d intervals: %w", len(rows), err)
	}
	return nil
}

// Active returns the entries covering asOf, optionally for one resource.
// A nil asOf means today.
func (l *Ledger) Active(ctx context.Context, resourceID *int64, asOf *time.Time) ([]model.ResourceStatusHistory, error) {
	day := parse.Day(l.now())
	if asOf != nil {
		day = parse.Day(*asOf)
	}
	q := l.db.WithContext(ctx).
		Where("start_date <= ? AND (end_date >= ? OR end_date IS NULL)", day, day)
	if resourceID != nil {
		q = q.Where("resource_id = ?", *resourceID)
	}
	var rows []model.ResourceStatusHistory
	if err := q.Order("resource_id, start_date, temporal_status_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query active intervals: %w", err)
	}
	return rows, nil
}

// ActiveByResource indexes Active(nil, asOf) by resource id. When several rows
// cover the day the one starting last wins.
func (l *Ledger) ActiveByResource(ctx context.Context, asOf *time.Time) (map[int64]model.ResourceStatusHistory, error) {
	rows, err := l.Active(ctx, nil, asOf)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]model.ResourceStatusHistory, len(rows))
	for _, r := range rows {
		out[r.ResourceID] = r
	}
	return out, nil
}

// Overlapping returns the entries of resourceID that intersect [start, end].
// A nil end means the range is unbounded.
func (l *Ledger) Overlapping(ctx context.Context, resourceID int64, start time.Time, end *time.Time) ([]model.ResourceStatusHistory, error) {
	q := l.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Where("(end_date >= ? OR end_date IS NULL)", parse.Day(start))
	if end != nil {
		q = q.Where("start_date <= ?", parse.Day(*end))
	}
	var rows []model.ResourceStatusHistory
	if err := q.Order("start_date").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query overlapping intervals for resource %d: %w", resourceID, err)
	}
	return rows, nil
}

// ReservedResourceIDs lists the distinct resources with any entry
// intersecting [start, end].
func (l *Ledger) ReservedResourceIDs(ctx context.Context, start, end time.Time) ([]int64, error) {
	var ids []int64
	err := l.db.WithContext(ctx).Model(&model.ResourceStatusHistory{}).
		Distinct("resource_id").
		Where("start_date <= ? AND (end_date >= ? OR end_date IS NULL)", parse.Day(end), parse.Day(start)).
		Order("resource_id").
		Pluck("resource_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reserved resources: %w", err)
	}
	return ids, nil
}

// eventRows scopes a query to the event-driven rows of ev: the resources
// linked to the event, with start and end matching the event dates exactly.
func (l *Ledger) eventRows(ctx context.Context, ev model.Event) *gorm.DB {
	linked := l.db.WithContext(ctx).Model(&model.EventResource{}).
		Select("resource_id").
		Where("event_id = ?", ev.ID)
	return l.db.WithContext(ctx).Model(&model.ResourceStatusHistory{}).
		Where("resource_id IN (?)", linked).
		Where("start_date = ? AND end_date = ?", parse.Day(ev.StartDate), parse.Day(ev.EndDate)).
		Where("status_type IN ?", model.EventDrivenStatuses)
}

// ForEvent returns the event-driven rows of ev, optionally limited to the
// given resources.
func (l *Ledger) ForEvent(ctx context.Context, ev model.Event, resourceIDs []int64) ([]model.ResourceStatusHistory, error) {
	q := l.eventRows(ctx, ev)
	if resourceIDs != nil {
		if len(resourceIDs) == 0 {
			return nil, nil
		}
		q = q.Where("resource_id IN ?", resourceIDs)
	}
	var rows []model.ResourceStatusHistory
	if err := q.Order("temporal_status_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read ledger rows for event %d: %w", ev.ID, err)
	}
	return rows, nil
}

// SetStatusForEvent moves the event-driven rows of ev to status.
func (l *Ledger) SetStatusForEvent(ctx context.Context, ev model.Event, status string) (int64, error) {
	res := l.eventRows(ctx, ev).Update("status_type", status)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to set ledger status for event %d: %w", ev.ID, res.Error)
	}
	return res.RowsAffected, nil
}

// DeleteForEvent removes the event-driven rows of ev.
func (l *Ledger) DeleteForEvent(ctx context.Context, ev model.Event) (int64, error) {
	res := l.eventRows(ctx, ev).Delete(&model.ResourceStatusHistory{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete ledger rows for event %d: %w", ev.ID, res.Error)
	}
	return res.RowsAffected, nil
}

// IsOverlapViolation reports whether err was raised by the postgres exclusion
// constraint on overlapping event-driven rows.
func IsOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == exclusionViolation
}
