package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"training-planner-backend/config"
	"training-planner-backend/internal/db"
	"training-planner-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: sqlDB,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Init(&config.DatabaseConfig{
		Driver: db.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	sqlDB, _ := gdb.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return gdb
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func TestLedger_OverlappingQueryShape(t *testing.T) {
	gdb, mock := newTestDB(t)
	l := New(gdb)

	mock.ExpectQuery(`SELECT \* FROM "resource_status_history" WHERE resource_id = \$1 AND .*end_date >= \$2 OR end_date IS NULL.* AND start_date <= \$3 ORDER BY start_date`).
		WithArgs(5, day("2024-03-01"), day("2024-03-03")).
		WillReturnRows(sqlmock.NewRows([]string{"temporal_status_id", "resource_id", "status_type", "start_date", "end_date"}).
			AddRow(1, 5, model.StatusReserved, day("2024-03-02"), day("2024-03-05")))

	rows, err := l.Overlapping(context.Background(), 5, day("2024-03-01"), ptr(day("2024-03-03")))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_OverlappingUnboundedRangeDropsUpperPredicate(t *testing.T) {
	gdb, mock := newTestDB(t)
	l := New(gdb)

	mock.ExpectQuery(`SELECT \* FROM "resource_status_history" WHERE resource_id = \$1 AND \(+end_date >= \$2 OR end_date IS NULL\)+ ORDER BY start_date$`).
		WithArgs(7, day("2024-05-01")).
		WillReturnRows(sqlmock.NewRows([]string{"temporal_status_id"}))

	rows, err := l.Overlapping(context.Background(), 7, day("2024-05-01"), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_DeleteRefusesEmptyFilter(t *testing.T) {
	gdb, mock := newTestDB(t)
	l := New(gdb)

	n, err := l.Delete(context.Background(), Filter{})
	assert.ErrorIs(t, err, ErrEmptyFilter)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_OverlapSemantics(t *testing.T) {
	ctx := context.Background()
	l := New(openSQLite(t))

	_, err := l.Record(ctx, Entry{ResourceID: 5, StatusType: model.StatusReserved, StartDate: day("2024-03-02"), EndDate: ptr(day("2024-03-05")), Details: "Existing"})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{ResourceID: 9, StatusType: "Maintenance", StartDate: day("2024-04-01"), Details: "open ended"})
	require.NoError(t, err)

	testCases := []struct {
		name     string
		resource int64
		start    string
		end      *time.Time
		expected int
	}{
		{name: "Covers the start", resource: 5, start: "2024-03-01", end: ptr(day("2024-03-03")), expected: 1},
		{name: "Touches the last day", resource: 5, start: "2024-03-05", end: ptr(day("2024-03-07")), expected: 1},
		{name: "Touches the first day", resource: 5, start: "2024-02-25", end: ptr(day("2024-03-02")), expected: 1},
		{name: "Ends the day before", resource: 5, start: "2024-02-25", end: ptr(day("2024-03-01")), expected: 0},
		{name: "Starts the day after", resource: 5, start: "2024-03-06", end: ptr(day("2024-03-09")), expected: 0},
		{name: "Other resource", resource: 6, start: "2024-03-01", end: ptr(day("2024-03-31")), expected: 0},
		{name: "Open ended entry far in the future", resource: 9, start: "2030-01-01", end: ptr(day("2030-01-02")), expected: 1},
		{name: "Open ended entry not yet started", resource: 9, start: "2024-03-01", end: ptr(day("2024-03-31")), expected: 0},
		{name: "Unbounded request", resource: 5, start: "2024-03-04", end: nil, expected: 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := l.Overlapping(ctx, tc.resource, day(tc.start), tc.end)
			require.NoError(t, err)
			assert.Len(t, rows, tc.expected)
		})
	}
}

func TestLedger_ActiveAndReserved(t *testing.T) {
	ctx := context.Background()
	l := New(openSQLite(t))
	l.now = func() time.Time { return time.Date(2024, 3, 3, 15, 0, 0, 0, time.UTC) }

	_, err := l.Record(ctx, Entry{ResourceID: 1, StatusType: model.StatusReserved, StartDate: day("2024-03-01"), EndDate: ptr(day("2024-03-03"))})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{ResourceID: 2, StatusType: "Repair", StartDate: day("2024-03-03")})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{ResourceID: 3, StatusType: model.StatusConfirmed, StartDate: day("2024-03-10"), EndDate: ptr(day("2024-03-12"))})
	require.NoError(t, err)

	today, err := l.Active(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, today, 2)
	assert.Equal(t, int64(1), today[0].ResourceID)
	assert.Equal(t, int64(2), today[1].ResourceID)

	one := int64(1)
	later, err := l.Active(ctx, &one, ptr(day("2024-03-04")))
	require.NoError(t, err)
	assert.Empty(t, later)

	byResource, err := l.ActiveByResource(ctx, ptr(day("2024-03-11")))
	require.NoError(t, err)
	assert.Len(t, byResource, 2)
	assert.Equal(t, model.StatusConfirmed, byResource[3].StatusType)
	assert.Equal(t, "Repair", byResource[2].StatusType)

	ids, err := l.ReservedResourceIDs(ctx, day("2024-03-02"), day("2024-03-10"))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)

	ids, err = l.ReservedResourceIDs(ctx, day("2024-02-01"), day("2024-02-28"))
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLedger_EventScopedUpdates(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	l := New(gdb)

	ev := model.Event{Name: "Forklift", Type: "Meeting", StartDate: day("2024-06-03"), EndDate: day("2024-06-04"), Status: model.StatusReserved}
	require.NoError(t, gdb.Create(&ev).Error)
	for _, rid := range []int64{10, 11} {
		require.NoError(t, gdb.Create(&model.EventResource{EventID: ev.ID, ResourceID: rid, AssignStatus: model.StatusReserved}).Error)
		_, err := l.Record(ctx, Entry{ResourceID: rid, StatusType: model.StatusReserved, StartDate: ev.StartDate, EndDate: ptr(ev.EndDate), Details: ev.Name})
		require.NoError(t, err)
	}
	// Same resource, other dates: not part of the event.
	_, err := l.Record(ctx, Entry{ResourceID: 10, StatusType: model.StatusReserved, StartDate: day("2024-07-01"), EndDate: ptr(day("2024-07-02"))})
	require.NoError(t, err)
	// Same dates, manual reason: not event-driven.
	_, err = l.Record(ctx, Entry{ResourceID: 11, StatusType: "Out of order", StartDate: ev.StartDate, EndDate: ptr(ev.EndDate)})
	require.NoError(t, err)

	n, err := l.SetStatusForEvent(ctx, ev, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = l.SetStatusForEvent(ctx, ev, model.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var confirmed int64
	gdb.Model(&model.ResourceStatusHistory{}).Where("status_type = ?", model.StatusConfirmed).Count(&confirmed)
	assert.Equal(t, int64(2), confirmed)

	n, err = l.DeleteForEvent(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var left []model.ResourceStatusHistory
	require.NoError(t, gdb.Order("temporal_status_id").Find(&left).Error)
	require.Len(t, left, 2)
	assert.Equal(t, model.StatusReserved, left[0].StatusType)
	assert.Equal(t, "Out of order", left[1].StatusType)
}

func TestLedger_DeleteByFilter(t *testing.T) {
	ctx := context.Background()
	l := New(openSQLite(t))

	id, err := l.Record(ctx, Entry{ResourceID: 4, StatusType: "Repair", StartDate: day("2024-01-01"), EndDate: ptr(day("2024-01-05"))})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{ResourceID: 4, StatusType: model.StatusReserved, StartDate: day("2024-09-01"), EndDate: ptr(day("2024-09-03"))})
	require.NoError(t, err)
	_, err = l.Record(ctx, Entry{ResourceID: 4, StatusType: "Repair", StartDate: day("2024-10-01")})
	require.NoError(t, err)

	n, err := l.Delete(ctx, Filter{ResourceIDs: []int64{4}, StartingFrom: ptr(day("2024-08-15"))})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	row, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Repair", row.StatusType)
	require.NotNil(t, row.EndDate)
	assert.Equal(t, "2024-01-05", row.EndDate.Format("2006-01-02"))

	n, err = l.Delete(ctx, Filter{ID: id})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = l.Get(ctx, id)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLedger_ForEventFindAndRestore(t *testing.T) {
	ctx := context.Background()
	gdb := openSQLite(t)
	l := New(gdb)

	ev := model.Event{Name: "Crane", Type: "Meeting", StartDate: day("2024-05-06"), EndDate: day("2024-05-07"), Status: model.StatusReserved}
	require.NoError(t, gdb.Create(&ev).Error)
	for _, rid := range []int64{20, 21} {
		require.NoError(t, gdb.Create(&model.EventResource{EventID: ev.ID, ResourceID: rid, AssignStatus: model.StatusReserved}).Error)
		_, err := l.Record(ctx, Entry{ResourceID: rid, StatusType: model.StatusReserved, StartDate: ev.StartDate, EndDate: ptr(ev.EndDate), Details: ev.Name})
		require.NoError(t, err)
	}

	all, err := l.ForEvent(ctx, ev, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	some, err := l.ForEvent(ctx, ev, []int64{21})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, int64(21), some[0].ResourceID)

	none, err := l.ForEvent(ctx, ev, []int64{})
	require.NoError(t, err)
	assert.Empty(t, none)

	found, err := l.Find(ctx, Filter{IDs: []int64{all[0].ID, all[1].ID}})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	n, err := l.Delete(ctx, Filter{IDs: []int64{all[0].ID, all[1].ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, l.Restore(ctx, all))
	back, err := l.ForEvent(ctx, ev, nil)
	require.NoError(t, err)
	require.Len(t, back, 2)
	assert.Equal(t, all[0].ID, back[0].ID)
	assert.Equal(t, "Crane", back[1].Details)

	_, err = l.Find(ctx, Filter{})
	assert.ErrorIs(t, err, ErrEmptyFilter)
}

func TestIsOverlapViolation(t *testing.T) {
	assert.True(t, IsOverlapViolation(&pgconn.PgError{Code: "23P01"}))
	assert.True(t, IsOverlapViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23P01"})))
	assert.False(t, IsOverlapViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsOverlapViolation(fmt.Errorf("plain")))
}
