package store

import (
	"context"
	"database/sql/driver"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"training-planner-backend/config"
	"training-planner-backend/internal/db"
	"training-planner-backend/internal/model"
	"training-planner-backend/internal/parse"
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
	return gdb
}

func day(s string) time.Time {
	t, err := parse.Date(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}

func TestGormStore_OpenEventsQueryShape(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "events" WHERE event_status <> $1 ORDER BY event_start_date, event_id`)).
		WithArgs(model.StatusExecuted).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "event_name", "event_status"}).
			AddRow(3, "Forklift", model.StatusReserved))

	events, err := s.OpenEvents(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Forklift", events[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_DeadlineWarningsQueryShape(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)
	today := day("2024-03-01")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT event_id, event_name, event_start_date, event_confirmation_deadline FROM "events" WHERE event_status = $1 AND event_confirmation_deadline <= $2 ORDER BY event_confirmation_deadline, event_id`)).
		WithArgs(model.StatusReserved, Any{}).
		WillReturnRows(sqlmock.NewRows([]string{"event_id", "event_name", "event_start_date", "event_confirmation_deadline"}).
			AddRow(4, "Crane", day("2024-03-10"), day("2024-03-03")))

	warnings, err := s.DeadlineWarnings(context.Background(), today, 3)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, 2, warnings[0].DaysLeft)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fixture struct {
	db       *gorm.DB
	store    Store
	training model.Event
	meeting  model.Event
	executed model.Event
}

func seed(t *testing.T) fixture {
	t.Helper()
	gdb := openSQLite(t)
	resources := []model.Resource{
		{ID: 1, Name: "Room A", CategoryID: model.CategoryRoom, Status: model.ResourceActive},
		{ID: 2, Name: "Ana Silva", CategoryID: model.CategoryTrainer, Status: model.ResourceActive},
		{ID: 3, Name: "Desk 3", CategoryID: model.CategoryWorkstation, Status: model.ResourceActive},
	}
	require.NoError(t, gdb.Create(&resources).Error)

	f := fixture{
		db:    gdb,
		store: NewGormStore(gdb),
		training: model.Event{Name: "Safety", Type: "Training I", StartDate: day("2024-03-10"), EndDate: day("2024-03-12"),
			Status: model.StatusReserved, ConfirmationDeadline: day("2024-03-03")},
		meeting: model.Event{Name: "Kickoff", Type: "Meeting", StartDate: day("2024-03-20"), EndDate: day("2024-03-20"),
			Status: model.StatusConfirmed, ConfirmationDeadline: day("2024-03-13")},
		executed: model.Event{Name: "Forklift", Type: "Training P", StartDate: day("2024-02-01"), EndDate: day("2024-02-02"),
			Status: model.StatusExecuted, ConfirmationDeadline: day("2024-01-25")},
	}
	require.NoError(t, gdb.Create(&f.training).Error)
	require.NoError(t, gdb.Create(&f.meeting).Error)
	require.NoError(t, gdb.Create(&f.executed).Error)

	require.NoError(t, gdb.Create(&model.Participants{EventID: f.training.ID, RequiredParticipants: 10, InscribedParticipants: 4}).Error)
	require.NoError(t, gdb.Create(&model.Participants{EventID: f.executed.ID, RequiredParticipants: 6, InscribedParticipants: 6, TotalPart: 5}).Error)

	links := []model.EventResource{
		{EventID: f.training.ID, ResourceID: 1, AssignStatus: model.StatusReserved},
		{EventID: f.training.ID, ResourceID: 2, AssignStatus: model.StatusReserved},
		{EventID: f.meeting.ID, ResourceID: 3, AssignStatus: model.StatusConfirmed},
	}
	require.NoError(t, gdb.Create(&links).Error)

	end := day("2024-03-12")
	meetingEnd := day("2024-03-20")
	rows := []model.ResourceStatusHistory{
		{ResourceID: 1, StatusType: model.StatusReserved, StartDate: day("2024-03-10"), EndDate: &end, Details: "Safety"},
		{ResourceID: 2, StatusType: model.StatusReserved, StartDate: day("2024-03-10"), EndDate: &end, Details: "Safety"},
		{ResourceID: 3, StatusType: model.StatusConfirmed, StartDate: day("2024-03-20"), EndDate: &meetingEnd, Details: "Kickoff"},
	}
	require.NoError(t, gdb.Create(&rows).Error)

	require.NoError(t, gdb.Create(&model.Message{Type: model.MessageTypeMessage, Content: "a", Status: model.MessageNotRead}).Error)
	require.NoError(t, gdb.Create(&model.Message{Type: model.MessageTypeMessage, Content: "b", Status: model.MessageRead}).Error)
	return f
}

func TestGormStore_EventsInRange(t *testing.T) {
	f := seed(t)

	events, err := f.store.EventsInRange(context.Background(), day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "Safety", events[0].Name)
	require.Len(t, events[0].Resources, 2)
	assert.Equal(t, "Room A", events[0].Resources[0].Name)
	assert.Equal(t, "Ana Silva", events[0].Resources[1].Name)
	require.NotNil(t, events[0].Participants)
	assert.Equal(t, 10, events[0].Participants.RequiredParticipants)

	assert.Equal(t, "Kickoff", events[1].Name)
	assert.Nil(t, events[1].Participants)

	// An event sticking out of the range is not listed.
	partial, err := f.store.EventsInRange(context.Background(), day("2024-03-11"), day("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, partial, 1)
	assert.Equal(t, "Kickoff", partial[0].Name)
}

func TestGormStore_OpenEventsAndResources(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	open, err := f.store.OpenEvents(ctx)
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, ev := range open {
		assert.NotEqual(t, model.StatusExecuted, ev.Status)
	}

	linked, err := f.store.EventResources(ctx, f.training.ID)
	require.NoError(t, err)
	ids := []int64{linked[0].ResourceID, linked[1].ResourceID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)

	none, err := f.store.EventResources(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGormStore_KPI(t *testing.T) {
	f := seed(t)

	k, err := f.store.KPI(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), k.Planned)
	assert.Equal(t, int64(1), k.Executed)
	assert.Equal(t, int64(5), k.Participants)
	assert.Equal(t, int64(1), k.UnreadMessages)
	assert.Equal(t, []TypeCount{
		{Type: "Meeting", Total: 1},
		{Type: "Training I", Total: 1},
		{Type: "Training P", Total: 1},
	}, k.ByType)
}

func TestGormStore_Warnings(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	deadlines, err := f.store.DeadlineWarnings(ctx, day("2024-03-01"), 3)
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.Equal(t, f.training.ID, deadlines[0].EventID)
	assert.Equal(t, 2, deadlines[0].DaysLeft)

	deadlines, err = f.store.DeadlineWarnings(ctx, day("2024-02-20"), 3)
	require.NoError(t, err)
	assert.Empty(t, deadlines)

	parts, err := f.store.ParticipantWarnings(ctx, day("2024-03-01"), []string{"Training P", "Training I"})
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, 10, parts[0].Required)
	assert.Equal(t, 4, parts[0].Inscribed)
	assert.Equal(t, 9, parts[0].DaysToGo)

	parts, err = f.store.ParticipantWarnings(ctx, day("2024-03-01"), nil)
	require.NoError(t, err)
	assert.Empty(t, parts)
}

func TestGormStore_ScheduleAndStatusTable(t *testing.T) {
	f := seed(t)
	ctx := context.Background()

	schedule, err := f.store.Schedule(ctx, day("2024-03-01"), day("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, schedule, 2)
	assert.Equal(t, "Room A", schedule[0].Name)
	assert.Equal(t, "Desk 3", schedule[1].Name)
	assert.Equal(t, "2024-03-20", parse.Format(schedule[1].StartDate))

	table, err := f.store.StatusTable(ctx, day("2024-02-01"), day("2024-03-15"))
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "Forklift", table[0].Name)
	require.NotNil(t, table[0].Total)
	assert.Equal(t, 5, *table[0].Total)
	assert.Equal(t, "Safety", table[1].Name)
	require.NotNil(t, table[1].Inscribed)
	assert.Equal(t, 4, *table[1].Inscribed)
}

func TestGormStore_ReferenceTables(t *testing.T) {
	gdb := openSQLite(t)
	s := NewGormStore(gdb)
	ctx := context.Background()

	_, err := s.AddHoliday(ctx, day("2024-12-24"), day("2024-12-26"), "Christmas")
	require.NoError(t, err)
	_, err = s.AddHoliday(ctx, day("2024-04-25"), day("2024-04-25"), "Freedom Day")
	require.NoError(t, err)

	hols, err := s.Holidays(ctx, day("2024-12-01"), day("2024-12-24"))
	require.NoError(t, err)
	require.Len(t, hols, 1)
	assert.Equal(t, "Christmas", hols[0].Holiday)

	require.NoError(t, gdb.Create(&[]model.Training{
		{Name: "Safety", Type: "Training P"},
		{Name: "Advanced welding", Type: "Training I"},
	}).Error)
	trainings, err := s.Trainings(ctx)
	require.NoError(t, err)
	require.Len(t, trainings, 2)
	assert.Equal(t, "Advanced welding", trainings[0].Name)

	require.NoError(t, gdb.Create(&model.User{Username: "ops01", Role: "admin"}).Error)
	u, err := s.UserByCode(ctx, "ops01")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
	_, err = s.UserByCode(ctx, "nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGormStore_Subscriptions(t *testing.T) {
	s := NewGormStore(openSQLite(t))
	ctx := context.Background()

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k1", Auth: "a1", UserCode: "ops01"}
	require.NoError(t, s.SaveSubscription(ctx, sub))

	replaced := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k2", Auth: "a2", UserCode: "ops01", MessageTypes: "warning"}
	require.NoError(t, s.SaveSubscription(ctx, replaced))

	got, err := s.Subscription(ctx, "https://push.example/1")
	require.NoError(t, err)
	assert.Equal(t, "k2", got.P256DH)
	assert.Equal(t, "warning", got.MessageTypes)

	require.NoError(t, s.DeleteSubscription(ctx, "https://push.example/1"))
	_, err = s.Subscription(ctx, "https://push.example/1")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
