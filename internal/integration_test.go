package internal

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"training-planner-backend/config"
	"training-planner-backend/internal/availability"
	"training-planner-backend/internal/db"
	"training-planner-backend/internal/messagelog"
	"training-planner-backend/internal/model"
	"training-planner-backend/internal/reservation"
	"training-planner-backend/internal/store"
	"training-planner-backend/internal/sweeper"
)

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
}

func (n *recordingNotifier) Dispatch(id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, id)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ids)
}

// TestPlannerLifecycle books an event, lets the sweeper warn about its
// deadline, then cancels it and checks that no reservation survives.
func TestPlannerLifecycle(t *testing.T) {
	gdb, err := db.Init(&config.DatabaseConfig{
		Driver: db.DriverSQLite,
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)

	require.NoError(t, gdb.Create(&[]model.Resource{
		{ID: 1, Name: "Room A", CategoryID: model.CategoryRoom, Status: model.ResourceActive},
		{ID: 2, Name: "Ana Silva", CategoryID: model.CategoryTrainer, Status: model.ResourceActive},
	}).Error)

	now := time.Date(2024, 2, 20, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	notifier := &recordingNotifier{}
	messages := messagelog.New(gdb, notifier)
	appStore := store.NewGormStore(gdb)
	planner := reservation.New(gdb, messages, reservation.Options{
		ConfirmationDays: 7,
		TrainingTypes:    []string{"Training P", "Training I"},
		Transactional:    true,
		Now:              clock,
	})
	ctx := context.Background()

	// --- Book ---
	res := planner.CreateEvent(ctx, reservation.EventRequest{
		Name:      "Forklift Basics",
		Type:      "Training P",
		StartDate: "2024-03-02",
		EndDate:   "2024-03-02",
		Resources: availability.Selections{
			"rooms":    {{ResourceID: 1}},
			"trainers": {{ResourceID: 2}},
		},
	}, "planner")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 1, notifier.count())

	clash := planner.CreateEvent(ctx, reservation.EventRequest{
		Name:      "Overlap",
		Type:      "Meeting",
		StartDate: "2024-03-02",
		EndDate:   "2024-03-03",
		Resources: availability.Selections{"rooms": {{ResourceID: 1}}},
	}, "planner")
	assert.False(t, clash.Success)
	assert.Equal(t, reservation.CodeConflict, clash.Code)

	// --- Warn: deadline 2024-02-24 is four days out, then three ---
	sweep := sweeper.NewService(appStore, messages, sweeper.Options{WarningDays: 3, Now: clock})
	posted, err := sweep.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, posted)

	now = now.AddDate(0, 0, 1)
	posted, err = sweep.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, posted)

	kpi, err := appStore.KPI(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), kpi.Planned)
	assert.Equal(t, int64(2), kpi.UnreadMessages)

	// --- Cancel ---
	cancelled := planner.CancelEvent(ctx, res.EventID)
	require.True(t, cancelled.Success, cancelled.Message)

	var rows int64
	require.NoError(t, gdb.Model(&model.ResourceStatusHistory{}).Count(&rows).Error)
	assert.Zero(t, rows)

	events, err := appStore.EventsInRange(ctx, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, events)

	// The room is free again.
	again := planner.CreateEvent(ctx, reservation.EventRequest{
		Name:      "Overlap",
		Type:      "Meeting",
		StartDate: "2024-03-02",
		EndDate:   "2024-03-03",
		Resources: availability.Selections{"rooms": {{ResourceID: 1}}},
	}, "planner")
	assert.True(t, again.Success, again.Message)
	assert.Equal(t, 4, notifier.count())
}
