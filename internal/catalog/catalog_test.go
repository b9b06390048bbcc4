package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"training-planner-backend/config"
	"training-planner-backend/internal/db"
	"training-planner-backend/internal/ledger"
	"training-planner-backend/internal/model"
)

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

func count(t *testing.T, gdb *gorm.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Table(table).Count(&n).Error)
	return n
}

func TestCatalog_CreateTrainerMapsFields(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)

	created, err := c.Create(context.Background(), "trainer", map[string]any{
		"trainerName":        "Ana Lima",
		"topic1":             "Safety",
		"topicOther":         "First aid",
		"pt":                 true,
		"en":                 "yes",
		"langOther":          "Italian",
		"travelAvailability": 1.0,
	})
	require.NoError(t, err)
	assert.Equal(t, "Trainer added successfully!", created.Message)
	assert.False(t, created.Reused)

	res, err := c.Get(context.Background(), created.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", res.Name)
	assert.Equal(t, model.CategoryTrainer, res.CategoryID)
	assert.Equal(t, model.ResourceActive, res.Status)

	var trainer model.Trainer
	require.NoError(t, gdb.First(&trainer, "resource_id = ?", created.ResourceID).Error)
	assert.Equal(t, "Ana Lima", trainer.Name)
	assert.Equal(t, "Safety", trainer.Topic1)
	assert.Equal(t, "First aid", trainer.TopicOther)
	assert.Equal(t, "Italian", trainer.LangOther)
	assert.True(t, trainer.PT)
	assert.True(t, trainer.EN)
	assert.False(t, trainer.SP)
	assert.True(t, trainer.Travel)
	assert.Equal(t, model.CategoryTrainer, trainer.CategoryID)
}

func TestCatalog_CreateVehicleUsesCategoryFieldAndRenames(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)

	created, err := c.Create(context.Background(), "vehicle", map[string]any{
		"license":         "AB-12-CD",
		"veh_category_id": "3",
		"VIN":             "1HGCM82633A004352",
		"system":          "ABS",
		"year":            2019.0,
		"cylinders":       "4",
	})
	require.NoError(t, err)

	var v model.Vehicle
	require.NoError(t, gdb.First(&v, "resource_id = ?", created.ResourceID).Error)
	assert.Equal(t, "AB-12-CD", v.License)
	assert.Equal(t, "1HGCM82633A004352", v.VIN)
	assert.Equal(t, "ABS", v.Systems)
	assert.Equal(t, 2019, v.Year)
	assert.Equal(t, 4, v.Cylinders)
	assert.Equal(t, model.CategoryVehicle, v.CategoryID)
}

func TestCatalog_CreateReusesResourceByName(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)
	ctx := context.Background()

	first, err := c.Create(ctx, "room", map[string]any{"room_name": "Auditorium", "room_capacity": 80})
	require.NoError(t, err)
	second, err := c.Create(ctx, "rooms", map[string]any{"room_name": "Auditorium", "room_capacity": 90})
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.ResourceID, second.ResourceID)
	assert.Equal(t, int64(1), count(t, gdb, "resources"))
	assert.Equal(t, int64(2), count(t, gdb, "rooms"))

	_, err = c.Create(ctx, "workstation", map[string]any{"workstation_name": "Auditorium"})
	assert.ErrorIs(t, err, ErrNameTaken)
	assert.Equal(t, int64(0), count(t, gdb, "workstations"))
}

func TestCatalog_CreateRejectsBadInput(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)
	ctx := context.Background()

	testCases := []struct {
		name     string
		kind     string
		attrs    map[string]any
		expected error
	}{
		{name: "Unknown kind", kind: "spaceship", attrs: map[string]any{}, expected: ErrUnknownKind},
		{name: "Missing name", kind: "multimedia", attrs: map[string]any{"multimedia_sn": "X1"}, expected: ErrInvalidInput},
		{name: "Unknown category", kind: "equipment", attrs: map[string]any{"equipment_name": "Drill", "equ_category_id": 99}, expected: ErrUnknownCategory},
		{name: "Bad status", kind: "workstation", attrs: map[string]any{"workstation_name": "WS1", "status": "Broken"}, expected: ErrInvalidInput},
		{name: "Bad number", kind: "workstation", attrs: map[string]any{"workstation_name": "WS2", "workstation_qty": "many"}, expected: ErrInvalidInput},
		{name: "Bad flag", kind: "multimedia", attrs: map[string]any{"multimedia_name": "TV", "use_out_cta": "maybe"}, expected: ErrInvalidInput},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := c.Create(ctx, tc.kind, tc.attrs)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
	assert.Equal(t, int64(0), count(t, gdb, "resources"))
}

func TestCatalog_CreateCompensatesGenericRow(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)

	err := gdb.Callback().Create().Before("gorm:create").Register("test:fail_trainers", func(tx *gorm.DB) {
		if tx.Statement.Table == "trainers" {
			tx.AddError(errors.New("injected failure"))
		}
	})
	require.NoError(t, err)

	_, err = c.Create(context.Background(), "trainer", map[string]any{"trainerName": "Rui"})
	require.ErrorContains(t, err, "injected failure")

	assert.Equal(t, int64(0), count(t, gdb, "resources"))
	assert.Equal(t, int64(0), count(t, gdb, "trainers"))
}

func TestCatalog_StationaryEquipmentLinksRoom(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)
	ctx := context.Background()

	room, err := c.Create(ctx, "room", map[string]any{"room_name": "Lab 1"})
	require.NoError(t, err)

	linked, err := c.Create(ctx, "equipment", map[string]any{
		"equipment_name":     "Lathe",
		"equipment_mobility": "stationary",
		"equipment_location": "Lab 1",
	})
	require.NoError(t, err)
	assert.NotZero(t, linked.RoomID)

	res, err := c.Get(ctx, linked.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "Lab 1", res.Location)

	unlinked, err := c.Create(ctx, "equipment", map[string]any{
		"equipment_name":     "Press",
		"equipment_mobility": "STATIONARY",
		"equipment_location": "Nowhere",
	})
	require.NoError(t, err)
	assert.Zero(t, unlinked.RoomID)

	mobile, err := c.Create(ctx, "equipment", map[string]any{
		"equipment_name":     "Cart",
		"equipment_mobility": "MOBILE",
		"equipment_location": "Lab 1",
	})
	require.NoError(t, err)
	assert.Zero(t, mobile.RoomID)

	assert.Equal(t, int64(1), count(t, gdb, "room_equipment"))

	rows, err := c.ListWithStatus(ctx, "room", nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lathe", rows[0]["equipment_names"])
	assert.Equal(t, room.ResourceID, asInt64(rows[0]["resource_id"]))
}

func TestCatalog_Listings(t *testing.T) {
	gdb := openSQLite(t)
	c := New(gdb)
	ctx := context.Background()

	a, err := c.Create(ctx, "multimedia", map[string]any{"multimedia_name": "Projector A"})
	require.NoError(t, err)
	b, err := c.Create(ctx, "multimedia", map[string]any{"multimedia_name": "Projector B"})
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(ctx, b.ResourceID, model.ResourceInactive))
	assert.ErrorIs(t, c.SetStatus(ctx, 999, model.ResourceInactive), gorm.ErrRecordNotFound)

	active, err := c.ListActive(ctx, "multimedia")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Projector A", active[0]["multimedia_name"])

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	_, err = ledger.New(gdb).Record(ctx, ledger.Entry{ResourceID: a.ResourceID, StatusType: model.StatusReserved, StartDate: start, EndDate: &end})
	require.NoError(t, err)

	asOf := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	all, err := c.ListWithStatus(ctx, "multimedia", &asOf)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.StatusReserved, all[0]["historical_status"])
	assert.Equal(t, "2024-03-01", all[0]["start_date"])
	assert.Equal(t, "2024-03-03", all[0]["end_date"])
	assert.Equal(t, model.ResourceActive, all[0]["status"])
	assert.Nil(t, all[1]["historical_status"])
	assert.Equal(t, model.ResourceInactive, all[1]["status"])
	_, hasEquipment := all[0]["equipment_names"]
	assert.False(t, hasEquipment)

	byCategory, err := c.ByCategory(ctx, model.CategoryMultimedia)
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	found, err := c.Resources(ctx, []int64{a.ResourceID, 12345})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	categories, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, categories, 6)

	_, err = c.ListActive(ctx, "boat")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestCoerce(t *testing.T) {
	testCases := []struct {
		name      string
		in        any
		typ       ColumnType
		expected  any
		expectErr bool
	}{
		{name: "Nil stays nil", in: nil, typ: Int, expected: nil},
		{name: "Text trims", in: "  x ", typ: Text, expected: "x"},
		{name: "Number as text", in: 12.5, typ: Text, expected: "12.5"},
		{name: "Whole float to int", in: 4.0, typ: Int, expected: int64(4)},
		{name: "Fraction rejected", in: 4.5, typ: Int, expectErr: true},
		{name: "Numeric string to int", in: "2020", typ: Int, expected: int64(2020)},
		{name: "Empty string int is null", in: "", typ: Int, expected: nil},
		{name: "Yes flag", in: "Yes", typ: Bool, expected: true},
		{name: "Zero flag", in: 0.0, typ: Bool, expected: false},
		{name: "Unknown flag", in: "perhaps", typ: Bool, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := coerce(tc.in, tc.typ)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestLookup(t *testing.T) {
	k, ok := Lookup("workstations")
	require.True(t, ok)
	assert.Equal(t, "workstation", k.Name)
	assert.Equal(t, "work_category_id", k.CategoryField)

	_, ok = Lookup("boats")
	assert.False(t, ok)
	assert.Equal(t, []string{"equipment", "multimedia", "room", "trainer", "vehicle", "workstation"}, KindNames())
}
