package db

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"training-planner-backend/config"
	"training-planner-backend/internal/model"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ExclusionConstraintName is the postgres constraint that rejects overlapping
// event-driven ledger rows for one resource.
const ExclusionConstraintName = "resource_status_history_no_overlap"

// Init opens the database handle and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	level := logger.Warn
	if cfg.LogSQL {
		level = logger.Info
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// One connection serialises writers on the database file.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	}

	slog.Info("running database migrations", "driver", cfg.Driver)
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if cfg.Driver == DriverPostgres && cfg.EnableExclusionConstraint {
		slog.Info("installing ledger exclusion constraint")
		if err := applyExclusionDDL(db); err != nil {
			slog.Warn("failed to apply ledger exclusion constraint, continuing without it", "error", err)
		}
	}

	slog.Info("database initialization complete")
	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite, "":
		return sqlite.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// Models lists every table owned by the planner.
func Models() []any {
	return []any{
		&model.ResourceCategory{},
		&model.Resource{},
		&model.Room{},
		&model.Trainer{},
		&model.Vehicle{},
		&model.Equipment{},
		&model.Multimedia{},
		&model.Workstation{},
		&model.RoomEquipment{},
		&model.ResourceStatusHistory{},
		&model.Event{},
		&model.EventResource{},
		&model.Participants{},
		&model.Message{},
		&model.Training{},
		&model.Holiday{},
		&model.User{},
		&model.PushSubscription{},
	}
}

// Migrate brings the schema up to date. A clean database gets the full schema
// and the category seed in one step.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:      "1_seed_resource_categories",
			Migrate: seedCategories,
			Rollback: func(tx *gorm.DB) error {
				return tx.Where("1 = 1").Delete(&model.ResourceCategory{}).Error
			},
		},
		{
			ID: "2_event_resources_update_date",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&model.EventResource{})
			},
		},
	})

	m.InitSchema(func(tx *gorm.DB) error {
		slog.Info("clean database detected, running full schema initialization")
		if err := tx.AutoMigrate(Models()...); err != nil {
			return err
		}
		return seedCategories(tx)
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func seedCategories(tx *gorm.DB) error {
	categories := []model.ResourceCategory{
		{ID: model.CategoryRoom, Name: "room"},
		{ID: model.CategoryTrainer, Name: "trainer"},
		{ID: model.CategoryVehicle, Name: "vehicle"},
		{ID: model.CategoryEquipment, Name: "equipment"},
		{ID: model.CategoryMultimedia, Name: "multimedia"},
		{ID: model.CategoryWorkstation, Name: "workstation"},
	}
	for _, c := range categories {
		if err := tx.Where(model.ResourceCategory{ID: c.ID}).FirstOrCreate(&c).Error; err != nil {
			return fmt.Errorf("failed to seed category %s: %w", c.Name, err)
		}
	}
	return nil
}

func applyExclusionDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		"DO $$ BEGIN " +
			"IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '" + ExclusionConstraintName + "') THEN " +
			"ALTER TABLE resource_status_history ADD CONSTRAINT " + ExclusionConstraintName + " " +
			"EXCLUDE USING gist (resource_id WITH =, daterange(start_date, end_date, '[]') WITH &&) " +
			"WHERE (status_type IN ('Reserved', 'Programmed', 'Confirmed', 'Executed')); " +
			"END IF; END $$;",

		"CREATE INDEX IF NOT EXISTS idx_rsh_resource_range ON resource_status_history " +
			"USING GIST (resource_id, daterange(start_date, end_date, '[]'));",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
