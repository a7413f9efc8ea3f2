package listbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	dbTypeSQLite   = "sqlite"
	dbTypePostgres = "postgres"
)

var (
	sqliteMaxOpenConns    = 1
	sqliteMaxIdleConns    = 1
	sqliteMaxConnLifetime = 5 * time.Minute
	sqliteExecPragma      = []string{
		"pragma journal_mode=WAL;",
		"pragma synchronous = normal;",
		"pragma temp_store = memory;",
		"pragma foreign_keys = ON;",
	}
)

// StaffPoints tracks review-duty performance per staff member. Points
// are kept within [0, PointsConfig.Max] by every mutation.
type StaffPoints struct {
	User   string  `gorm:"primaryKey" json:"user"`
	Points float64 `json:"points"`
}

// Setting holds per-user bot preferences. ShiftPings must not carry a
// gorm default tag: gorm substitutes tag defaults for zero-valued fields
// on insert, turning a first-time opt-out (false) into true. The
// missing-row default lives in getSetting.
type Setting struct {
	User       string `gorm:"primaryKey" json:"user"`
	ShiftPings bool   `json:"shift_pings"`
}

// PendingShiftNotification is a durable record of a "shift started"
// notification that hasn't been sent yet. Created when a SHIFTS_CREATED
// event arrives, deleted after at most one delivery attempt.
type PendingShiftNotification struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      string    `json:"user_id"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	TargetCount int       `json:"target_count"`
}

// SentUcReminder marks a submission as already included in an
// under-consideration reminder digest. Pruned once the submission
// leaves the under-consideration set.
type SentUcReminder struct {
	ID string `gorm:"primaryKey" json:"id"`
}

// WeeklyMissedShift records whether a staff member missed every shift
// in the previous rollup week. Written on odd weeks, consumed and
// cleared on even weeks.
type WeeklyMissedShift struct {
	User      string `gorm:"primaryKey" json:"user"`
	MissedAll bool   `json:"missed_all"`
}

// UcThread links a submission to the discussion thread created when it
// first entered under-consideration. Never recreated for the same
// submission; later accept/deny events reuse the linked thread.
type UcThread struct {
	SubmissionID string `gorm:"primaryKey" json:"submission_id"`
	MessageID    string `json:"message_id"`
	ThreadID     string `json:"thread_id"`
}

// NoPingEntry is the no-ping list: users who must not be mentioned in
// public record announcements.
type NoPingEntry struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	Notes  string `json:"notes,omitempty"`
	Banned bool   `json:"banned"`
}

// DailyStat counts member joins/leaves per calendar day.
type DailyStat struct {
	Date          time.Time `gorm:"primaryKey" json:"date"`
	MembersJoined int       `json:"members_joined"`
	MembersLeft   int       `json:"members_left"`
}

// CreateDB initializes and returns a GORM database connection based on
// the specified database type, and migrates the bot's tables.
func CreateDB(
	ctx context.Context,
	databaseType string,
	database string,
	handler slog.Handler,
	slowThreshold time.Duration,
) (*gorm.DB, error) {
	gormLogger := newGORMLogger(handler, slowThreshold)
	dbLogger := slog.New(handler).With(loggerNameKey, "database")

	dbLogger.InfoContext(
		ctx,
		"initializing database",
		"database_type", databaseType,
		"database", database,
	)
	db, err := getDB(databaseType, database, gormLogger)
	if err != nil {
		return db, err
	}

	if databaseType == dbTypeSQLite {
		sqlDB, sqlErr := db.DB()
		if sqlErr != nil {
			return db, sqlErr
		}
		sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
		sqlDB.SetMaxIdleConns(sqliteMaxIdleConns)
		sqlDB.SetConnMaxLifetime(sqliteMaxConnLifetime)
		for _, pragma := range sqliteExecPragma {
			if err = db.WithContext(ctx).Exec(pragma).Error; err != nil {
				return db, fmt.Errorf("error executing %q: %w", pragma, err)
			}
		}
	}

	txn := db.WithContext(ctx).Begin()
	err = txn.Migrator().AutoMigrate(
		&StaffPoints{},
		&Setting{},
		&PendingShiftNotification{},
		&SentUcReminder{},
		&WeeklyMissedShift{},
		&UcThread{},
		&NoPingEntry{},
		&DailyStat{},
	)
	if err != nil {
		_ = txn.Rollback()
		return db, err
	}
	return db, txn.Commit().Error
}

// getDB initializes and returns a GORM database connection based on the
// specified database type.
func getDB(
	databaseType string,
	database string,
	gormLogger *gormStructuredLogger,
) (*gorm.DB, error) {
	switch databaseType {
	case dbTypeSQLite:
		parentDir := filepath.Dir(database)
		if parentDir != "" {
			if err := os.MkdirAll(parentDir, 0755); err != nil {
				if !errors.Is(err, os.ErrExist) {
					return nil, err
				}
			}
		}
		return gorm.Open(
			sqlite.Open(database),
			&gorm.Config{
				Logger: gormLogger,
				NowFunc: func() time.Time {
					return time.Now().UTC()
				},
			},
		)
	case dbTypePostgres:
		return gorm.Open(
			postgres.Open(database), &gorm.Config{
				Logger: gormLogger,
				NowFunc: func() time.Time {
					return time.Now().UTC()
				},
			},
		)
	default:
		return nil, fmt.Errorf(
			"unsupported database type: %s (must be %q or %q)",
			databaseType, dbTypeSQLite, dbTypePostgres,
		)
	}
}

// getOrCreateStaffPoints fetches the StaffPoints row for the given
// discord ID, inserting it with the default value on first reference.
func getOrCreateStaffPoints(
	ctx context.Context,
	db *gorm.DB,
	discordID string,
	defaultPoints float64,
) (*StaffPoints, error) {
	row := StaffPoints{User: discordID, Points: defaultPoints}
	err := db.WithContext(ctx).Clauses(
		clause.OnConflict{DoNothing: true},
	).Create(&row).Error
	if err != nil {
		return nil, err
	}
	err = db.WithContext(ctx).Take(&row, "user = ?", discordID).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// getSetting returns the Setting row for the given discord ID, or a
// default-valued Setting when none exists.
func getSetting(ctx context.Context, db *gorm.DB, discordID string) (
	Setting,
	error,
) {
	setting := Setting{User: discordID, ShiftPings: true}
	err := db.WithContext(ctx).Take(&setting, "user = ?", discordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Setting{User: discordID, ShiftPings: true}, nil
	}
	return setting, err
}
