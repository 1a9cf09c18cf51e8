package storage

import (
	"context"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/zorenko/aircap/internal/core/domain"
	"github.com/zorenko/aircap/internal/core/ports"
)

// SQLiteAdapter implements session and audit persistence using GORM and
// SQLite.
type SQLiteAdapter struct {
	db *gorm.DB
}

var _ ports.SessionRepository = (*SQLiteAdapter)(nil)

// SessionModel is the GORM model for target-acquisition cycles.
type SessionModel struct {
	ID           string `gorm:"primaryKey"`
	BSSID        string `gorm:"index"`
	SSID         string
	Channel      string
	CaptureState string
	CaptureFile  string
	DeauthOK     bool
	CrackOutcome string
	RecoveredKey string
	StartedAt    time.Time `gorm:"index"`
	FinishedAt   *time.Time
}

// AuditModel is the GORM model for audit entries.
type AuditModel struct {
	ID        uint `gorm:"primaryKey"`
	Actor     string
	Action    string `gorm:"index"`
	Target    string
	Details   string
	Timestamp time.Time `gorm:"index"`
}

// NewSQLiteAdapter opens the database, installs query tracing and
// migrates the schema.
func NewSQLiteAdapter(path string) (*SQLiteAdapter, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&SessionModel{}, &AuditModel{}); err != nil {
		return nil, err
	}

	return &SQLiteAdapter{db: db}, nil
}

// SaveSession persists one cycle record, replacing a prior record with
// the same ID.
func (a *SQLiteAdapter) SaveSession(ctx context.Context, s domain.Session) error {
	model := SessionModel{
		ID:           s.ID,
		BSSID:        s.BSSID,
		SSID:         s.SSID,
		Channel:      s.Channel,
		CaptureState: string(s.CaptureState),
		CaptureFile:  s.CaptureFile,
		DeauthOK:     s.DeauthOK,
		CrackOutcome: string(s.CrackOutcome),
		RecoveredKey: s.RecoveredKey,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
	}
	return a.db.WithContext(ctx).Save(&model).Error
}

// ListSessions returns the most recent cycles, newest first.
func (a *SQLiteAdapter) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	var models []SessionModel
	q := a.db.WithContext(ctx).Order("started_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}

	sessions := make([]domain.Session, len(models))
	for i, m := range models {
		sessions[i] = domain.Session{
			ID:           m.ID,
			BSSID:        m.BSSID,
			SSID:         m.SSID,
			Channel:      m.Channel,
			CaptureState: domain.CaptureState(m.CaptureState),
			CaptureFile:  m.CaptureFile,
			DeauthOK:     m.DeauthOK,
			CrackOutcome: domain.CrackOutcome(m.CrackOutcome),
			RecoveredKey: m.RecoveredKey,
			StartedAt:    m.StartedAt,
			FinishedAt:   m.FinishedAt,
		}
	}
	return sessions, nil
}

// Close releases the underlying database handle.
func (a *SQLiteAdapter) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
