package database

import (
	"errors"
	"time"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/tickets"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationBackfillTicketUrgency  = "2026-05-18_backfill_ticket_urgency"
	migrationNormalizeCommunityMode = "2026-05-18_normalize_community_mode"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillTicketUrgency, apply: backfillTicketUrgency},
		{name: migrationNormalizeCommunityMode, apply: normalizeCommunityMode},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillTicketUrgency repairs tickets imported before urgency was
// enforced at the API boundary.
func backfillTicketUrgency(db *gorm.DB) error {
	return db.Model(&tickets.Ticket{}).
		Where("urgency NOT IN ?", []tickets.Urgency{
			tickets.UrgencyLow, tickets.UrgencyMedium, tickets.UrgencyHigh, tickets.UrgencyCritical,
		}).
		Update("urgency", tickets.UrgencyMedium).Error
}

// normalizeCommunityMode resets any community carrying a value outside the
// blue/red enum back to normal operation.
func normalizeCommunityMode(db *gorm.DB) error {
	return db.Model(&community.Community{}).
		Where("mode NOT IN ?", []community.Mode{community.ModeBlue, community.ModeRed}).
		Update("mode", community.ModeBlue).Error
}
