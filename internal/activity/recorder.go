package activity

import (
	"context"
	"errors"
	"time"

	"github.com/alcoolio/neighbourgood/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errMissingDatabase = errors.New("activity: database handle is required")

// Notifier receives persisted events for downstream fan-out (webhooks).
// Delivery is the notifier's problem; it must not block or fail recording.
type Notifier interface {
	Notify(event Event)
}

// RecorderConfig describes the dependencies for the activity recorder.
type RecorderConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
	Notifier Notifier
}

// Recorder persists activity feed events and hands them to the notifier.
// Recording is best-effort: a storage failure is logged and swallowed so
// the operation that produced the event is never rolled back over its
// feed entry.
type Recorder struct {
	db       *gorm.DB
	clock    func() time.Time
	logger   *zap.Logger
	notifier Notifier
}

// NewRecorder constructs the activity recorder.
func NewRecorder(cfg RecorderConfig) (*Recorder, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{db: cfg.Database, clock: clock, logger: logger, notifier: cfg.Notifier}, nil
}

// Record appends an event to the feed.
func (r *Recorder) Record(ctx context.Context, eventType, summary string, actorID, communityID uint) {
	event := Event{
		EventType: eventType,
		Summary:   summary,
		ActorID:   actorID,
		CreatedAt: r.clock().UTC(),
	}
	if communityID != 0 {
		event.CommunityID = &communityID
	}

	if err := r.db.WithContext(ctx).Create(&event).Error; err != nil {
		r.logger.Error("activity record failed",
			zap.Error(err),
			zap.String("event_type", eventType))
		return
	}

	if r.notifier != nil {
		r.notifier.Notify(event)
	}
}

// List returns recent events, newest first, optionally scoped to one
// community.
func (r *Recorder) List(ctx context.Context, communityID uint, limit int) ([]Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	query := r.db.WithContext(ctx).Model(&Event{})
	if communityID != 0 {
		query = query.Where("community_id = ?", communityID)
	}
	var events []Event
	if err := query.Order("created_at DESC").Limit(limit).Find(&events).Error; err != nil {
		return nil, domain.Internal("activity query failed", err)
	}
	return events, nil
}
