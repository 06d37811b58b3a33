package activity

import "time"

// Event is one row in the community activity feed.
type Event struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	EventType   string    `gorm:"column:event_type;size:30;not null;index" json:"event_type"`
	Summary     string    `gorm:"column:summary;type:text;not null" json:"summary"`
	ActorID     uint      `gorm:"column:actor_id;not null;index" json:"actor_id"`
	CommunityID *uint     `gorm:"column:community_id;index" json:"community_id,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Event) TableName() string {
	return "activities"
}
