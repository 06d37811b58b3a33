package community

import (
	"time"

	"github.com/alcoolio/neighbourgood/internal/domain"
)

// Mode is the operating state of a community: blue (normal) or red (crisis).
type Mode string

const (
	// ModeBlue is normal operation.
	ModeBlue Mode = "blue"
	// ModeRed is emergency coordination.
	ModeRed Mode = "red"
)

// ParseMode validates a raw mode value.
func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeBlue, ModeRed:
		return Mode(raw), nil
	default:
		return "", domain.Invalid("mode must be 'blue' or 'red'")
	}
}

// Label returns the human label used in activity summaries.
func (m Mode) Label() string {
	if m == ModeRed {
		return "Red Sky (crisis)"
	}
	return "Blue Sky (normal)"
}

// Community is a neighbourhood group. A merged community keeps its rows but
// points at the surviving community and is excluded from discovery.
type Community struct {
	ID              uint      `gorm:"column:id;primaryKey" json:"id"`
	Name            string    `gorm:"column:name;size:150;not null" json:"name"`
	Description     string    `gorm:"column:description;type:text;not null;default:''" json:"description"`
	PostalCode      string    `gorm:"column:postal_code;size:20;not null;index" json:"postal_code"`
	City            string    `gorm:"column:city;size:150;not null;index" json:"city"`
	CountryCode     string    `gorm:"column:country_code;size:5;not null;default:'DE'" json:"country_code"`
	PrimaryLanguage string    `gorm:"column:primary_language;size:10;not null;default:''" json:"primary_language"`
	IsActive        bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	Mode            Mode      `gorm:"column:mode;size:10;not null;default:'blue'" json:"mode"`
	CreatedByID     uint      `gorm:"column:created_by_id;not null;index" json:"created_by_id"`
	MergedIntoID    *uint     `gorm:"column:merged_into_id;index" json:"merged_into_id,omitempty"`
	CreatedAt       time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Community) TableName() string {
	return "communities"
}

// Member links a user to a community with a role.
type Member struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	CommunityID uint      `gorm:"column:community_id;not null;uniqueIndex:idx_members_community_user,priority:1" json:"community_id"`
	UserID      uint      `gorm:"column:user_id;not null;uniqueIndex:idx_members_community_user,priority:2" json:"user_id"`
	Role        Role      `gorm:"column:role;size:20;not null;default:'member'" json:"role"`
	JoinedAt    time.Time `gorm:"column:joined_at;not null" json:"joined_at"`
}

// TableName provides the explicit table binding for GORM.
func (Member) TableName() string {
	return "community_members"
}
