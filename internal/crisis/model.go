package crisis

import (
	"time"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/domain"
)

// VoteType is the direction of a crisis-mode vote.
type VoteType string

const (
	// VoteActivate pushes the community toward red (crisis) mode.
	VoteActivate VoteType = "activate"
	// VoteDeactivate pushes the community back toward blue (normal) mode.
	VoteDeactivate VoteType = "deactivate"
)

// ParseVoteType validates a raw vote type value.
func ParseVoteType(raw string) (VoteType, error) {
	switch VoteType(raw) {
	case VoteActivate, VoteDeactivate:
		return VoteType(raw), nil
	default:
		return "", domain.Invalid("vote_type must be 'activate' or 'deactivate'")
	}
}

// TargetMode returns the community mode this vote direction aims for.
func (v VoteType) TargetMode() community.Mode {
	if v == VoteActivate {
		return community.ModeRed
	}
	return community.ModeBlue
}

// Vote is one member's standing vote toward a mode switch. At most one row
// exists per (community, user); a re-vote in the other direction updates
// the row in place.
type Vote struct {
	ID          uint      `gorm:"column:id;primaryKey" json:"id"`
	CommunityID uint      `gorm:"column:community_id;not null;uniqueIndex:idx_crisis_votes_community_user,priority:1" json:"community_id"`
	UserID      uint      `gorm:"column:user_id;not null;uniqueIndex:idx_crisis_votes_community_user,priority:2" json:"user_id"`
	VoteType    VoteType  `gorm:"column:vote_type;size:20;not null" json:"vote_type"`
	CreatedAt   time.Time `gorm:"column:created_at;not null" json:"created_at"`
}

// TableName provides the explicit table binding for GORM.
func (Vote) TableName() string {
	return "crisis_votes"
}

// ThresholdPct is the share of members whose agreement switches the mode.
const ThresholdPct = 60

// QuorumThreshold returns the vote count needed for a mode switch:
// 60% of the member total, rounded up, never below one.
func QuorumThreshold(totalMembers int64) int64 {
	threshold := (totalMembers*ThresholdPct + 99) / 100
	if threshold < 1 {
		threshold = 1
	}
	return threshold
}

// Status is the read-only view of a community's crisis state.
type Status struct {
	CommunityID       uint           `json:"community_id"`
	Mode              community.Mode `json:"mode"`
	VotesToActivate   int64          `json:"votes_to_activate"`
	VotesToDeactivate int64          `json:"votes_to_deactivate"`
	TotalMembers      int64          `json:"total_members"`
	ThresholdPct      int            `json:"threshold_pct"`
}
