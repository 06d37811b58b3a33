package tickets

import (
	"time"

	"github.com/alcoolio/neighbourgood/internal/domain"
)

// Type is the kind of emergency ticket.
type Type string

const (
	// TypeRequest asks the community for help.
	TypeRequest Type = "request"
	// TypeOffer volunteers help to the community.
	TypeOffer Type = "offer"
	// TypeEmergencyPing signals an urgent need; only valid in red mode.
	TypeEmergencyPing Type = "emergency_ping"
)

// ParseType validates a raw ticket type value.
func ParseType(raw string) (Type, error) {
	switch Type(raw) {
	case TypeRequest, TypeOffer, TypeEmergencyPing:
		return Type(raw), nil
	default:
		return "", domain.Invalid("ticket_type must be 'request', 'offer', or 'emergency_ping'")
	}
}

// Status is the lifecycle state of a ticket. Tickets are never deleted.
type Status string

const (
	StatusOpen       Status = "open"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

// ParseStatus validates a raw status value.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOpen, StatusInProgress, StatusResolved:
		return Status(raw), nil
	default:
		return "", domain.Invalid("status must be 'open', 'in_progress', or 'resolved'")
	}
}

// Urgency is the declared severity of a ticket.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency validates a raw urgency value.
func ParseUrgency(raw string) (Urgency, error) {
	switch Urgency(raw) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return Urgency(raw), nil
	default:
		return "", domain.Invalid("urgency must be 'low', 'medium', 'high', or 'critical'")
	}
}

// Ticket is an emergency request, offer, or ping scoped to a community.
// The triage score is derived on read and never stored.
type Ticket struct {
	ID           uint       `gorm:"column:id;primaryKey" json:"id"`
	CommunityID  uint       `gorm:"column:community_id;not null;index" json:"community_id"`
	AuthorID     uint       `gorm:"column:author_id;not null;index" json:"author_id"`
	TicketType   Type       `gorm:"column:ticket_type;size:20;not null" json:"ticket_type"`
	Title        string     `gorm:"column:title;size:300;not null" json:"title"`
	Description  string     `gorm:"column:description;type:text;not null;default:''" json:"description"`
	Status       Status     `gorm:"column:status;size:20;not null;default:'open'" json:"status"`
	Urgency      Urgency    `gorm:"column:urgency;size:20;not null;default:'medium'" json:"urgency"`
	DueAt        *time.Time `gorm:"column:due_at" json:"due_at"`
	AssignedToID *uint      `gorm:"column:assigned_to_id" json:"assigned_to_id"`
	CreatedAt    time.Time  `gorm:"column:created_at;not null" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName provides the explicit table binding for GORM.
func (Ticket) TableName() string {
	return "emergency_tickets"
}

// View is a ticket together with its freshly computed triage score.
type View struct {
	Ticket
	TriageScore int `json:"triage_score"`
}
