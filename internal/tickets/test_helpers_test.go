package tickets

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alcoolio/neighbourgood/internal/community"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testClock = func() time.Time { return time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC) }

type recordedEvent struct {
	EventType string
	Summary   string
}

type recorderStub struct {
	events []recordedEvent
}

func (r *recorderStub) Record(_ context.Context, eventType, summary string, _, _ uint) {
	r.events = append(r.events, recordedEvent{EventType: eventType, Summary: summary})
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recorderStub) {
	t.Helper()

	dsn := fmt.Sprintf("file:tickets_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&community.Community{}, &community.Member{}, &Ticket{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	recorder := &recorderStub{}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    testClock,
		Activity: recorder,
	})
	if err != nil {
		t.Fatalf("failed to construct ticket service: %v", err)
	}
	return service, db, recorder
}

func seedCommunity(t *testing.T, db *gorm.DB, mode community.Mode) *community.Community {
	t.Helper()
	seeded := community.Community{
		Name:        "Kiezhilfe Nord",
		PostalCode:  "13357",
		City:        "Berlin",
		CountryCode: "DE",
		IsActive:    true,
		Mode:        mode,
		CreatedByID: 1,
		CreatedAt:   testClock(),
	}
	if err := db.Create(&seeded).Error; err != nil {
		t.Fatalf("failed to seed community: %v", err)
	}
	return &seeded
}

func seedMember(t *testing.T, db *gorm.DB, communityID, userID uint, role community.Role) {
	t.Helper()
	member := community.Member{
		CommunityID: communityID,
		UserID:      userID,
		Role:        role,
		JoinedAt:    testClock(),
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
}

func seedTicket(t *testing.T, db *gorm.DB, ticket Ticket) *Ticket {
	t.Helper()
	if ticket.Status == "" {
		ticket.Status = StatusOpen
	}
	if ticket.Urgency == "" {
		ticket.Urgency = UrgencyMedium
	}
	if ticket.TicketType == "" {
		ticket.TicketType = TypeRequest
	}
	if ticket.Title == "" {
		ticket.Title = "seeded ticket"
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = testClock()
	}
	if ticket.UpdatedAt.IsZero() {
		ticket.UpdatedAt = ticket.CreatedAt
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("failed to seed ticket: %v", err)
	}
	return &ticket
}

func strPtr(value string) *string {
	return &value
}

func statusPtr(value Status) *Status {
	return &value
}

func urgencyPtr(value Urgency) *Urgency {
	return &value
}

func uintPtr(value uint) *uint {
	return &value
}

func timePtr(value time.Time) *time.Time {
	return &value
}
