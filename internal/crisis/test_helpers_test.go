package crisis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alcoolio/neighbourgood/internal/community"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var testClock = func() time.Time { return time.Unix(1700000000, 0).UTC() }

type recordedEvent struct {
	EventType   string
	Summary     string
	ActorID     uint
	CommunityID uint
}

type recorderStub struct {
	events []recordedEvent
}

func (r *recorderStub) Record(_ context.Context, eventType, summary string, actorID, communityID uint) {
	r.events = append(r.events, recordedEvent{
		EventType:   eventType,
		Summary:     summary,
		ActorID:     actorID,
		CommunityID: communityID,
	})
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *recorderStub) {
	t.Helper()

	dsn := fmt.Sprintf("file:crisis_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&community.Community{}, &community.Member{}, &Vote{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	recorder := &recorderStub{}
	service, err := NewService(ServiceConfig{
		Database: db,
		Clock:    testClock,
		Activity: recorder,
	})
	if err != nil {
		t.Fatalf("failed to construct crisis service: %v", err)
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

func countVotes(t *testing.T, db *gorm.DB, communityID uint) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&Vote{}).Where("community_id = ?", communityID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count votes: %v", err)
	}
	return count
}

func communityMode(t *testing.T, db *gorm.DB, communityID uint) community.Mode {
	t.Helper()
	var loaded community.Community
	if err := db.Take(&loaded, communityID).Error; err != nil {
		t.Fatalf("failed to reload community: %v", err)
	}
	return loaded.Mode
}
