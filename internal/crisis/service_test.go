package crisis

import (
	"context"
	"strings"
	"testing"

	"github.com/alcoolio/neighbourgood/internal/community"
	"github.com/alcoolio/neighbourgood/internal/domain"
)

func TestQuorumThreshold(t *testing.T) {
	tests := []struct {
		members  int64
		expected int64
	}{
		{members: 0, expected: 1},
		{members: 1, expected: 1},
		{members: 2, expected: 2},
		{members: 3, expected: 2},
		{members: 4, expected: 3},
		{members: 5, expected: 3},
		{members: 10, expected: 6},
		{members: 100, expected: 60},
	}
	for _, tc := range tests {
		if got := QuorumThreshold(tc.members); got != tc.expected {
			t.Fatalf("QuorumThreshold(%d) = %d, expected %d", tc.members, got, tc.expected)
		}
	}
}

func TestParseVoteTypeRejectsUnknownValues(t *testing.T) {
	if _, err := ParseVoteType("abstain"); !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if _, err := ParseVoteType("activate"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVoteTypeTargetMode(t *testing.T) {
	if VoteActivate.TargetMode() != community.ModeRed {
		t.Fatalf("activate should target red mode")
	}
	if VoteDeactivate.TargetMode() != community.ModeBlue {
		t.Fatalf("deactivate should target blue mode")
	}
}

func TestToggleModeRequiresAdmin(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleAdmin)
	seedMember(t, db, seeded.ID, 2, community.RoleLeader)
	seedMember(t, db, seeded.ID, 3, community.RoleMember)

	for _, userID := range []uint{2, 3} {
		_, err := service.ToggleMode(context.Background(), seeded.ID, userID, community.ModeRed)
		if !domain.IsKind(err, domain.KindForbidden) {
			t.Fatalf("expected forbidden for user %d, got %v", userID, err)
		}
	}
	if communityMode(t, db, seeded.ID) != community.ModeBlue {
		t.Fatalf("mode must not change on rejected toggle")
	}
}

func TestToggleModeSwitchesAndClearsVotes(t *testing.T) {
	service, db, recorder := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleAdmin)
	seedMember(t, db, seeded.ID, 2, community.RoleMember)

	if _, err := service.CastVote(context.Background(), seeded.ID, 2, VoteActivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if countVotes(t, db, seeded.ID) != 1 {
		t.Fatalf("expected one standing vote before override")
	}

	status, err := service.ToggleMode(context.Background(), seeded.ID, 1, community.ModeRed)
	if err != nil {
		t.Fatalf("unexpected toggle error: %v", err)
	}
	if status.Mode != community.ModeRed {
		t.Fatalf("expected red mode, got %s", status.Mode)
	}
	if status.VotesToActivate != 0 || status.VotesToDeactivate != 0 {
		t.Fatalf("override must clear votes, got %+v", status)
	}
	if status.TotalMembers != 2 {
		t.Fatalf("expected 2 members, got %d", status.TotalMembers)
	}
	if status.ThresholdPct != 60 {
		t.Fatalf("expected threshold pct 60, got %d", status.ThresholdPct)
	}
	if countVotes(t, db, seeded.ID) != 0 {
		t.Fatalf("votes must be deleted on override")
	}

	if len(recorder.events) != 1 {
		t.Fatalf("expected one activity event, got %d", len(recorder.events))
	}
	event := recorder.events[0]
	if event.EventType != "crisis_mode_changed" {
		t.Fatalf("unexpected event type %q", event.EventType)
	}
	if !strings.Contains(event.Summary, "Red Sky (crisis)") {
		t.Fatalf("summary should carry the red label, got %q", event.Summary)
	}
}

func TestToggleModeRejectsUnknownMode(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleAdmin)

	_, err := service.ToggleMode(context.Background(), seeded.ID, 1, community.Mode("purple"))
	if !domain.IsKind(err, domain.KindInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
}

func TestToggleModeMissingCommunity(t *testing.T) {
	service, _, _ := newTestService(t)
	_, err := service.ToggleMode(context.Background(), 999, 1, community.ModeRed)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCastVoteRequiresMembership(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleAdmin)

	_, err := service.CastVote(context.Background(), seeded.ID, 42, VoteActivate)
	if !domain.IsKind(err, domain.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCastVoteSameDirectionTwiceConflicts(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	for userID := uint(1); userID <= 3; userID++ {
		seedMember(t, db, seeded.ID, userID, community.RoleMember)
	}

	if _, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate); err != nil {
		t.Fatalf("unexpected first vote error: %v", err)
	}
	_, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate)
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict on repeat vote, got %v", err)
	}
	if countVotes(t, db, seeded.ID) != 1 {
		t.Fatalf("repeat vote must not add rows")
	}
}

func TestCastVoteSwitchDirectionUpdatesInPlace(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	for userID := uint(1); userID <= 4; userID++ {
		seedMember(t, db, seeded.ID, userID, community.RoleMember)
	}

	first, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate)
	if err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	switched, err := service.CastVote(context.Background(), seeded.ID, 1, VoteDeactivate)
	if err != nil {
		t.Fatalf("unexpected switch error: %v", err)
	}
	if switched.ID != first.ID {
		t.Fatalf("direction switch must update the existing row")
	}
	if switched.VoteType != VoteDeactivate {
		t.Fatalf("expected deactivate vote, got %s", switched.VoteType)
	}
	if countVotes(t, db, seeded.ID) != 1 {
		t.Fatalf("at most one vote per (community, user) pair")
	}
}

func TestCastVoteQuorumSwitchesMode(t *testing.T) {
	service, db, recorder := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	for userID := uint(1); userID <= 3; userID++ {
		seedMember(t, db, seeded.ID, userID, community.RoleMember)
	}

	// 3 members, threshold 2: the first vote must not switch.
	if _, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if communityMode(t, db, seeded.ID) != community.ModeBlue {
		t.Fatalf("one of three votes must not reach quorum")
	}
	if len(recorder.events) != 0 {
		t.Fatalf("no activity expected before quorum")
	}

	vote, err := service.CastVote(context.Background(), seeded.ID, 2, VoteActivate)
	if err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if vote.VoteType != VoteActivate || vote.UserID != 2 {
		t.Fatalf("response must reflect the just-cast vote, got %+v", vote)
	}
	if communityMode(t, db, seeded.ID) != community.ModeRed {
		t.Fatalf("quorum must switch mode to red")
	}
	if countVotes(t, db, seeded.ID) != 0 {
		t.Fatalf("quorum switch must clear all votes")
	}
	if len(recorder.events) != 1 || recorder.events[0].EventType != "crisis_mode_changed" {
		t.Fatalf("expected one crisis_mode_changed event, got %+v", recorder.events)
	}
}

func TestCastVoteSingleMemberSwitchesImmediately(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleMember)

	vote, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate)
	if err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if vote.VoteType != VoteActivate {
		t.Fatalf("response must reflect the cast vote")
	}
	if communityMode(t, db, seeded.ID) != community.ModeRed {
		t.Fatalf("single member community must switch on the first vote")
	}
	if countVotes(t, db, seeded.ID) != 0 {
		t.Fatalf("votes must be cleared after the switch")
	}
}

func TestCastVoteQuorumTowardCurrentModeDoesNotSwitch(t *testing.T) {
	service, db, recorder := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleMember)

	// Deactivate quorum while already blue: no transition, votes remain.
	if _, err := service.CastVote(context.Background(), seeded.ID, 1, VoteDeactivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if communityMode(t, db, seeded.ID) != community.ModeBlue {
		t.Fatalf("mode must not change when quorum matches the current mode")
	}
	if countVotes(t, db, seeded.ID) != 1 {
		t.Fatalf("votes must remain when no switch happens")
	}
	if len(recorder.events) != 0 {
		t.Fatalf("no activity expected without a switch")
	}
}

func TestCastVoteRedToBlueByQuorum(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeRed)
	for userID := uint(1); userID <= 3; userID++ {
		seedMember(t, db, seeded.ID, userID, community.RoleMember)
	}

	if _, err := service.CastVote(context.Background(), seeded.ID, 1, VoteDeactivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if _, err := service.CastVote(context.Background(), seeded.ID, 2, VoteDeactivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if communityMode(t, db, seeded.ID) != community.ModeBlue {
		t.Fatalf("deactivate quorum must switch red back to blue")
	}
}

func TestRetractVote(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleMember)
	seedMember(t, db, seeded.ID, 2, community.RoleMember)

	if _, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if err := service.RetractVote(context.Background(), seeded.ID, 1); err != nil {
		t.Fatalf("unexpected retract error: %v", err)
	}
	if countVotes(t, db, seeded.ID) != 0 {
		t.Fatalf("retraction must delete the vote")
	}

	err := service.RetractVote(context.Background(), seeded.ID, 1)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("expected not found for missing vote, got %v", err)
	}
}

func TestGetStatusCounts(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	for userID := uint(1); userID <= 5; userID++ {
		seedMember(t, db, seeded.ID, userID, community.RoleMember)
	}

	if _, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}
	if _, err := service.CastVote(context.Background(), seeded.ID, 2, VoteDeactivate); err != nil {
		t.Fatalf("unexpected vote error: %v", err)
	}

	status, err := service.GetStatus(context.Background(), seeded.ID)
	if err != nil {
		t.Fatalf("unexpected status error: %v", err)
	}
	if status.Mode != community.ModeBlue {
		t.Fatalf("expected blue mode, got %s", status.Mode)
	}
	if status.VotesToActivate != 1 || status.VotesToDeactivate != 1 {
		t.Fatalf("unexpected vote counts: %+v", status)
	}
	if status.TotalMembers != 5 || status.ThresholdPct != 60 {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestVotesUnreachableAfterMerge(t *testing.T) {
	service, db, _ := newTestService(t)
	seeded := seedCommunity(t, db, community.ModeBlue)
	survivor := seedCommunity(t, db, community.ModeBlue)
	seedMember(t, db, seeded.ID, 1, community.RoleMember)

	if err := db.Model(&community.Community{}).
		Where("id = ?", seeded.ID).
		Update("merged_into_id", survivor.ID).Error; err != nil {
		t.Fatalf("failed to mark community merged: %v", err)
	}

	_, err := service.CastVote(context.Background(), seeded.ID, 1, VoteActivate)
	if !domain.IsKind(err, domain.KindConflict) {
		t.Fatalf("expected conflict for merged community, got %v", err)
	}
}
