package tickets

import (
	"testing"
	"time"
)

var scoreNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func ticketAt(urgency Urgency, age time.Duration, dueAt *time.Time) Ticket {
	return Ticket{
		Urgency:   urgency,
		CreatedAt: scoreNow.Add(-age),
		DueAt:     dueAt,
	}
}

func TestTriageScoreUrgencyBands(t *testing.T) {
	tests := []struct {
		urgency  Urgency
		expected int
	}{
		{urgency: UrgencyLow, expected: 100},
		{urgency: UrgencyMedium, expected: 200},
		{urgency: UrgencyHigh, expected: 300},
		{urgency: UrgencyCritical, expected: 400},
	}
	for _, tc := range tests {
		got := TriageScore(ticketAt(tc.urgency, 0, nil), scoreNow)
		if got != tc.expected {
			t.Fatalf("TriageScore(%s, age 0) = %d, expected %d", tc.urgency, got, tc.expected)
		}
	}
}

func TestTriageScoreUrgencyDominatesAge(t *testing.T) {
	// A low ticket at the age cap must still lose to a fresh medium ticket.
	agedLow := TriageScore(ticketAt(UrgencyLow, 500*time.Hour, nil), scoreNow)
	freshMedium := TriageScore(ticketAt(UrgencyMedium, 0, nil), scoreNow)
	if agedLow >= freshMedium {
		t.Fatalf("aged low (%d) must score below fresh medium (%d)", agedLow, freshMedium)
	}

	ordering := []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}
	for i := 1; i < len(ordering); i++ {
		lower := TriageScore(ticketAt(ordering[i-1], 99*time.Hour, nil), scoreNow)
		higher := TriageScore(ticketAt(ordering[i], 0, nil), scoreNow)
		if lower >= higher {
			t.Fatalf("%s at max age (%d) must score below fresh %s (%d)",
				ordering[i-1], lower, ordering[i], higher)
		}
	}
}

func TestTriageScoreAgeContribution(t *testing.T) {
	base := TriageScore(ticketAt(UrgencyMedium, 0, nil), scoreNow)
	aged := TriageScore(ticketAt(UrgencyMedium, 5*time.Hour, nil), scoreNow)
	if aged != base+5 {
		t.Fatalf("expected 5 points for 5 hours of age, got %d over %d", aged, base)
	}

	// Partial hours floor to the full hour below.
	partial := TriageScore(ticketAt(UrgencyMedium, 5*time.Hour+59*time.Minute, nil), scoreNow)
	if partial != base+5 {
		t.Fatalf("expected floored age of 5 hours, got %d over %d", partial, base)
	}
}

func TestTriageScoreAgeCapsAt99(t *testing.T) {
	capped := TriageScore(ticketAt(UrgencyCritical, 99*time.Hour, nil), scoreNow)
	beyond := TriageScore(ticketAt(UrgencyCritical, 2000*time.Hour, nil), scoreNow)
	if capped != 499 || beyond != 499 {
		t.Fatalf("expected age cap at 99 hours, got %d and %d", capped, beyond)
	}
}

func TestTriageScoreOverdueEscalation(t *testing.T) {
	past := scoreNow.Add(-time.Hour)
	future := scoreNow.Add(time.Hour)

	overdue := TriageScore(ticketAt(UrgencyMedium, 2*time.Hour, &past), scoreNow)
	onTime := TriageScore(ticketAt(UrgencyMedium, 2*time.Hour, &future), scoreNow)
	if overdue != onTime+200 {
		t.Fatalf("expected exactly 200 extra points when overdue, got %d vs %d", overdue, onTime)
	}

	noDue := TriageScore(ticketAt(UrgencyMedium, 2*time.Hour, nil), scoreNow)
	if onTime != noDue {
		t.Fatalf("a future due date must not change the score: %d vs %d", onTime, noDue)
	}
}

func TestTriageScoreOverdueJumpsTwoUrgencyBands(t *testing.T) {
	// The 200-point escalation lifts an overdue ticket past the next urgency
	// band but never past a fresh critical.
	past := scoreNow.Add(-time.Minute)
	overdueLow := TriageScore(ticketAt(UrgencyLow, 0, &past), scoreNow)
	freshMedium := TriageScore(ticketAt(UrgencyMedium, 0, nil), scoreNow)
	freshHigh := TriageScore(ticketAt(UrgencyHigh, 0, nil), scoreNow)
	freshCritical := TriageScore(ticketAt(UrgencyCritical, 0, nil), scoreNow)

	if overdueLow <= freshMedium {
		t.Fatalf("overdue low (%d) must outrank fresh medium (%d)", overdueLow, freshMedium)
	}
	if overdueLow != freshHigh {
		t.Fatalf("overdue low (%d) must land in the high band (%d)", overdueLow, freshHigh)
	}
	if overdueLow >= freshCritical {
		t.Fatalf("overdue low (%d) must not outrank fresh critical (%d)", overdueLow, freshCritical)
	}
}

func TestTriageScoreUnknownUrgencyWeighsOne(t *testing.T) {
	unknown := TriageScore(ticketAt(Urgency("frantic"), 3*time.Hour, nil), scoreNow)
	low := TriageScore(ticketAt(UrgencyLow, 3*time.Hour, nil), scoreNow)
	if unknown != low {
		t.Fatalf("unknown urgency must weigh like low: %d vs %d", unknown, low)
	}
}
