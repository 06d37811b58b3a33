package tickets

import "time"

const (
	// maxAgeHours caps the age contribution so urgency bands never overlap.
	maxAgeHours = 99
	// overdueEscalation lifts an overdue ticket two urgency bands.
	overdueEscalation = 200
)

var urgencyWeight = map[Urgency]int{
	UrgencyLow:      1,
	UrgencyMedium:   2,
	UrgencyHigh:     3,
	UrgencyCritical: 4,
}

// TriageScore ranks a ticket for responder attention at the given instant.
//
//	score = urgency_weight*100 + age_hours (capped at 99)
//	      + 200 when due_at lies in the past
//
// Urgency dominates age within a band, and a breached deadline lifts a
// ticket past the next two bands. Unknown urgency values weigh 1: urgency
// is validated on every write path, so this only matters for rows
// predating validation, and a scoring read must not fail over one bad row.
func TriageScore(ticket Ticket, now time.Time) int {
	weight, ok := urgencyWeight[ticket.Urgency]
	if !ok {
		weight = 1
	}

	ageHours := int(now.Sub(ticket.CreatedAt).Hours())
	if ageHours > maxAgeHours {
		ageHours = maxAgeHours
	}

	score := weight*100 + ageHours
	if ticket.DueAt != nil && ticket.DueAt.Before(now) {
		score += overdueEscalation
	}
	return score
}
