package community

import "github.com/alcoolio/neighbourgood/internal/domain"

// Role is a member's standing within one community.
type Role string

const (
	// RoleMember may vote and create tickets.
	RoleMember Role = "member"
	// RoleLeader additionally accesses the triage view and manages tickets.
	RoleLeader Role = "leader"
	// RoleAdmin additionally overrides crisis mode and manages leaders.
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role value.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleMember, RoleLeader, RoleAdmin:
		return Role(raw), nil
	default:
		return "", domain.Invalid("role must be 'member', 'leader', or 'admin'")
	}
}

// Capability names an action gated by role.
type Capability int

const (
	// CapVote covers crisis-mode voting and retraction.
	CapVote Capability = iota
	// CapCreateTicket covers opening emergency tickets.
	CapCreateTicket
	// CapTriage covers the leader triage view.
	CapTriage
	// CapManageTickets covers updating tickets authored by others.
	CapManageTickets
	// CapOverrideMode covers the admin crisis-mode toggle.
	CapOverrideMode
	// CapManageLeaders covers promoting and demoting leaders.
	CapManageLeaders
	// CapManageCommunity covers editing and merging the community.
	CapManageCommunity
)

var roleRank = map[Role]int{
	RoleMember: 1,
	RoleLeader: 2,
	RoleAdmin:  3,
}

var capabilityRank = map[Capability]int{
	CapVote:            1,
	CapCreateTicket:    1,
	CapTriage:          2,
	CapManageTickets:   2,
	CapOverrideMode:    3,
	CapManageLeaders:   3,
	CapManageCommunity: 3,
}

// Can reports whether the role grants the capability. Unknown roles grant
// nothing.
func (r Role) Can(capability Capability) bool {
	required, ok := capabilityRank[capability]
	if !ok {
		return false
	}
	return roleRank[r] >= required
}
