package community

import "testing"

func TestRoleCan(t *testing.T) {
	tests := []struct {
		role       Role
		capability Capability
		expected   bool
	}{
		{role: RoleMember, capability: CapVote, expected: true},
		{role: RoleMember, capability: CapCreateTicket, expected: true},
		{role: RoleMember, capability: CapTriage, expected: false},
		{role: RoleMember, capability: CapManageTickets, expected: false},
		{role: RoleMember, capability: CapOverrideMode, expected: false},
		{role: RoleLeader, capability: CapTriage, expected: true},
		{role: RoleLeader, capability: CapManageTickets, expected: true},
		{role: RoleLeader, capability: CapOverrideMode, expected: false},
		{role: RoleLeader, capability: CapManageLeaders, expected: false},
		{role: RoleAdmin, capability: CapOverrideMode, expected: true},
		{role: RoleAdmin, capability: CapManageLeaders, expected: true},
		{role: RoleAdmin, capability: CapManageCommunity, expected: true},
		{role: RoleAdmin, capability: CapVote, expected: true},
		{role: Role("observer"), capability: CapVote, expected: false},
	}
	for _, tc := range tests {
		if got := tc.role.Can(tc.capability); got != tc.expected {
			t.Fatalf("%s.Can(%d) = %v, expected %v", tc.role, tc.capability, got, tc.expected)
		}
	}
}

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"member", "leader", "admin"} {
		role, err := ParseRole(raw)
		if err != nil {
			t.Fatalf("ParseRole(%q) failed: %v", raw, err)
		}
		if string(role) != raw {
			t.Fatalf("ParseRole(%q) = %s", raw, role)
		}
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatalf("expected error for unknown role")
	}
}

func TestParseMode(t *testing.T) {
	blue, err := ParseMode("blue")
	if err != nil || blue != ModeBlue {
		t.Fatalf("ParseMode(blue) = %s, %v", blue, err)
	}
	red, err := ParseMode("red")
	if err != nil || red != ModeRed {
		t.Fatalf("ParseMode(red) = %s, %v", red, err)
	}
	if _, err := ParseMode("amber"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestModeLabel(t *testing.T) {
	if ModeRed.Label() != "Red Sky (crisis)" {
		t.Fatalf("unexpected red label %q", ModeRed.Label())
	}
	if ModeBlue.Label() != "Blue Sky (normal)" {
		t.Fatalf("unexpected blue label %q", ModeBlue.Label())
	}
}
