// README: Transition-table tests; no database required.
package appointment

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		role     Role
		from, to Status
		want     bool
	}{
		// vendor forward edges
		{RoleVendor, StatusPending, StatusConfirmed, true},
		{RoleVendor, StatusPending, StatusCancelled, true},
		{RoleVendor, StatusConfirmed, StatusCancelled, true},
		{RoleVendor, StatusConfirmed, StatusCompleted, true}, // direct fulfillment
		// vendor reset from every state
		{RoleVendor, StatusPending, StatusPending, true},
		{RoleVendor, StatusConfirmed, StatusPending, true},
		{RoleVendor, StatusInProgress, StatusPending, true},
		{RoleVendor, StatusCompleted, StatusPending, true},
		{RoleVendor, StatusCancelled, StatusPending, true},
		// vendor cannot touch a claimed appointment except by reset
		{RoleVendor, StatusInProgress, StatusCompleted, false},
		{RoleVendor, StatusInProgress, StatusCancelled, false},
		// vendor cannot skip confirmation
		{RoleVendor, StatusPending, StatusCompleted, false},
		{RoleVendor, StatusPending, StatusInProgress, false},
		// in_progress is entered only via Claim
		{RoleVendor, StatusConfirmed, StatusInProgress, false},
		{RoleRider, StatusConfirmed, StatusInProgress, false},
		// rider edges
		{RoleRider, StatusInProgress, StatusCompleted, true},
		{RoleRider, StatusInProgress, StatusCancelled, true},
		// rider has no vendor powers
		{RoleRider, StatusPending, StatusConfirmed, false},
		{RoleRider, StatusConfirmed, StatusCompleted, false},
		{RoleRider, StatusInProgress, StatusPending, false},
		// terminal states have no rider edges
		{RoleRider, StatusCompleted, StatusCancelled, false},
		{RoleRider, StatusCancelled, StatusCompleted, false},
	}
	for _, tc := range cases {
		got := CanTransition(tc.role, tc.from, tc.to)
		if got != tc.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tc.role, tc.from, tc.to, got, tc.want)
		}
	}
}

func TestValidStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled} {
		if !ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = false", s)
		}
	}
	for _, s := range []Status{"no_show", "rescheduled", "", "unknown"} {
		if ValidStatus(s) {
			t.Errorf("ValidStatus(%s) = true", s)
		}
	}
}
