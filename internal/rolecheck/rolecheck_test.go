package rolecheck

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleAdmin, ActionManageUsers, true},
		{RoleAdmin, ActionWrite, true},
		{RoleUser, ActionRead, true},
		{RoleUser, ActionWrite, true},
		{RoleUser, ActionManageUsers, false},
		{Role("ghost"), ActionRead, false},
	}
	for _, tc := range cases {
		if got := Can(tc.role, tc.action); got != tc.want {
			t.Errorf("Can(%s, %s) = %v, want %v", tc.role, tc.action, got, tc.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if Normalize("admin") != RoleAdmin {
		t.Error("expected admin to normalize to RoleAdmin")
	}
	if Normalize("banana") != RoleUser {
		t.Error("expected unknown role to normalize to RoleUser")
	}
}
