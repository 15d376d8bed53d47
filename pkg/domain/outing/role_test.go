package outing

import "testing"

func TestResolveRole(t *testing.T) {
	d := &Draft{
		HostID:       "host",
		AllowAllEdit: true,
		Participants: []Participant{{ID: "host"}, {ID: "ana"}},
	}
	locked := d.Clone()
	locked.AllowAllEdit = false

	tests := []struct {
		name  string
		draft *Draft
		user  string
		want  Role
	}{
		{"host", d, "host", RoleHost},
		{"participant with open policy", d, "ana", RoleEditor},
		{"outsider", d, "zed", RoleGuest},
		{"participant with closed policy", locked, "ana", RoleGuest},
		{"host with closed policy", locked, "host", RoleHost},
		{"empty user", d, "", RoleGuest},
		{"nil draft", nil, "host", RoleGuest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveRole(tt.draft, tt.user); got != tt.want {
				t.Errorf("ResolveRole = %s, want %s", got, tt.want)
			}
			if ResolveRole(tt.draft, tt.user) != ResolveRole(tt.draft, tt.user) {
				t.Error("ResolveRole is not stable for the same snapshot")
			}
		})
	}
}

func TestRole_Capabilities(t *testing.T) {
	if !RoleHost.CanEditStops() || !RoleEditor.CanEditStops() || RoleGuest.CanEditStops() {
		t.Error("CanEditStops mismatch")
	}
	if !RoleHost.IsHost() || RoleEditor.IsHost() {
		t.Error("IsHost mismatch")
	}
}
