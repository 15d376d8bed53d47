package outing

// Role is the permission tier of a participant within a draft. It is always
// derived from the draft's host and membership, never stored.
type Role string

const (
	RoleHost   Role = "host"
	RoleEditor Role = "editor"
	RoleGuest  Role = "guest"
)

// ResolveRole maps (draft, user) to a role. It has no side effects and returns
// the same answer for the same draft snapshot and user.
func ResolveRole(d *Draft, userID string) Role {
	if d == nil || userID == "" {
		return RoleGuest
	}
	if d.HostID == userID {
		return RoleHost
	}
	if d.AllowAllEdit && d.HasParticipant(userID) {
		return RoleEditor
	}
	return RoleGuest
}

// CanEditStops reports whether the role may mutate stops on an unlocked draft.
func (r Role) CanEditStops() bool {
	return r == RoleHost || r == RoleEditor
}

// IsHost reports whether the role is the host.
func (r Role) IsHost() bool {
	return r == RoleHost
}
