package roster

import "time"

// Role is the derived classification of a room participant. It is
// recomputed from the current flags on every call, never cached.
type Role int

const (
	// RoleLurker is a user with no registered account.
	RoleLurker Role = iota
	// RoleMember is a signed-in user without moderation rights.
	RoleMember
	// RoleModerator has the room's mod flag set.
	RoleModerator
	// RoleOwner owns the room.
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleModerator:
		return "moderator"
	case RoleMember:
		return "member"
	default:
		return "lurker"
	}
}

// User is one room participant keyed by the server-assigned handle. The
// handle is only unique while the user is present; the server reuses it
// after a quit.
type User struct {
	Handle  int
	Nick    string
	Account string
	Mod     bool
	Owner   bool

	Broadcasting bool
	Waiting      bool // waiting in the green room

	LastMessageAt time.Time

	// Filled in by the public account lookup, best effort.
	AccountID  int
	LastActive time.Time
}

// Role classifies the user from its current flags.
func (u *User) Role() Role {
	return Classify(u.Owner, u.Mod, u.Account)
}

// Classify derives a role from the owner/mod flags and account presence.
// Pure function: stable under nick changes and any non-flag mutation.
func Classify(owner, mod bool, account string) Role {
	switch {
	case owner:
		return RoleOwner
	case mod:
		return RoleModerator
	case account != "":
		return RoleMember
	default:
		return RoleLurker
	}
}

// BannedUser is a ban-list record. It is keyed by the server-issued ban id,
// not the live handle, since the banned user is no longer present.
type BannedUser struct {
	ID      int
	Handle  int
	Nick    string
	Account string
}
