package roster

import (
	"iter"
	"sort"
)

// Roster tracks the participants currently known to the client plus the
// room's ban list. It is owned by a single session loop and performs no
// locking of its own.
type Roster struct {
	users  map[int]*User
	banned map[int]*BannedUser
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{
		users:  make(map[int]*User),
		banned: make(map[int]*BannedUser),
	}
}

// Upsert inserts the snapshot if the handle is new, otherwise merges the
// mutable fields into the existing record. Returns the resulting record.
func (r *Roster) Upsert(snap User) *User {
	u, ok := r.users[snap.Handle]
	if !ok {
		u = &User{Handle: snap.Handle}
		r.users[snap.Handle] = u
	}
	if snap.Nick != "" {
		u.Nick = snap.Nick
	}
	if snap.Account != "" {
		u.Account = snap.Account
	}
	u.Mod = snap.Mod
	u.Owner = snap.Owner
	return u
}

// Find returns the user behind handle, or nil if absent.
func (r *Roster) Find(handle int) *User {
	return r.users[handle]
}

// Remove deletes the user behind handle and returns the removed record, or
// nil if absent. The record is detached: a later re-use of the same handle
// creates a fresh entry.
func (r *Roster) Remove(handle int) *User {
	u, ok := r.users[handle]
	if !ok {
		return nil
	}
	delete(r.users, handle)
	return u
}

// Len reports how many users are currently present.
func (r *Roster) Len() int {
	return len(r.users)
}

// AddBanned records a ban-list entry, replacing any record with the same
// ban id.
func (r *Roster) AddBanned(b BannedUser) *BannedUser {
	rec := b
	r.banned[b.ID] = &rec
	return &rec
}

// RemoveBanned deletes the ban record behind id and returns it, or nil if
// absent.
func (r *Roster) RemoveBanned(id int) *BannedUser {
	b, ok := r.banned[id]
	if !ok {
		return nil
	}
	delete(r.banned, id)
	return b
}

// ClearBanned empties the ban list, e.g. before applying a fresh snapshot.
func (r *Roster) ClearBanned() {
	clear(r.banned)
}

// Banned returns the ban list ordered by ban id.
func (r *Roster) Banned() []BannedUser {
	out := make([]BannedUser, 0, len(r.banned))
	for _, b := range r.banned {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All iterates over a snapshot of every present user, ordered by handle.
func (r *Roster) All() iter.Seq[User] {
	return r.filter(func(User) bool { return true })
}

// SignedIn iterates over users with a registered account.
func (r *Roster) SignedIn() iter.Seq[User] {
	return r.filter(func(u User) bool { return u.Account != "" })
}

// Moderators iterates over users classified as moderator or owner.
func (r *Roster) Moderators() iter.Seq[User] {
	return r.filter(func(u User) bool {
		role := Classify(u.Owner, u.Mod, u.Account)
		return role == RoleModerator || role == RoleOwner
	})
}

// Members iterates over signed-in users without moderation rights.
func (r *Roster) Members() iter.Seq[User] {
	return r.filter(func(u User) bool {
		return Classify(u.Owner, u.Mod, u.Account) == RoleMember
	})
}

// Lurkers iterates over users with no account.
func (r *Roster) Lurkers() iter.Seq[User] {
	return r.filter(func(u User) bool {
		return Classify(u.Owner, u.Mod, u.Account) == RoleLurker
	})
}

// filter snapshots the roster at call time, so the returned sequence is
// restartable and unaffected by later mutations.
func (r *Roster) filter(keep func(User) bool) iter.Seq[User] {
	snap := make([]User, 0, len(r.users))
	for _, u := range r.users {
		snap = append(snap, *u)
	}
	sort.Slice(snap, func(i, j int) bool { return snap[i].Handle < snap[j].Handle })
	return func(yield func(User) bool) {
		for _, u := range snap {
			if !keep(u) {
				continue
			}
			if !yield(u) {
				return
			}
		}
	}
}
