package catalog

import "strings"

// Member is one credited contributor on a song. UserID is zero for legacy
// credits that only carry a typed name.
type Member struct {
	UserID int64
	Name   string
}

// Legacy reports whether the member has no resolvable user id.
func (m Member) Legacy() bool {
	return m.UserID == 0
}

func (m Member) nameKey() string {
	return strings.ToLower(strings.TrimSpace(m.Name))
}

// NormalizeMembers drops the uploader, blank legacy names and duplicates.
// Members with an id dedupe by id; legacy members dedupe by name ignoring
// case. First occurrence wins so caller order is kept.
func NormalizeMembers(uploaderID int64, members []Member) []Member {
	var (
		out   []Member
		ids   = make(map[int64]struct{})
		names = make(map[string]struct{})
	)
	for _, m := range members {
		if m.Legacy() {
			key := m.nameKey()
			if key == "" {
				continue
			}
			if _, ok := names[key]; ok {
				continue
			}
			names[key] = struct{}{}
			m.Name = strings.TrimSpace(m.Name)
			out = append(out, m)
			continue
		}
		if m.UserID == uploaderID {
			continue
		}
		if _, ok := ids[m.UserID]; ok {
			continue
		}
		ids[m.UserID] = struct{}{}
		out = append(out, m)
	}
	return out
}

// MembersFromIDs wraps collaborator ids picked through search.
func MembersFromIDs(ids []int64) []Member {
	members := make([]Member, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		members = append(members, Member{UserID: id})
	}
	return members
}

// RosterDiff is the change needed to turn a stored roster into a desired one.
type RosterDiff struct {
	Added   []Member
	Removed []Member
}

// Empty reports whether the stored roster already matches.
func (d RosterDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// DiffRoster compares the stored collaborators with the full desired roster.
// Both inputs should already be normalised. Added keeps desired order and
// Removed keeps stored order.
func DiffRoster(stored, desired []Member) RosterDiff {
	var diff RosterDiff

	want := indexMembers(desired)
	have := indexMembers(stored)

	for _, m := range stored {
		if _, ok := want[memberKey(m)]; !ok {
			diff.Removed = append(diff.Removed, m)
		}
	}
	for _, m := range desired {
		if _, ok := have[memberKey(m)]; !ok {
			diff.Added = append(diff.Added, m)
		}
	}
	return diff
}

// Roster returns the uploader followed by the collaborators, with the same
// duplicate suppression as NormalizeMembers. A legacy name that matches the
// uploader or any credited user's name, ignoring case, is dropped.
func Roster(uploader Member, collaborators []Member) []Member {
	members := NormalizeMembers(uploader.UserID, collaborators)

	userNames := make(map[string]struct{}, len(members)+1)
	if key := uploader.nameKey(); key != "" {
		userNames[key] = struct{}{}
	}
	for _, m := range members {
		if key := m.nameKey(); !m.Legacy() && key != "" {
			userNames[key] = struct{}{}
		}
	}

	roster := []Member{uploader}
	for _, m := range members {
		if m.Legacy() {
			if _, ok := userNames[m.nameKey()]; ok {
				continue
			}
		}
		roster = append(roster, m)
	}
	return roster
}

type rosterKey struct {
	id   int64
	name string
}

func memberKey(m Member) rosterKey {
	if m.Legacy() {
		return rosterKey{name: m.nameKey()}
	}
	return rosterKey{id: m.UserID}
}

func indexMembers(members []Member) map[rosterKey]struct{} {
	idx := make(map[rosterKey]struct{}, len(members))
	for _, m := range members {
		idx[memberKey(m)] = struct{}{}
	}
	return idx
}
