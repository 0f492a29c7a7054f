package bulletin

import "github.com/octopus/bulletin-digest/internal/domain"

// ActionGroup is the set of notifications of one action type in a digest,
// holding at most one notification per entity.
type ActionGroup struct {
	ActionType    domain.ActionType     `json:"actionType"`
	Notifications []domain.Notification `json:"notifications"`
}

// Digest is the content of one bulletin email. Groups appear in the order
// their action type was first seen.
type Digest struct {
	Groups []ActionGroup `json:"groups"`
}

// Empty reports whether the digest has nothing to deliver.
func (d Digest) Empty() bool {
	return d.Len() == 0
}

// Len returns the number of notifications across all groups.
func (d Digest) Len() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Notifications)
	}
	return n
}

// Result is the outcome of grouping one user's pending notifications.
type Result struct {
	Digest Digest
	// Discarded holds ids suppressed by user preference. They must be deleted
	// before the digest is sent.
	Discarded []string
	// Superseded holds ids replaced by a newer notification for the same
	// action type and entity. They are resolved together with the digest.
	Superseded []string
}

// Group builds the digest for one user. Notifications must be in creation
// order. Preference filtering runs first, so every notification of a disabled
// action type is discarded whatever its recency; the remaining ones are then
// collapsed to the newest per (action type, entity).
func Group(notifications []domain.Notification, settings domain.UserSettings) Result {
	kept, discarded := FilterByPreference(notifications, settings)
	digest, superseded := Collapse(kept)
	return Result{Digest: digest, Discarded: discarded, Superseded: superseded}
}

// FilterByPreference splits notifications into those the user accepts and the
// ids of those their settings suppress. Input order is preserved.
func FilterByPreference(notifications []domain.Notification, settings domain.UserSettings) ([]domain.Notification, []string) {
	kept := make([]domain.Notification, 0, len(notifications))
	var discarded []string
	for _, n := range notifications {
		if ShouldDeliver(n.ActionType, settings) {
			kept = append(kept, n)
			continue
		}
		discarded = append(discarded, n.ID)
	}
	return kept, discarded
}

type entityKey struct {
	action domain.ActionType
	entity string
}

type slot struct {
	group int
	index int
}

// Collapse groups notifications by action type and keeps only the most
// recently created notification per entity. An incoming notification replaces
// the kept one only when its CreatedAt is strictly later; ties keep the
// earlier arrival. The ids that lost are returned as superseded.
func Collapse(notifications []domain.Notification) (Digest, []string) {
	var (
		digest     Digest
		superseded []string
		groupIdx   = make(map[domain.ActionType]int)
		seen       = make(map[entityKey]slot)
	)

	for _, n := range notifications {
		key := entityKey{action: n.ActionType, entity: n.EntityID}

		if s, ok := seen[key]; ok {
			current := &digest.Groups[s.group].Notifications[s.index]
			if n.CreatedAt.After(current.CreatedAt) {
				superseded = append(superseded, current.ID)
				*current = n
			} else {
				superseded = append(superseded, n.ID)
			}
			continue
		}

		gi, ok := groupIdx[n.ActionType]
		if !ok {
			gi = len(digest.Groups)
			groupIdx[n.ActionType] = gi
			digest.Groups = append(digest.Groups, ActionGroup{ActionType: n.ActionType})
		}
		g := &digest.Groups[gi]
		seen[key] = slot{group: gi, index: len(g.Notifications)}
		g.Notifications = append(g.Notifications, n)
	}

	return digest, superseded
}
