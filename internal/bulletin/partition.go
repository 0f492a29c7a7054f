package bulletin

import "github.com/octopus/bulletin-digest/internal/domain"

// UserRun is a contiguous run of notifications belonging to one user.
type UserRun struct {
	UserID        string
	Notifications []domain.Notification
}

// IDs returns the ids of every notification in the run.
func (r UserRun) IDs() []string {
	ids := make([]string, len(r.Notifications))
	for i, n := range r.Notifications {
		ids[i] = n.ID
	}
	return ids
}

// SplitByUser cuts an ordered notification list into runs of equal UserID.
// A user whose notifications are not contiguous yields more than one run.
func SplitByUser(notifications []domain.Notification) []UserRun {
	var runs []UserRun
	for _, n := range notifications {
		if last := len(runs) - 1; last >= 0 && runs[last].UserID == n.UserID {
			runs[last].Notifications = append(runs[last].Notifications, n)
			continue
		}
		runs = append(runs, UserRun{UserID: n.UserID, Notifications: []domain.Notification{n}})
	}
	return runs
}

// Without returns the notifications whose id is not in ids.
func Without(notifications []domain.Notification, ids []string) []domain.Notification {
	if len(ids) == 0 {
		return notifications
	}
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]domain.Notification, 0, len(notifications))
	for _, n := range notifications {
		if _, ok := drop[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return out
}
