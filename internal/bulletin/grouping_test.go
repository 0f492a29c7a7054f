package bulletin_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/octopus/bulletin-digest/internal/bulletin"
	"github.com/octopus/bulletin-digest/internal/domain"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func notif(id, user, entity string, action domain.ActionType, offset time.Duration) domain.Notification {
	return domain.Notification{
		ID:         id,
		UserID:     user,
		EntityID:   entity,
		Type:       domain.NotificationTypeBulletin,
		ActionType: action,
		Status:     domain.StatusPending,
		CreatedAt:  t0.Add(offset),
	}
}

func groupIDs(d bulletin.Digest) map[domain.ActionType][]string {
	out := make(map[domain.ActionType][]string)
	for _, g := range d.Groups {
		for _, n := range g.Notifications {
			out[g.ActionType] = append(out[g.ActionType], n.ID)
		}
	}
	return out
}

func TestCollapse_KeepsNewestPerEntity(t *testing.T) {
	ns := []domain.Notification{
		notif("a", "u1", "pub-1", domain.ActionVersionLinkedSuccessor, 0),
		notif("b", "u1", "pub-1", domain.ActionVersionLinkedSuccessor, time.Hour),
		notif("c", "u1", "pub-2", domain.ActionBookmarkVersionCreated, 2*time.Hour),
	}

	digest, superseded := bulletin.Collapse(ns)

	want := map[domain.ActionType][]string{
		domain.ActionVersionLinkedSuccessor: {"b"},
		domain.ActionBookmarkVersionCreated: {"c"},
	}
	if got := groupIDs(digest); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected groups %v, got %v", want, got)
	}
	if !reflect.DeepEqual(superseded, []string{"a"}) {
		t.Fatalf("expected [a] superseded, got %v", superseded)
	}
	if digest.Len() != 2 {
		t.Fatalf("expected 2 notifications in digest, got %d", digest.Len())
	}
}

func TestCollapse_OlderArrivalIsDropped(t *testing.T) {
	ns := []domain.Notification{
		notif("newer", "u1", "pub-1", domain.ActionVersionPeerReviewed, time.Hour),
		notif("older", "u1", "pub-1", domain.ActionVersionPeerReviewed, 0),
	}

	digest, superseded := bulletin.Collapse(ns)

	if got := groupIDs(digest)[domain.ActionVersionPeerReviewed]; !reflect.DeepEqual(got, []string{"newer"}) {
		t.Fatalf("expected newer to survive, got %v", got)
	}
	if !reflect.DeepEqual(superseded, []string{"older"}) {
		t.Fatalf("expected older superseded, got %v", superseded)
	}
}

func TestCollapse_EqualTimestampKeepsFirst(t *testing.T) {
	ns := []domain.Notification{
		notif("first", "u1", "pub-1", domain.ActionVersionPeerReviewed, 0),
		notif("second", "u1", "pub-1", domain.ActionVersionPeerReviewed, 0),
	}

	digest, superseded := bulletin.Collapse(ns)

	if got := groupIDs(digest)[domain.ActionVersionPeerReviewed]; !reflect.DeepEqual(got, []string{"first"}) {
		t.Fatalf("expected first to survive a tie, got %v", got)
	}
	if !reflect.DeepEqual(superseded, []string{"second"}) {
		t.Fatalf("expected second superseded, got %v", superseded)
	}
}

func TestCollapse_SameEntityDifferentActionsAreIndependent(t *testing.T) {
	ns := []domain.Notification{
		notif("raised", "u1", "pub-1", domain.ActionBookmarkRedFlagRaised, 0),
		notif("resolved", "u1", "pub-1", domain.ActionBookmarkRedFlagResolved, time.Hour),
	}

	digest, superseded := bulletin.Collapse(ns)

	if len(digest.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(digest.Groups))
	}
	if len(superseded) != 0 {
		t.Fatalf("expected nothing superseded, got %v", superseded)
	}
}

func TestCollapse_GroupOrderFollowsFirstSeen(t *testing.T) {
	ns := []domain.Notification{
		notif("1", "u1", "pub-1", domain.ActionVersionPeerReviewed, 0),
		notif("2", "u1", "pub-2", domain.ActionBookmarkVersionCreated, time.Minute),
		notif("3", "u1", "pub-3", domain.ActionVersionPeerReviewed, 2*time.Minute),
	}

	digest, _ := bulletin.Collapse(ns)

	order := make([]domain.ActionType, len(digest.Groups))
	for i, g := range digest.Groups {
		order[i] = g.ActionType
	}
	want := []domain.ActionType{domain.ActionVersionPeerReviewed, domain.ActionBookmarkVersionCreated}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
}

func TestFilterByPreference(t *testing.T) {
	ns := []domain.Notification{
		notif("p1", "u2", "pub-1", domain.ActionVersionLinkedPredecessor, 0),
		notif("r1", "u2", "pub-2", domain.ActionVersionPeerReviewed, time.Minute),
		notif("s1", "u2", "pub-3", domain.ActionVersionLinkedSuccessor, 2*time.Minute),
	}
	settings := domain.UserSettings{domain.SettingLinked: false}

	kept, discarded := bulletin.FilterByPreference(ns, settings)

	if len(kept) != 1 || kept[0].ID != "r1" {
		t.Fatalf("expected only r1 kept, got %+v", kept)
	}
	if !reflect.DeepEqual(discarded, []string{"p1", "s1"}) {
		t.Fatalf("expected [p1 s1] discarded, got %v", discarded)
	}
}

func TestGroup_DisabledActionDiscardedRegardlessOfRecency(t *testing.T) {
	ns := []domain.Notification{
		notif("old", "u2", "pub-1", domain.ActionVersionLinkedPredecessor, 0),
		notif("new", "u2", "pub-1", domain.ActionVersionLinkedPredecessor, time.Hour),
	}

	res := bulletin.Group(ns, domain.UserSettings{domain.SettingLinked: false})

	if !res.Digest.Empty() {
		t.Fatalf("expected empty digest, got %+v", res.Digest)
	}
	if !reflect.DeepEqual(res.Discarded, []string{"old", "new"}) {
		t.Fatalf("expected both discarded, got %v", res.Discarded)
	}
	if len(res.Superseded) != 0 {
		t.Fatalf("expected nothing superseded, got %v", res.Superseded)
	}
}

func TestGroup_MixedPreferencesAndDuplicates(t *testing.T) {
	ns := []domain.Notification{
		notif("s-old", "u1", "pub-1", domain.ActionVersionLinkedSuccessor, 0),
		notif("flag", "u1", "pub-9", domain.ActionVersionRedFlagRaised, time.Minute),
		notif("s-new", "u1", "pub-1", domain.ActionVersionLinkedSuccessor, time.Hour),
		notif("bm", "u1", "pub-2", domain.ActionBookmarkVersionCreated, 2*time.Hour),
	}

	res := bulletin.Group(ns, domain.UserSettings{domain.SettingVersionFlag: false})

	want := map[domain.ActionType][]string{
		domain.ActionVersionLinkedSuccessor: {"s-new"},
		domain.ActionBookmarkVersionCreated: {"bm"},
	}
	if got := groupIDs(res.Digest); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected groups %v, got %v", want, got)
	}
	if !reflect.DeepEqual(res.Discarded, []string{"flag"}) {
		t.Fatalf("expected [flag] discarded, got %v", res.Discarded)
	}
	if !reflect.DeepEqual(res.Superseded, []string{"s-old"}) {
		t.Fatalf("expected [s-old] superseded, got %v", res.Superseded)
	}
}
