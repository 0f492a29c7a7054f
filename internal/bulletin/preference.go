// Package bulletin holds the pure parts of the digest engine: preference
// gating, recency collapse, grouping by action type, and partitioning of the
// pending set into per-user runs. Nothing here performs I/O.
package bulletin

import "github.com/octopus/bulletin-digest/internal/domain"

// settingByAction maps each action type to the user setting that gates it.
// Action types missing from this table are always delivered.
var settingByAction = map[domain.ActionType]string{
	domain.ActionBookmarkVersionCreated:   domain.SettingBookmarkVersion,
	domain.ActionBookmarkRedFlagRaised:    domain.SettingBookmarkFlag,
	domain.ActionBookmarkRedFlagResolved:  domain.SettingBookmarkFlag,
	domain.ActionBookmarkRedFlagComment:   domain.SettingBookmarkFlag,
	domain.ActionVersionRedFlagRaised:     domain.SettingVersionFlag,
	domain.ActionVersionPeerReviewed:      domain.SettingPeerReview,
	domain.ActionVersionLinkedPredecessor: domain.SettingLinked,
	domain.ActionVersionLinkedSuccessor:   domain.SettingLinked,
}

// SettingFor returns the settings key gating action, if any.
func SettingFor(action domain.ActionType) (string, bool) {
	key, ok := settingByAction[action]
	return key, ok
}

// ShouldDeliver reports whether a notification of the given action type may be
// delivered to a user with the given settings.
func ShouldDeliver(action domain.ActionType, settings domain.UserSettings) bool {
	key, ok := SettingFor(action)
	if !ok {
		return true
	}
	return !settings.Disabled(key)
}
