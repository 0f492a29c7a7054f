package domain

import "time"

// Setting keys stored in a user's settings document. Each gates one or more
// action types; see bulletin.SettingFor.
const (
	SettingBookmarkVersion = "enableBookmarkVersionNotifications"
	SettingBookmarkFlag    = "enableBookmarkFlagNotifications"
	SettingVersionFlag     = "enableVersionFlagNotifications"
	SettingPeerReview      = "enablePeerReviewNotifications"
	SettingLinked          = "enableLinkedNotifications"
)

// UserSettings is the free-form settings document of a user.
// Notification flags are opt-out: only an explicit false disables delivery.
type UserSettings map[string]any

// Disabled reports whether key is explicitly set to false.
func (s UserSettings) Disabled(key string) bool {
	v, ok := s[key].(bool)
	return ok && !v
}

// User is the subset of a user profile the digest engine reads.
type User struct {
	ID                 string       `json:"id"`
	Email              string       `json:"email"`
	Settings           UserSettings `json:"settings"`
	LastBulletinSentAt *time.Time   `json:"lastBulletinSentAt,omitempty"`
}

// BulletinThrottled reports whether the user received a bulletin less than
// window before now.
func (u *User) BulletinThrottled(now time.Time, window time.Duration) bool {
	if u.LastBulletinSentAt == nil {
		return false
	}
	return now.Sub(*u.LastBulletinSentAt) < window
}
