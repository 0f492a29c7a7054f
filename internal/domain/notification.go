package domain

import "time"

// NotificationType is the top-level category of a notification.
// Only bulletin notifications are handled by the digest engine.
type NotificationType string

const (
	NotificationTypeBulletin NotificationType = "BULLETIN"
)

// ActionType identifies what happened to the entity a notification is about.
type ActionType string

const (
	ActionBookmarkVersionCreated   ActionType = "PUBLICATION_BOOKMARK_VERSION_CREATED"
	ActionBookmarkRedFlagRaised    ActionType = "PUBLICATION_BOOKMARK_RED_FLAG_RAISED"
	ActionBookmarkRedFlagResolved  ActionType = "PUBLICATION_BOOKMARK_RED_FLAG_RESOLVED"
	ActionBookmarkRedFlagComment   ActionType = "PUBLICATION_BOOKMARK_RED_FLAG_COMMENTED"
	ActionVersionRedFlagRaised     ActionType = "PUBLICATION_VERSION_RED_FLAG_RAISED"
	ActionVersionPeerReviewed      ActionType = "PUBLICATION_VERSION_PEER_REVIEWED"
	ActionVersionLinkedPredecessor ActionType = "PUBLICATION_VERSION_LINKED_PREDECESSOR"
	ActionVersionLinkedSuccessor   ActionType = "PUBLICATION_VERSION_LINKED_SUCCESSOR"
)

// ActionTypes lists every known action type in display order.
var ActionTypes = []ActionType{
	ActionBookmarkVersionCreated,
	ActionBookmarkRedFlagRaised,
	ActionBookmarkRedFlagResolved,
	ActionBookmarkRedFlagComment,
	ActionVersionRedFlagRaised,
	ActionVersionPeerReviewed,
	ActionVersionLinkedPredecessor,
	ActionVersionLinkedSuccessor,
}

func (a ActionType) IsValid() bool {
	switch a {
	case ActionBookmarkVersionCreated,
		ActionBookmarkRedFlagRaised,
		ActionBookmarkRedFlagResolved,
		ActionBookmarkRedFlagComment,
		ActionVersionRedFlagRaised,
		ActionVersionPeerReviewed,
		ActionVersionLinkedPredecessor,
		ActionVersionLinkedSuccessor:
		return true
	}
	return false
}

// Status tracks a notification that has not been delivered yet.
// Delivered notifications are deleted, so there is no "sent" status.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
)

// Payload is the action-specific display data rendered into the digest.
type Payload struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	First *bool  `json:"first,omitempty"`
}

// IsFirst reports whether the payload marks the first version of a publication.
func (p Payload) IsFirst() bool {
	return p.First != nil && *p.First
}

// Notification is one pending or failed event directed at a user.
type Notification struct {
	ID         string           `json:"id"`
	UserID     string           `json:"userId"`
	EntityID   string           `json:"entityId"`
	Type       NotificationType `json:"type"`
	ActionType ActionType       `json:"actionType"`
	Payload    Payload          `json:"payload"`
	Status     Status           `json:"status"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// MaxIngestBatch caps how many notifications a single ingest call may store.
const MaxIngestBatch = 1000

// NewBulletinNotification is the inbound shape for storing a bulletin notification.
type NewBulletinNotification struct {
	UserID     string     `json:"userId"`
	EntityID   string     `json:"entityId"`
	ActionType ActionType `json:"actionType"`
	Payload    Payload    `json:"payload"`
}

func (n *NewBulletinNotification) Validate() error {
	if n.UserID == "" {
		return ErrInvalidUserID
	}
	if n.EntityID == "" {
		return ErrInvalidEntityID
	}
	if !n.ActionType.IsValid() {
		return ErrInvalidActionType
	}
	return nil
}

// IngestRequest wraps a list of notifications to store.
type IngestRequest struct {
	Notifications []NewBulletinNotification `json:"notifications"`
}
