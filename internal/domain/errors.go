package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound          = errors.New("not found")
	ErrUserNoEmail       = errors.New("user has no email address")
	ErrRunInProgress     = errors.New("a bulletin run is already in progress")
	ErrInvalidUserID     = errors.New("userId must not be empty")
	ErrInvalidEntityID   = errors.New("entityId must not be empty")
	ErrInvalidActionType = errors.New("unknown actionType")
	ErrIngestEmpty       = errors.New("at least one notification is required")
	ErrIngestTooLarge    = errors.New("ingest exceeds maximum of 1000 notifications")
)

// ErrorKind classifies a failure raised while delivering a bulletin digest.
type ErrorKind string

const (
	// ErrorKindLookup: the user is unknown or has no email.
	ErrorKindLookup ErrorKind = "lookup"
	// ErrorKindDiscard: preference-filtered notifications could not be deleted.
	ErrorKindDiscard ErrorKind = "discard"
	// ErrorKindDelivery: the mail transport rejected the digest.
	ErrorKindDelivery ErrorKind = "delivery"
	// ErrorKindPersistence: a store write after delivery or during reconciliation failed.
	ErrorKindPersistence ErrorKind = "persistence"
	// ErrorKindBatchJoin: a per-user task ended unexpectedly.
	ErrorKindBatchJoin ErrorKind = "batch_join"
)

// Terminal reports whether an error of this kind ends processing for the user
// and moves their notifications to FAILED.
func (k ErrorKind) Terminal() bool {
	switch k {
	case ErrorKindLookup, ErrorKindDiscard, ErrorKindDelivery:
		return true
	}
	return false
}

// DigestError is a failure attributed to one user or one notification during a run.
type DigestError struct {
	Kind           ErrorKind
	UserID         string
	NotificationID string
	Err            error
}

func (e *DigestError) Error() string {
	switch {
	case e.NotificationID != "":
		return fmt.Sprintf("%s error for notification %s: %v", e.Kind, e.NotificationID, e.Err)
	case e.UserID != "":
		return fmt.Sprintf("%s error for user %s: %v", e.Kind, e.UserID, e.Err)
	default:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
}

func (e *DigestError) Unwrap() error { return e.Err }

// KindOf returns the kind of the first DigestError in err's chain, or "" when
// err is not a DigestError.
func KindOf(err error) ErrorKind {
	var de *DigestError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}
