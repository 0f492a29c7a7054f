// Package mailer delivers bulletin digests. Each transport sends exactly one
// email per call; batching and retry policy belong to the caller.
package mailer

import (
	"context"

	"github.com/octopus/bulletin-digest/internal/bulletin"
)

// Message is one user's digest addressed to their email.
type Message struct {
	To     string
	UserID string
	Digest bulletin.Digest
}

// Mailer abstracts the mail transport.
// Mocking this interface in tests gives full control over delivery outcomes
// without talking to a real server.
type Mailer interface {
	SendDigest(ctx context.Context, msg Message) error
}
