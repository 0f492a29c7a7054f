package service

import (
	"errors"
	"time"

	"github.com/octopus/bulletin-digest/internal/domain"
)

// Result is the outcome of one SendAll run. Errors is the only error channel:
// SendAll never fails as a whole.
type Result struct {
	Errors         []error
	TotalSent      int
	TotalFailed    int
	TotalSkipped   int
	TotalDiscarded int
	EmailsSent     int
	Duration       time.Duration
}

// Busy reports whether the run was refused because another was in progress.
func (r Result) Busy() bool {
	for _, err := range r.Errors {
		if errors.Is(err, domain.ErrRunInProgress) {
			return true
		}
	}
	return false
}

// Outcome holds the per-bucket notification sets produced by the dispatcher.
// Every dispatched notification lands in at most one bucket; notifications of
// a user dropped after an earlier failure in the same run land in none and
// stay PENDING.
type Outcome struct {
	Sent      []domain.Notification
	Failed    []domain.Notification
	Skipped   []domain.Notification
	Discarded []string
	Errors    []error
	// EmailsSent counts digests accepted by the mail transport.
	EmailsSent int
}
