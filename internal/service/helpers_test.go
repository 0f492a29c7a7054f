package service_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/octopus/bulletin-digest/internal/domain"
	"github.com/octopus/bulletin-digest/internal/mailer"
)

var now = time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return now }

func notif(id, user, entity string, action domain.ActionType, createdAt time.Time) domain.Notification {
	return domain.Notification{
		ID:         id,
		UserID:     user,
		EntityID:   entity,
		Type:       domain.NotificationTypeBulletin,
		ActionType: action,
		Status:     domain.StatusPending,
		Payload:    domain.Payload{Title: "Publication " + entity, URL: "https://octopus.ac/publications/" + entity},
		CreatedAt:  createdAt,
	}
}

// fakeMailer records every digest and can be told to fail or panic for
// specific recipients.
type fakeMailer struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failFor  map[string]error
	panicFor map[string]bool
	inFlight int
	peak     int
	delay    time.Duration
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{failFor: map[string]error{}, panicFor: map[string]bool{}}
}

func (f *fakeMailer) SendDigest(_ context.Context, msg mailer.Message) error {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.peak {
		f.peak = f.inFlight
	}
	shouldPanic := f.panicFor[msg.To]
	err := f.failFor[msg.To]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if shouldPanic {
		panic("template exploded")
	}
	if err != nil {
		return err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailer) messagesTo(email string) []mailer.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []mailer.Message
	for _, m := range f.sent {
		if m.To == email {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeMailer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func ids(ns []domain.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	sort.Strings(out)
	return out
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func kinds(errs []error) []domain.ErrorKind {
	out := make([]domain.ErrorKind, len(errs))
	for i, err := range errs {
		out[i] = domain.KindOf(err)
	}
	return out
}

var errSMTP = errors.New("smtp: 554 rejected")
