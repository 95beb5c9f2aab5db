// Package mail is the outbound mail collaborator: a Sender interface, an
// SMTP implementation and a recording fake for tests.
package mail

import (
	"context"
	"sync"
)

type Sender interface {
	SendEmailConfirmation(ctx context.Context, to string, username string, token string) error
	SendPasswordReset(ctx context.Context, to string, username string, token string) error
}

type RecordedMail struct {
	To       string
	Username string
	Token    string
}

// Recorder is a Sender that only remembers what it was asked to deliver
type Recorder struct {
	mu sync.Mutex

	Confirmations []RecordedMail
	Resets        []RecordedMail
}

func (r *Recorder) SendEmailConfirmation(_ context.Context, to string, username string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Confirmations = append(r.Confirmations, RecordedMail{To: to, Username: username, Token: token})
	return nil
}

func (r *Recorder) SendPasswordReset(_ context.Context, to string, username string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Resets = append(r.Resets, RecordedMail{To: to, Username: username, Token: token})
	return nil
}

func (r *Recorder) Sent() (confirmations []RecordedMail, resets []RecordedMail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RecordedMail(nil), r.Confirmations...), append([]RecordedMail(nil), r.Resets...)
}
