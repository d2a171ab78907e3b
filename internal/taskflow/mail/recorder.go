package mail

import (
	"context"
	"sync"
)

// Recorder keeps every message in memory. Tests use it to pick links out of
// sent mail.
type Recorder struct {
	Sender Sender

	mu   sync.Mutex
	sent []Message
	err  error
}

func (r *Recorder) SendVerification(_ context.Context, to, firstName, link string) error {
	return r.record(r.Sender.VerificationMessage(to, firstName, link))
}

func (r *Recorder) SendPasswordReset(_ context.Context, to, link string) error {
	return r.record(r.Sender.PasswordResetMessage(to, link))
}

// FailWith makes subsequent sends return err without recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) record(msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.sent...)
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Message{}, false
	}
	return r.sent[len(r.sent)-1], true
}
