// Package mailer provides authcore.Mailer implementations: a structured-log
// mailer for development and a recording mailer for tests. Real deployments
// implement the interface against their delivery provider.
package mailer

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// LogMailer writes each would-be delivery to a zap logger instead of
// sending anything. Useful in development where no mail provider exists.
type LogMailer struct {
	log *zap.Logger
}

// NewLogMailer creates a [LogMailer]. A nil logger falls back to zap.NewNop.
func NewLogMailer(log *zap.Logger) *LogMailer {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogMailer{log: log}
}

// Send logs the delivery. It never fails.
func (m *LogMailer) Send(ctx context.Context, toEmail, purpose, code string) error {
	m.log.Info("mail dispatched",
		zap.String("to", toEmail),
		zap.String("purpose", purpose),
		zap.String("code", code),
	)
	return nil
}

// Delivery is one recorded Send call.
type Delivery struct {
	ToEmail string
	Purpose string
	Code    string
}

// Recorder captures deliveries for assertions in tests.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery
	failWith   error
}

// NewRecorder creates an empty [Recorder].
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes every subsequent Send return err. Pass nil to restore
// normal behavior.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failWith = err
}

// Send records the delivery, or returns the configured failure.
func (r *Recorder) Send(ctx context.Context, toEmail, purpose, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return r.failWith
	}
	r.deliveries = append(r.deliveries, Delivery{
		ToEmail: toEmail,
		Purpose: purpose,
		Code:    code,
	})
	return nil
}

// Deliveries returns a copy of everything recorded so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Delivery(nil), r.deliveries...)
}
