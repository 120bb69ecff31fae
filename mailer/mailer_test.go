package mailer

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogMailerLogsDelivery(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := NewLogMailer(zap.New(core))

	if err := m.Send(context.Background(), "a@example.com", "email_verification", "123456"); err != nil {
		t.Fatalf("send: %v", err)
	}

	entries := logs.FilterMessage("mail dispatched").All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["to"] != "a@example.com" || fields["purpose"] != "email_verification" || fields["code"] != "123456" {
		t.Errorf("fields = %v", fields)
	}
}

func TestLogMailerNilLogger(t *testing.T) {
	m := NewLogMailer(nil)
	if err := m.Send(context.Background(), "a@example.com", "password_reset", "000000"); err != nil {
		t.Fatalf("send: %v", err)
	}
}

func TestRecorderCapturesAndFails(t *testing.T) {
	r := NewRecorder()

	if err := r.Send(context.Background(), "a@example.com", "password_reset", "111111"); err != nil {
		t.Fatalf("send: %v", err)
	}

	boom := errors.New("smtp down")
	r.FailWith(boom)
	if err := r.Send(context.Background(), "b@example.com", "password_reset", "222222"); !errors.Is(err, boom) {
		t.Errorf("send = %v, want configured failure", err)
	}

	deliveries := r.Deliveries()
	if len(deliveries) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(deliveries))
	}
	if deliveries[0].ToEmail != "a@example.com" || deliveries[0].Code != "111111" {
		t.Errorf("delivery = %+v", deliveries[0])
	}
}
