package stripe

import (
	"testing"
	"time"
)

func TestConstructEventAcceptsSignedPayload(t *testing.T) {
	payload := []byte(`{"type":"invoice.payment_succeeded","data":{"object":{}}}`)
	header := SignPayload(payload, "whsec_test", time.Now())

	event, err := ConstructEvent(payload, header, "whsec_test")
	if err != nil {
		t.Fatalf("ConstructEvent: %v", err)
	}
	if event["type"] != "invoice.payment_succeeded" {
		t.Fatalf("unexpected event type %v", event["type"])
	}
}

func TestConstructEventRejectsTamperedPayload(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	header := SignPayload(payload, "whsec_test", time.Now())

	tampered := []byte(`{"type":"customer.subscription.deleted"}`)
	if _, err := ConstructEvent(tampered, header, "whsec_test"); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestConstructEventRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"type":"checkout.session.completed"}`)
	header := SignPayload(payload, "whsec_test", time.Now())

	if _, err := ConstructEvent(payload, header, "whsec_other"); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"type":"invoice.payment_failed"}`)
	header := SignPayload(payload, "whsec_test", time.Now().Add(-10*time.Minute))

	if err := VerifySignature(payload, header, "whsec_test", DefaultWebhookTolerance); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifySignatureRejectsMissingHeader(t *testing.T) {
	if err := VerifySignature([]byte("{}"), "", "whsec_test", DefaultWebhookTolerance); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
