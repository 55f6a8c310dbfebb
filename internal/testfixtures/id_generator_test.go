package testfixtures

import "testing"

func TestIDGeneratorSequence(t *testing.T) {
	gen := NewIDGenerator("booking")

	if got := gen.Next(); got != "booking-0001" {
		t.Fatalf("unexpected first id %q", got)
	}
	if got := gen.Next(); got != "booking-0002" {
		t.Fatalf("unexpected second id %q", got)
	}

	gen.SetCounter(41)
	if got := gen.Next(); got != "booking-0042" {
		t.Fatalf("expected counter override to apply, got %q", got)
	}
}

func TestIDGeneratorDefaultsPrefix(t *testing.T) {
	gen := NewIDGenerator("")
	if got := gen.Next(); got != "res-0001" {
		t.Fatalf("unexpected id %q", got)
	}
}

func TestIDGeneratorNextFuncNilReceiver(t *testing.T) {
	var gen *IDGenerator
	next := gen.NextFunc()
	if got := next(); got != "" {
		t.Fatalf("expected empty id from nil generator, got %q", got)
	}
}
