package vkverr

import (
	"errors"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	wrapped := New(KindNotCommitted, "read range [a,b) overlaps write at seq 7", nil)
	if !errors.Is(wrapped, NotCommitted) {
		t.Fatalf("expected errors.Is to match on Kind")
	}
	if errors.Is(wrapped, PastVersion) {
		t.Fatalf("unexpected match against a different Kind")
	}
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := New(KindOutOfMemory, "value bucket 4", cause)
	if errors.Unwrap(wrapped) != cause {
		t.Fatalf("Unwrap did not return the original cause")
	}
}

func TestErrorMessage(t *testing.T) {
	e := New(KindInvertedRange, "begin > end", nil)
	if e.Error() != "InvertedRange: begin > end" {
		t.Fatalf("unexpected message: %q", e.Error())
	}
}
