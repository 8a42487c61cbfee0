package cloud

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"404 is not found", &googleapi.Error{Code: 404, Message: "no such cluster"}, KindNotFound},
		{"403 is access denied", &googleapi.Error{Code: 403, Message: "forbidden"}, KindAccessDenied},
		{"401 is access denied", &googleapi.Error{Code: 401, Message: "unauthenticated"}, KindAccessDenied},
		{"409 is conflict", &googleapi.Error{Code: 409, Message: "already exists"}, KindConflict},
		{"400 is invalid request", &googleapi.Error{Code: 400, Message: "bad topology"}, KindInvalidRequest},
		{"429 is transient", &googleapi.Error{Code: 429, Message: "rate limited"}, KindTransient},
		{"503 is transient", &googleapi.Error{Code: 503, Message: "backend unavailable"}, KindTransient},
		{"deadline is timeout", context.DeadlineExceeded, KindTimeout},
		{"plain error defaults to transient", errors.New("connection reset"), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("test op", "resource", tt.err)
			if ErrKind(got) != tt.want {
				t.Errorf("Classify(%v) kind = %q, want %q", tt.err, ErrKind(got), tt.want)
			}
		})
	}
}

func TestClassifyNil(t *testing.T) {
	if err := Classify("op", "res", nil); err != nil {
		t.Errorf("Classify(nil) = %v, want nil", err)
	}
}

func TestClassifyPreservesExistingKind(t *testing.T) {
	inner := NewError(KindNotFound, "get cluster", "demo", errors.New("missing"))
	wrapped := fmt.Errorf("outer context: %w", inner)

	got := Classify("retry op", "demo", wrapped)
	if !IsNotFound(got) {
		t.Errorf("Classify re-tagged an already classified error: kind = %q", ErrKind(got))
	}
}

func TestClassifyWrapping(t *testing.T) {
	gerr := &googleapi.Error{Code: 404, Message: "gone"}
	got := Classify("get node pool", "tpu-pool", gerr)

	var unwrapped *googleapi.Error
	if !errors.As(got, &unwrapped) {
		t.Fatal("classified error does not unwrap to *googleapi.Error")
	}
	if !IsNotFound(got) {
		t.Errorf("kind = %q, want %q", ErrKind(got), KindNotFound)
	}
}

func TestKindHelpers(t *testing.T) {
	if IsTransient(errors.New("raw")) {
		t.Error("IsTransient(raw error) = true, want false for unclassified errors")
	}
	if !IsConflict(NewError(KindConflict, "op", "r", errors.New("drift"))) {
		t.Error("IsConflict(conflict error) = false")
	}
	if ErrKind(nil) != "" {
		t.Error("ErrKind(nil) should be empty")
	}
}
