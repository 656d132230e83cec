package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestCopiesMatchSentinel(t *testing.T) {
	sentinel := NewKind(KindConflict, "SEAT_LIMIT", "limit", http.StatusConflict)
	wrapped := fmt.Errorf("service: %w", sentinel.WithInternal(stdErrors.New("cause")))

	if !stdErrors.Is(wrapped, sentinel) {
		t.Fatal("expected wrapped copy to match sentinel")
	}
	if stdErrors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected different codes not to match")
	}
	if KindOf(wrapped) != KindConflict {
		t.Fatalf("unexpected kind: %s", KindOf(wrapped))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(stdErrors.New("plain")) != KindInternal {
		t.Fatal("expected plain errors to be internal")
	}
}

func TestNewDerivesKind(t *testing.T) {
	cases := map[int]Kind{
		http.StatusBadRequest: KindValidation,
		http.StatusNotFound:   KindNotFound,
		http.StatusConflict:   KindConflict,
		http.StatusGone:       KindExpired,
		http.StatusBadGateway: KindDependency,
		http.StatusTeapot:     KindInternal,
	}
	for status, kind := range cases {
		if got := New("X", "x", status).Kind; got != kind {
			t.Fatalf("status %d: expected %s, got %s", status, kind, got)
		}
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestNewValidationKeepsCode(t *testing.T) {
	err := NewValidation("email is invalid")
	if !stdErrors.Is(err, ErrValidation) {
		t.Fatal("expected validation error to match ErrValidation")
	}
	if err.Message != "email is invalid" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
}
