package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseGate,
				Kind:   KindAlreadyClosed,
				Object: "recognizer",
				Detail: "object is already closed",
			},
			contains: []string{"[gate]", "already_closed", "(recognizer)", "object is already closed"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseAwait,
				Kind:  KindTimeout,
			},
			contains: []string{"[await]", "timeout"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseEngine,
				Kind:   KindEngineFailure,
				Detail: "start rejected",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[engine]", "engine_failure", "start rejected", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Engine("start", cause)

	if !errors.Is(err, cause) {
		t.Fatal("errors.Is should find the cause")
	}
	if err.Unwrap() != cause {
		t.Fatal("Unwrap returned wrong cause")
	}
}

func TestError_IsSentinels(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"already closed", AlreadyClosed(PhaseGate, "x"), ErrAlreadyClosed, true},
		{"timeout", Timeout(PhaseAwait, time.Second, nil), ErrTimeout, true},
		{"canceled", Canceled(PhaseAwait, context.Canceled), ErrCanceled, true},
		{"disposal", CanceledByDisposal("op"), ErrCanceledByDisposal, true},
		{"handler", HandlerFailure("recognized", errors.New("boom")), ErrHandlerFailure, true},
		{"engine", Engine("x", nil), ErrEngineFailure, true},
		{"kind mismatch", Timeout(PhaseAwait, 0, nil), ErrAlreadyClosed, false},
		{"wrapped", fmt.Errorf("outer: %w", AlreadyClosed(PhaseGate, "x")), ErrAlreadyClosed, true},
		{"phase mismatch", AlreadyClosed(PhaseGate, "x"), &Error{Phase: PhaseAwait, Kind: KindAlreadyClosed}, false},
		{"phase match", AlreadyClosed(PhaseGate, "x"), &Error{Phase: PhaseGate, Kind: KindAlreadyClosed}, true},
		{"plain error", errors.New("plain"), ErrAlreadyClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.target); got != tt.want {
				t.Fatalf("Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestError_TimeoutKeepsContextCause(t *testing.T) {
	err := Timeout(PhaseAwait, 0, context.DeadlineExceeded)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatal("timeout should wrap context.DeadlineExceeded")
	}
	if !strings.Contains(err.Error(), "deadline exceeded") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseConfig, KindInvalidInput).
		Object("config").
		Value(42).
		Detail("bad value %d", 42).
		Cause(errors.New("parse")).
		Build()

	if err.Phase != PhaseConfig || err.Kind != KindInvalidInput {
		t.Fatalf("wrong phase/kind: %s/%s", err.Phase, err.Kind)
	}
	if err.Detail != "bad value 42" {
		t.Fatalf("wrong detail %q", err.Detail)
	}
	if err.Value != 42 {
		t.Fatalf("wrong value %v", err.Value)
	}
	if err.Object != "config" {
		t.Fatalf("wrong object %q", err.Object)
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(fmt.Errorf("x: %w", CanceledByDisposal("op"))); k != KindCanceledByDisposal {
		t.Fatalf("KindOf = %q", k)
	}
	if k := KindOf(errors.New("plain")); k != "" {
		t.Fatalf("KindOf plain = %q", k)
	}

	var target *Error
	if !As(NotFound(PhaseEngine, "handle 7"), &target) {
		t.Fatal("As should match *Error")
	}
	if target.Detail != "handle 7 not found" {
		t.Fatalf("detail = %q", target.Detail)
	}
}
