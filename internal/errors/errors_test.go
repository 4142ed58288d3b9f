package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	err := New(TabNotFound, "tab x not found")
	if got := err.Error(); got != "[TAB_NOT_FOUND] tab x not found" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("dial tcp: refused")
	wrapped := Wrap(RemoteError, "commit failed", cause)
	if got := wrapped.Error(); got != "[REMOTE_ERROR] commit failed: dial tcp: refused" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to its cause")
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "direct", err: New(NothingToCommit, "x"), want: NothingToCommit},
		{name: "wrapped deeper", err: fmt.Errorf("outer: %w", Newf(PortalInactive, "portal %q", "acme")), want: PortalInactive},
		{name: "foreign error", err: errors.New("plain"), want: InternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasCode(t *testing.T) {
	err := New(OperationInProgress, "busy")
	if !HasCode(err, OperationInProgress) {
		t.Error("matching code should report true")
	}
	if HasCode(err, TabNotFound) {
		t.Error("mismatched code should report false")
	}
	if HasCode(nil, InternalError) {
		t.Error("nil error has no code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(NothingToCommit, "clean").WithDetails(map[string]int{"dirtyFields": 0})
	if err.Details == nil {
		t.Error("details should be attached")
	}
}
