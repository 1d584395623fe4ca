package host

import (
	"errors"
	"fmt"
	"testing"
)

func TestPhaseErrors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		err   PhaseError
		phase string
	}{
		{&ConfigError{Err: cause}, "parsing"},
		{&BindError{Err: cause}, "binding"},
		{&AttachError{Err: cause}, "attaching"},
		{&SessionError{Err: cause}, "serving"},
	}

	for _, tt := range tests {
		if got := tt.err.Phase(); got != tt.phase {
			t.Errorf("%T.Phase() = %q, want %q", tt.err, got, tt.phase)
		}
		if !errors.Is(tt.err, cause) {
			t.Errorf("%T does not unwrap to its cause", tt.err)
		}
		if tt.err.Error() == "" {
			t.Errorf("%T has empty message", tt.err)
		}
	}
}

func TestPhaseError_SurvivesWrapping(t *testing.T) {
	inner := &BindError{Err: errors.New("address already in use")}
	wrapped := fmt.Errorf("startup failed: %w", inner)

	var bindErr *BindError
	if !errors.As(wrapped, &bindErr) {
		t.Fatal("errors.As failed to find *BindError through wrapping")
	}

	var phaseErr PhaseError
	if !errors.As(wrapped, &phaseErr) {
		t.Fatal("errors.As failed to find PhaseError through wrapping")
	}
	if phaseErr.Phase() != "binding" {
		t.Errorf("Phase() = %q, want binding", phaseErr.Phase())
	}
}
