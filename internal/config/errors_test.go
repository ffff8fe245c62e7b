package config

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestTransientError_Unwrap(t *testing.T) {
	original := errors.New("dial tcp: connection refused")
	wrapped := NewTransientError(original)

	if wrapped.Error() != original.Error() {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), original.Error())
	}
	if !errors.Is(wrapped, original) {
		t.Error("expected errors.Is to reach the original error")
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("execution reverted"), false},
		{"transient", NewTransientError(errors.New("timeout")), true},
		{"wrapped transient", fmt.Errorf("endpoint 2: %w", NewTransientError(errors.New("502"))), true},
		{"sentinel", ErrSaleClosed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetRetryAfter(t *testing.T) {
	err := NewTransientErrorWithRetry(ErrProviderTimeout, 3*time.Second)
	if got := GetRetryAfter(fmt.Errorf("outer: %w", err)); got != 3*time.Second {
		t.Errorf("GetRetryAfter() = %v, want 3s", got)
	}
	if !errors.Is(err, ErrProviderTimeout) {
		t.Error("expected sentinel to survive transient wrapping")
	}
	if got := GetRetryAfter(errors.New("permanent")); got != 0 {
		t.Errorf("GetRetryAfter(permanent) = %v, want 0", got)
	}
}
