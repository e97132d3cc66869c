package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "error with cause",
			err: Wrap(KindCodec, "encode", "webp encode failed",
				errors.New("short write")),
			contains: []string{"[codec:encode]", "webp encode failed", "short write"},
		},
		{
			name:     "error without cause",
			err:      New(KindRule, "evaluate", "rule returned no config"),
			contains: []string{"[rule:evaluate]", "rule returned no config"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errStr := tt.err.Error()
			for _, substr := range tt.contains {
				if !strings.Contains(errStr, substr) {
					t.Errorf("error string %q does not contain %q", errStr, substr)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	wrappedErr := Wrap(KindCache, "get", "wrapped", originalErr)

	if !errors.Is(wrappedErr, originalErr) {
		t.Error("Unwrap should return the original error")
	}
}

func TestWrap_PreservesTypedError(t *testing.T) {
	inner := New(KindAnalysis, "sample", "pixel read failed")
	outer := Wrap(KindUnknown, "outer", "should keep inner kind", fmt.Errorf("ctx: %w", inner))

	if outer.Kind != KindAnalysis {
		t.Errorf("expected inner kind to win, got %s", outer.Kind)
	}
}

func TestIsKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     Kind
		expected bool
	}{
		{
			name:     "direct match",
			err:      New(KindDelivery, "policy", "no policy"),
			kind:     KindDelivery,
			expected: true,
		},
		{
			name:     "wrapped match",
			err:      fmt.Errorf("outer: %w", New(KindCodec, "decode", "bad header")),
			kind:     KindCodec,
			expected: true,
		},
		{
			name:     "mismatch",
			err:      New(KindCodec, "decode", "bad header"),
			kind:     KindRule,
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("plain"),
			kind:     KindCodec,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsKind(tt.err, tt.kind); got != tt.expected {
				t.Errorf("IsKind() = %v, want %v", got, tt.expected)
			}
		})
	}
}
