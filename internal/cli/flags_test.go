package cli

import (
	"flag"
	"testing"

	"github.com/doridoridoriand/netsav-go/internal/config"
)

type optionalFlag interface {
	flag.Value
}

func TestOptionalInt(t *testing.T) {
	var i OptionalInt
	if _, ok := i.Value(); ok || i.String() != "" {
		t.Fatalf("expected unset int")
	}
	if err := i.Set("8080"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := i.Value(); !ok || v != 8080 || i.String() != "8080" {
		t.Fatalf("expected int value 8080, got %v (ok=%v)", v, ok)
	}
}

func TestOptionalString(t *testing.T) {
	var s OptionalString
	if _, ok := s.Value(); ok || s.String() != "" {
		t.Fatalf("expected unset string")
	}
	if err := s.Set("/run/netsav.pid"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := s.Value(); !ok || v != "/run/netsav.pid" {
		t.Fatalf("expected string value, got %q (ok=%v)", v, ok)
	}
}

func TestOptionalBool(t *testing.T) {
	var b OptionalBool
	if !b.IsBoolFlag() {
		t.Fatalf("expected IsBoolFlag to return true")
	}
	if _, ok := b.Value(); ok || b.String() != "" {
		t.Fatalf("expected unset bool")
	}
	if err := b.Set("true"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := b.Value(); !ok || !v || b.String() != "true" {
		t.Fatalf("expected bool value true, got %v (ok=%v)", v, ok)
	}
}

func TestOptionalMetricsMode(t *testing.T) {
	tests := []struct {
		input    string
		expected config.MetricsMode
		wantErr  bool
	}{
		{input: "per-target", expected: config.MetricsModePerTarget},
		{input: "aggregated", expected: config.MetricsModeAggregated},
		{input: "both", expected: config.MetricsModeBoth},
		{input: "invalid", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var m OptionalMetricsMode
			err := m.Set(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for input %q", tt.input)
				}
				if _, ok := m.Value(); ok {
					t.Fatalf("expected metrics mode to remain unset after error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error for input %q: %v", tt.input, err)
			}
			if v, ok := m.Value(); !ok || v != tt.expected || m.String() != tt.input {
				t.Fatalf("expected metrics mode %q, got %q (ok=%v)", tt.expected, v, ok)
			}
		})
	}
}

func TestOptionalMetricsModeErrorMessage(t *testing.T) {
	var m OptionalMetricsMode
	err := m.Set("invalid-mode")
	expectedMsg := `invalid metrics mode: "invalid-mode" (valid values: per-target, aggregated, both)`
	if err == nil || err.Error() != expectedMsg {
		t.Fatalf("expected error message %q, got %v", expectedMsg, err)
	}
}

func TestOptionalLevel(t *testing.T) {
	var l OptionalLevel
	if err := l.Set("debug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := l.Value(); !ok || v != "DEBUG" {
		t.Fatalf("expected DEBUG, got %q (ok=%v)", v, ok)
	}

	var bad OptionalLevel
	if err := bad.Set("verbose"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, ok := bad.Value(); ok {
		t.Fatalf("expected invalid level to remain unset")
	}
}

func TestInvalidValuesRejected(t *testing.T) {
	cases := map[string]struct {
		value optionalFlag
		input string
	}{
		"int":   {value: &OptionalInt{}, input: "not-a-number"},
		"bool":  {value: &OptionalBool{}, input: "not-a-bool"},
		"mode":  {value: &OptionalMetricsMode{}, input: "invalid-mode"},
		"level": {value: &OptionalLevel{}, input: "loud"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if err := tc.value.Set(tc.input); err == nil {
				t.Fatalf("expected error for %s", name)
			}
			if tc.value.String() != "" {
				t.Fatalf("expected empty string after failed set, got %q", tc.value.String())
			}
		})
	}
}
