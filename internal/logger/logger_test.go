package logger

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "returns empty when limit non-positive", input: "hello world", limit: 0, expect: ""},
		{name: "shorter than limit", input: "hello", limit: 10, expect: "hello"},
		{name: "truncates and adds ellipsis", input: "hello world", limit: 5, expect: "hello..."},
		{name: "counts runes not bytes", input: "भर्ती सूचना", limit: 5, expect: "भर्ती..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestNewBuildsBothEncodings(t *testing.T) {
	for _, json := range []bool{false, true} {
		l, err := New(json, true)
		if err != nil {
			t.Fatalf("json=%v: unexpected error: %v", json, err)
		}
		if l == nil {
			t.Fatalf("json=%v: expected logger", json)
		}
	}
	if OrNop(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}
