package http

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{in: "4", want: 4, ok: true},
		{in: "4.0", want: 4, ok: true},
		{in: "4e0", want: 4, ok: true},
		{in: "0", want: 0, ok: true},
		{in: "-2", want: -2, ok: true},
		{in: "3000000000", want: 3_000_000_000, ok: true},
		{in: "9223372036854775807", want: 9223372036854775807, ok: true},
		{in: "9223372036854775808"},
		{in: "4.5"},
		{in: "1e-1"},
		{in: "1e999999999"},
	}
	for _, tt := range tests {
		got, ok := parseCount(json.Number(tt.in))
		if ok != tt.ok || got != tt.want {
			t.Fatalf("parseCount(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDecodeStrict(t *testing.T) {
	t.Parallel()

	var v struct {
		Tickets int `json:"tickets"`
	}
	if err := decodeStrict(strings.NewReader(`{"tickets":1}` + "\n"), &v); err != nil {
		t.Fatalf("expected trailing whitespace to be accepted, got %v", err)
	}
	if err := decodeStrict(strings.NewReader(`{"tickets":1} x`), &v); err == nil {
		t.Fatal("expected trailing data to be rejected")
	}
	if err := decodeStrict(strings.NewReader(`{"tickets":1}{}`), &v); err == nil {
		t.Fatal("expected a second object to be rejected")
	}
	if err := decodeStrict(strings.NewReader(`{"seats":1}`), &v); err == nil {
		t.Fatal("expected unknown field to be rejected")
	}
}
