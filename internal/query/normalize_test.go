package query

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "strips enumeration and markdown",
			in: []string{
				"1. **Tesla TSLA earnings miss January 2026**",
				"2) Tesla recall NHTSA investigation details",
				"- Tesla executive departure announcement news",
			},
			want: []string{
				"Tesla TSLA earnings miss January 2026",
				"Tesla recall NHTSA investigation details",
				"Tesla executive departure announcement news",
			},
		},
		{
			name: "strips surrounding quotes",
			in:   []string{`"Apple AAPL guidance cut quarterly earnings"`},
			want: []string{"Apple AAPL guidance cut quarterly earnings"},
		},
		{
			name: "drops too-short queries",
			in:   []string{"TSLA earnings", "Netflix NFLX subscriber growth miss"},
			want: []string{"Netflix NFLX subscriber growth miss"},
		},
		{
			name: "bullet characters removed",
			in:   []string{"• Microsoft major contract announcement details"},
			want: []string{"Microsoft major contract announcement details"},
		},
		{
			name: "empty and whitespace dropped",
			in:   []string{"", "   ", "Valid query about stock movement"},
			want: []string{"Valid query about stock movement"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Normalize() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Normalize()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestNormalizeTruncatesAtWordBoundary(t *testing.T) {
	long := "Tesla stock " + strings.Repeat("analysis ", 40)
	got := Normalize([]string{long})
	if len(got) != 1 {
		t.Fatalf("Expected 1 query, got %d", len(got))
	}
	if len(got[0]) > MaxQueryLen {
		t.Errorf("Query exceeds max length: %d", len(got[0]))
	}
	if strings.HasSuffix(got[0], "analysi") {
		t.Errorf("Query cut mid-word: %q", got[0])
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	queries := []string{
		"Tesla TSLA earnings miss January 2026",
		"Netflix guidance cut quarterly earnings",
	}
	once := Normalize(queries)
	twice := Normalize(once)
	if len(once) != len(twice) {
		t.Fatalf("Second pass changed count: %v vs %v", once, twice)
	}
	for i := range once {
		if once[i] != twice[i] {
			t.Errorf("Second pass changed query: %q vs %q", once[i], twice[i])
		}
	}
}

func TestStripEnumeration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1. query text", "query text"},
		{"12. query text", "query text"},
		{"3) query text", "query text"},
		{"- query text", "query text"},
		{"▪ query text", "query text"},
		{"plain query text", "plain query text"},
		{"8-K filing details", "8-K filing details"},
	}
	for _, tt := range tests {
		if got := stripEnumeration(tt.in); got != tt.want {
			t.Errorf("stripEnumeration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
