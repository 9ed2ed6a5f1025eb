package source

import (
	"testing"
)

func TestSpan_Contains(t *testing.T) {
	tests := []struct {
		name     string
		outer    Span
		inner    Span
		expected bool
	}{
		{
			name:     "strictly nested",
			outer:    Span{File: 1, Start: 10, End: 50},
			inner:    Span{File: 1, Start: 12, End: 40},
			expected: true,
		},
		{
			name:     "same range",
			outer:    Span{File: 1, Start: 10, End: 50},
			inner:    Span{File: 1, Start: 10, End: 50},
			expected: true,
		},
		{
			name:     "overlapping tail",
			outer:    Span{File: 1, Start: 10, End: 50},
			inner:    Span{File: 1, Start: 40, End: 60},
			expected: false,
		},
		{
			name:     "different file",
			outer:    Span{File: 1, Start: 10, End: 50},
			inner:    Span{File: 2, Start: 12, End: 40},
			expected: false,
		},
		{
			name:     "empty inner is unknown",
			outer:    Span{File: 1, Start: 10, End: 50},
			inner:    Span{File: 1, Start: 70, End: 70},
			expected: true,
		},
		{
			name:     "empty outer is unknown",
			outer:    Span{File: 1},
			inner:    Span{File: 1, Start: 3, End: 9},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.outer.Contains(tt.inner); got != tt.expected {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.outer, tt.inner, got, tt.expected)
			}
		})
	}
}

func TestSpan_Cover(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Span
		expected Span
	}{
		{
			name:     "disjoint",
			a:        Span{File: 1, Start: 10, End: 20},
			b:        Span{File: 1, Start: 30, End: 40},
			expected: Span{File: 1, Start: 10, End: 40},
		},
		{
			name:     "nested keeps outer",
			a:        Span{File: 1, Start: 10, End: 40},
			b:        Span{File: 1, Start: 15, End: 20},
			expected: Span{File: 1, Start: 10, End: 40},
		},
		{
			name:     "other file is ignored",
			a:        Span{File: 1, Start: 10, End: 20},
			b:        Span{File: 3, Start: 0, End: 90},
			expected: Span{File: 1, Start: 10, End: 20},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cover(tt.b); got != tt.expected {
				t.Errorf("Cover() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSpan_String(t *testing.T) {
	sp := Span{File: 4, Start: 7, End: 19}
	if got := sp.String(); got != "4:7-19" {
		t.Errorf("String() = %q", got)
	}
	if sp.Len() != 12 {
		t.Errorf("Len() = %d, want 12", sp.Len())
	}
}
