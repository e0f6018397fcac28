package models

import "testing"

func TestNewJobIDDeterministic(t *testing.T) {
	a := NewJobID("Senior Go Engineer", "Acme Corp", "Sydney")
	b := NewJobID("Senior Go Engineer", "Acme Corp", "Sydney")
	if a != b {
		t.Fatalf("same inputs produced different ids: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
}

func TestNewJobIDNormalization(t *testing.T) {
	base := NewJobID("Senior Go Engineer", "Acme Corp", "Sydney")

	tests := []struct {
		name     string
		title    string
		company  string
		location string
	}{
		{"case insensitive", "SENIOR GO ENGINEER", "acme corp", "SYDNEY"},
		{"extra whitespace", "  Senior   Go  Engineer ", "Acme  Corp", " Sydney "},
		{"punctuation stripped", "Senior Go Engineer!", "Acme, Corp.", "Sydney"},
		{"tabs and newlines", "Senior\tGo\nEngineer", "Acme Corp", "Sydney"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewJobID(tt.title, tt.company, tt.location)
			if got != base {
				t.Errorf("expected normalized id %s, got %s", base, got)
			}
		})
	}
}

func TestNewJobIDDistinguishesFields(t *testing.T) {
	a := NewJobID("Engineer", "Acme", "Sydney")
	b := NewJobID("Engineer", "Acme", "Melbourne")
	if a == b {
		t.Fatal("different locations must produce different ids")
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		raw         int
		want        int
		wantClamped bool
	}{
		{-10, 0, true},
		{0, 0, false},
		{55, 55, false},
		{100, 100, false},
		{140, 100, true},
	}
	for _, tt := range tests {
		got, clamped := ClampScore(tt.raw)
		if got != tt.want || clamped != tt.wantClamped {
			t.Errorf("ClampScore(%d) = (%d, %v), want (%d, %v)", tt.raw, got, clamped, tt.want, tt.wantClamped)
		}
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("abcdef0123456789"); got != "abcdef01" {
		t.Errorf("expected abcdef01, got %s", got)
	}
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("short input should pass through, got %s", got)
	}
}
