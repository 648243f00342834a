package services

import (
	"errors"
	"testing"
)

func TestParseFlexibleDate(t *testing.T) {
	tests := []struct {
		name      string
		in        string
		canonical string
		wantErr   bool
	}{
		{"year first", "1990/05/20", "1990/05/20", false},
		{"day first", "20/05/1990", "1990/05/20", false},
		{"leap day valid", "2024/02/29", "2024/02/29", false},
		{"leap day invalid year", "2023/02/29", "", true},
		{"impossible day", "1990/02/30", "", true},
		{"impossible month", "1990/13/01", "", true},
		{"wrong separator", "1990-05-20", "", true},
		{"free text", "yesterday", "", true},
		{"empty", "", "", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, canonical, err := ParseFlexibleDate(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("expected ErrInvalidDate, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFlexibleDate(%q): %v", tc.in, err)
			}
			if canonical != tc.canonical {
				t.Fatalf("canonical = %q, want %q", canonical, tc.canonical)
			}
		})
	}
}

func TestDeriveAge(t *testing.T) {
	tests := []struct {
		name      string
		birth     string
		martyrdom string
		want      int
		wantNil   bool
	}{
		{"day before birthday", "1990/05/20", "2024/05/19", 33, false},
		{"on birthday", "1990/05/20", "2024/05/20", 34, false},
		{"day after birthday", "1990/05/20", "2024/05/21", 34, false},
		{"earlier month", "1990/05/20", "2024/04/30", 33, false},
		{"later month", "1990/05/20", "2024/06/01", 34, false},
		{"infant", "2024/01/01", "2024/06/15", 0, false},
		{"martyrdom before birth clamps", "2024/06/15", "2024/01/01", 0, false},
		{"bad birth", "not-a-date", "2024/01/01", 0, true},
		{"bad martyrdom", "1990/05/20", "soon", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveAge(tc.birth, tc.martyrdom)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil age, got %d", *got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected age, got nil")
			}
			if *got != tc.want {
				t.Fatalf("age = %d, want %d", *got, tc.want)
			}
		})
	}
}
