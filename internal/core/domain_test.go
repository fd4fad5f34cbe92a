package core

import (
	"errors"
	"testing"
)

func TestClampDay(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{-3, 1},
		{0, 1},
		{1, 1},
		{15, 15},
		{31, 31},
		{32, 31},
		{45, 31},
	}
	for _, tt := range tests {
		if got := ClampDay(tt.in); got != tt.want {
			t.Errorf("ClampDay(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Ana@Mail.com", "ana@mail.com"},
		{"  bob@mail.com  ", "bob@mail.com"},
		{"ALREADY@LOWER.IO", "already@lower.io"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeEmail(tt.in); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-03-15")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.ISO() != "2026-03-15" {
		t.Errorf("ISO() = %q, want 2026-03-15", d.ISO())
	}

	empty, err := ParseDate("")
	if err != nil {
		t.Fatalf("empty string should not error, got %v", err)
	}
	if !empty.IsEmpty() {
		t.Error("empty string should yield an empty date")
	}
	if empty.ISO() != "" {
		t.Errorf("empty date ISO() = %q, want \"\"", empty.ISO())
	}

	if _, err := ParseDate("15/03/2026"); err == nil {
		t.Error("expected error for non-ISO format")
	}
}

func TestUserValidate(t *testing.T) {
	tests := []struct {
		name    string
		user    User
		wantErr error
	}{
		{"valid", User{Name: "Ana", Email: "ana@mail.com"}, nil},
		{"valid without email", User{Name: "Ana"}, nil},
		{"empty name", User{Email: "ana@mail.com"}, ErrEmptyName},
		{"blank name", User{Name: "   "}, ErrEmptyName},
		{"email without at", User{Name: "Ana", Email: "not-an-email"}, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.user.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGoalValidate(t *testing.T) {
	tests := []struct {
		name    string
		goal    Goal
		wantErr error
	}{
		{"valid", Goal{Name: "Bike", Target: Money{Cents: 300000}}, nil},
		{"empty name", Goal{Target: Money{Cents: 100}}, ErrEmptyName},
		{"zero target", Goal{Name: "Bike"}, ErrInvalidAmount},
		{"negative saved", Goal{Name: "Bike", Target: Money{Cents: 100}, Saved: Money{Cents: -1}}, ErrNegativeSaved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.goal.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	valid := Expense{Name: "Rent", Amount: Money{Cents: 89000}, Day: 1}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid expense: %v", err)
	}

	outOfRange := Expense{Name: "Rent", Amount: Money{Cents: 89000}, Day: 0}
	if err := outOfRange.Validate(); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("day 0 error = %v, want ErrInvalidDay", err)
	}
}
