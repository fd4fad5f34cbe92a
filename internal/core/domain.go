package core

import (
	"errors"
	"strings"
	"time"
)

const (
	// SnapshotUserID is the reserved user row that mirrors the logged-in
	// user's display fields for legacy call sites. It never holds an email
	// or a credential.
	SnapshotUserID int64 = 1

	// SessionRowID is the fixed id of the singleton session record.
	SessionRowID int64 = 1
)

type (
	// User is an identity record. Email, when present, is unique
	// case-insensitively across all users except the snapshot row.
	User struct {
		ID         int64
		Name       string
		Surname    string
		Email      string
		Credential string // bcrypt hash, empty when never set
		BirthDate  string // ISO yyyy-MM-dd, empty when unknown
		Avatar     string // URI or local path
	}

	// Wishlist holds only a denormalized total of its goals' target
	// amounts. Exactly one per user, created lazily on first goal.
	Wishlist struct {
		ID     int64
		UserID int64
		Total  Money
	}

	// Goal is a savings target inside a wishlist.
	Goal struct {
		ID          int64
		WishlistID  int64
		Name        string
		Target      Money
		Deadline    Date // zero when open-ended
		Description string
		Saved       Money
		Completed   bool
	}

	// Income is a budget line for money coming in.
	Income struct {
		ID     int64
		UserID int64
		Name   string
		Amount Money
		Fixed  bool
		Date   time.Time
	}

	// Expense is a budget line for money going out. Day is the day of
	// month the expense falls due, always clamped to [1,31].
	Expense struct {
		ID     int64
		UserID int64
		Name   string
		Amount Money
		Fixed  bool
		Day    int
		Date   time.Time
	}

	Date struct {
		time.Time
	}
)

var (
	ErrEmptyName     = errors.New("empty name")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidEmail  = errors.New("invalid email")
	ErrNegativeSaved = errors.New("negative saved amount")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty reports whether the date was never set (optional deadlines).
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// ISO renders the date as yyyy-MM-dd, or "" for an empty date.
func (d Date) ISO() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

// ParseDate parses a yyyy-MM-dd string. An empty string yields an empty
// Date and no error.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// ClampDay forces a day-of-month into [1,31]. Zero or negative input
// becomes 1, anything above 31 becomes 31.
func ClampDay(d int) int {
	if d < 1 {
		return 1
	}
	if d > 31 {
		return 31
	}
	return d
}

// NormalizeEmail trims surrounding whitespace and lowercases, the
// canonical form stored and compared everywhere.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Saved.Cents < 0 {
		return ErrNegativeSaved
	}
	return nil
}

func (i Income) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	return i.Amount.Validate()
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyName
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.Day < 1 || e.Day > 31 {
		return ErrInvalidDay
	}
	return nil
}
