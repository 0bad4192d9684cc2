package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

type (
	// Date is a calendar day at UTC midnight.
	Date struct {
		time.Time
	}

	User struct {
		ID           string    `json:"id"`
		FullName     string    `json:"fullName"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		CreatedAt    time.Time `json:"createdAt"`
		IsActive     bool      `json:"isActive"`
	}

	Category struct {
		ID          int64   `json:"id"`
		Name        string  `json:"name"`
		Description *string `json:"description"`
		IsIncome    bool    `json:"isIncome"`
		UserID      string  `json:"userId"`
	}

	// Transaction is the record every aggregation consumes. Amount is never
	// negative; direction is carried by IsIncome.
	Transaction struct {
		ID           int64           `json:"id"`
		Description  *string         `json:"description"`
		Amount       decimal.Decimal `json:"amount"`
		Date         time.Time       `json:"date"`
		IsIncome     bool            `json:"isIncome"`
		UserID       string          `json:"userId"`
		CategoryID   int64           `json:"categoryId"`
		CategoryName *string         `json:"categoryName"`
	}

	PasswordResetToken struct {
		ID        int64
		UserID    string
		TokenHash string
		ExpiresAt time.Time
		CreatedAt time.Time
		UsedAt    *time.Time
	}
)

var (
	ErrEmptyName        = errors.New("name is required")
	ErrNameTooLong      = errors.New("name too long (max 100 characters)")
	ErrDescriptionLong  = errors.New("description too long (max 250 characters)")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrMissingDate      = errors.New("date is required")
	ErrMissingUser      = errors.New("userId is required")
	ErrMissingCategory  = errors.New("categoryId is required")
	ErrInvalidEmail     = errors.New("invalid email address")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), int(u.Month()), u.Day())
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// EndOfDay returns the last representable instant of the day.
func (d Date) EndOfDay() time.Time {
	return d.Time.AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*d = DateOf(t)
	return nil
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b Date) int {
	return int(b.Sub(a.Time).Hours() / 24)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTimestamp accepts RFC 3339 and zone-less layouts. Zoned values are
// converted to UTC; zone-less values are taken as UTC already.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", ErrInvalidArgument, s)
}

// NormalizeEmail lower-cases and trims an address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return ErrNameTooLong
	}
	if c.Description != nil && len(*c.Description) > 250 {
		return ErrDescriptionLong
	}
	if strings.TrimSpace(c.UserID) == "" {
		return ErrMissingUser
	}
	return nil
}

func (t Transaction) Validate() error {
	if t.Description != nil && len(*t.Description) > 250 {
		return ErrDescriptionLong
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if t.Date.IsZero() {
		return ErrMissingDate
	}
	if strings.TrimSpace(t.UserID) == "" {
		return ErrMissingUser
	}
	if t.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

// Active reports whether the token can still be redeemed at now.
func (p PasswordResetToken) Active(now time.Time) bool {
	return p.UsedAt == nil && now.Before(p.ExpiresAt)
}

// StringPtr returns nil for blank strings.
func StringPtr(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
