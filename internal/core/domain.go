package core

import (
	"errors"
	"strings"
	"time"
)

const (
	SplitEqual  SplitType = "equal"
	SplitCustom SplitType = "custom"
)

type (
	SplitType string

	Money struct {
		Cents int64
	}

	// Group is a named collection of participants sharing one settlement
	// currency. The currency is fixed at creation and is the display
	// currency for every balance in the group.
	Group struct {
		ID        string
		Name      string
		Currency  string
		CreatedAt time.Time
	}

	// Participant is an identity within a group. Participants are created
	// with the group (or when members are added) and never edited.
	Participant struct {
		ID      string
		GroupID string
		Name    string
		UserID  string // optional linked user account
	}

	// SplitExpense is a shared expense paid up front by one participant.
	// Fields are immutable after creation; only its shares change state.
	SplitExpense struct {
		ID                 string
		GroupID            string
		PayerParticipantID string
		Amount             Money
		Currency           string
		Date               string // ISO-8601, YYYY-MM-DD
		SplitType          SplitType
		Title              string
		Notes              string
	}

	// Share is the portion of one expense attributed to one participant.
	// For a given expense the share amounts sum to the expense amount.
	Share struct {
		ID            string
		ExpenseID     string
		ParticipantID string
		Amount        Money
		IsSettled     bool
		SettledAt     *time.Time
	}

	// Settlement is the append-only audit record written when a share is
	// paid back.
	Settlement struct {
		ID        string
		ShareID   string
		Amount    Money
		Method    string
		Note      string
		CreatedAt time.Time
	}

	// Budget is the spending cap for one calendar month. One row per
	// month; the store upserts on the month key.
	Budget struct {
		Month string // YYYY-MM
		Total Money
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyName        = errors.New("empty name")
	ErrNameTooLong      = errors.New("name too long (max 100 characters)")
	ErrEmptyTitle       = errors.New("empty title")
	ErrTitleTooLong     = errors.New("title too long (max 200 characters)")
	ErrEmptyCurrency    = errors.New("empty currency")
	ErrInvalidCurrency  = errors.New("currency must be a 3-letter ISO code")
	ErrNoParticipants   = errors.New("at least one participant required")
	ErrUnknownPayer     = errors.New("payer is not a participant of the group")
	ErrInvalidSplitType = errors.New("invalid split type")
	ErrSharesMismatch   = errors.New("share amounts do not sum to the expense amount")
	ErrAlreadySettled   = errors.New("share already settled")
)

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ValidateDate checks an ISO-8601 calendar date (YYYY-MM-DD).
func ValidateDate(date string) error {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// ValidateMonth checks a YYYY-MM month key.
func ValidateMonth(month string) error {
	if _, err := time.Parse("2006-01", month); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

// MonthKey returns the YYYY-MM key for a point in time.
func MonthKey(t time.Time) string {
	return t.Format("2006-01")
}

func (g Group) Validate() error {
	if len(strings.TrimSpace(g.Name)) == 0 {
		return ErrEmptyName
	}
	if len(g.Name) > 100 {
		return ErrNameTooLong
	}
	if strings.TrimSpace(g.Currency) == "" {
		return ErrEmptyCurrency
	}
	if len(g.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

func (p Participant) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return ErrEmptyName
	}
	if len(p.Name) > 100 {
		return ErrNameTooLong
	}
	return nil
}

func (e SplitExpense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return ErrTitleTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if err := ValidateDate(e.Date); err != nil {
		return err
	}
	if strings.TrimSpace(e.PayerParticipantID) == "" {
		return ErrUnknownPayer
	}
	switch e.SplitType {
	case SplitEqual, SplitCustom:
	default:
		return ErrInvalidSplitType
	}
	return nil
}

func (b Budget) Validate() error {
	if err := ValidateMonth(b.Month); err != nil {
		return err
	}
	if err := b.Total.Validate(); err != nil {
		return err
	}
	return nil
}
