package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type (
	// Date is a calendar date without a time component. The zero value is
	// invalid; construct with NewDate, DateOf, or ParseDate.
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Tariff is a priced offering as fetched from the provider API. Raw holds
	// the full original payload, including provider fields beyond the known
	// subset, so a record can be audited or replayed later.
	Tariff struct {
		TariffID string
		Name     string
		Price    Money
		Raw      json.RawMessage
	}

	// TariffRow is the snapshot projection of a persisted tariff record.
	TariffRow struct {
		TariffID string
		Name     string
		Price    Money
	}

	// SpreadsheetTarget identifies an external spreadsheet document that
	// receives a published snapshot. Name is optional display text.
	SpreadsheetTarget struct {
		ID   string
		Name string
	}
)

var (
	ErrEmptyTariffID = errors.New("empty tariff id")
	ErrEmptyName     = errors.New("empty tariff name")
	ErrInvalidPrice  = errors.New("invalid price")
	ErrInvalidDate   = errors.New("invalid date")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Today returns the current calendar date in the given location.
// A nil location defaults to UTC.
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// String formats the date as YYYY-MM-DD, the storage and wire representation.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidPrice
	}
	return nil
}

func (t Tariff) Validate() error {
	if strings.TrimSpace(t.TariffID) == "" {
		return ErrEmptyTariffID
	}
	if strings.TrimSpace(t.Name) == "" {
		return ErrEmptyName
	}
	if err := t.Price.Validate(); err != nil {
		return err
	}
	return nil
}

// Row projects the tariff onto its snapshot representation.
func (t Tariff) Row() TariffRow {
	return TariffRow{TariffID: t.TariffID, Name: t.Name, Price: t.Price}
}
