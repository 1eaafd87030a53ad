// Package domain contains the core types of the credential console.
// It has no dependencies on databases, HTTP, or any other infrastructure.
package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ExpirationLayout is the storage format of Association.Expiration.
const ExpirationLayout = "02/01/2006"

// ValidityFlag is the cached "membership is current" marker stored next to
// the expiration date. It is derived state and can drift from the date.
type ValidityFlag int

const (
	Valid   ValidityFlag = 0
	Expired ValidityFlag = 1
)

func (f ValidityFlag) String() string {
	if f == Valid {
		return "valid"
	}
	return "expired"
}

// Address is the postal address of a member household.
type Address struct {
	Street   string
	Interior string
	Exterior string
}

// String joins the non-empty parts as "street, exterior, interior".
func (a Address) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Street, a.Exterior, a.Interior} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Association is a member household identified by its IDSAE number.
type Association struct {
	IDSAE      int64
	Name       string
	Address    Address
	Expiration string // dd/mm/yyyy as stored; may be empty or malformed
	Validity   ValidityFlag
}

// Owner is the short form used by owner pickers.
type Owner struct {
	IDSAE   int64
	Name    string
	Address string
}

// ParseExpiration reads a dd/mm/yyyy date in loc.
// Day and month are read as plain integers, so "1/2/2030" is accepted and
// out-of-range values roll over the way time.Date normalizes them.
func ParseExpiration(s string, loc *time.Location) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("expiration %q: want dd/mm/yyyy", s)
	}
	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return time.Time{}, fmt.Errorf("expiration %q: %w", s, err)
		}
		nums[i] = n
	}
	return time.Date(nums[2], time.Month(nums[1]), nums[0], 0, 0, 0, 0, loc), nil
}

// ExpectedValidity returns Valid when expires is today or later, comparing
// calendar dates in loc. Time-of-day is ignored on both sides.
func ExpectedValidity(expires, now time.Time, loc *time.Location) ValidityFlag {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	e := expires.In(loc)
	day := time.Date(e.Year(), e.Month(), e.Day(), 0, 0, 0, 0, loc)
	if day.Before(today) {
		return Expired
	}
	return Valid
}

var strictExpiration = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)

// ValidateExpiration checks the strict form accepted by payment renewal:
// exactly dd/mm/yyyy and a real calendar date.
func ValidateExpiration(s string) error {
	if !strictExpiration.MatchString(s) {
		return fmt.Errorf("%w: expiration must be dd/mm/yyyy", ErrValidation)
	}
	if _, err := time.Parse(ExpirationLayout, s); err != nil {
		return fmt.Errorf("%w: expiration %s is not a calendar date", ErrValidation, s)
	}
	return nil
}

// FormatExpiration renders t in the storage format.
func FormatExpiration(t time.Time) string {
	return t.Format(ExpirationLayout)
}
