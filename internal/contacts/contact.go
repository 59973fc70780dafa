// Package contacts loads the recipient list for a messenger run.
package contacts

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// UnknownName is used when a row has a phone but no name.
const UnknownName = "Unknown"

var (
	ErrNoPhoneColumn = errors.New("contacts: missing Phone column")
	ErrNoHeader      = errors.New("contacts: missing header row")
)

// Contact is one recipient. Phone holds digits only (no '+', no spaces).
type Contact struct {
	Name  string
	Phone string
	// Row is the 1-based spreadsheet row the contact came from (header is row 1).
	Row int
}

// NormalizePhone strips every '+' and space from raw.
//
// Spreadsheets often store numbers as floats, so a trailing ".0" is dropped as well.
func NormalizePhone(raw string) string {
	s := strings.NewReplacer("+", "", " ", "").Replace(raw)
	if before, ok := strings.CutSuffix(s, ".0"); ok && isDigits(before) {
		s = before
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ValidatePhone checks a normalized phone against libphonenumber metadata.
// The number is tried in international form first, then as a national
// number in region (ISO 3166 alpha-2, e.g. "EG").
// It returns the canonical digits-only international form.
func ValidatePhone(phone, region string) (string, error) {
	if phone == "" {
		return "", fmt.Errorf("missing number")
	}
	num, err := phonenumbers.Parse("+"+phone, "")
	if err != nil || !phonenumbers.IsValidNumber(num) {
		num, err = phonenumbers.Parse(phone, strings.ToUpper(region))
		if err != nil {
			return "", fmt.Errorf("invalid phone number %q: %w", phone, err)
		}
		if !phonenumbers.IsValidNumber(num) {
			return "", fmt.Errorf("invalid phone number %q", phone)
		}
	}
	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), nil
}
