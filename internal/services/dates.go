// Package services – date handling
//
// Biographical dates are collected as free text. Two human patterns are
// accepted, year-first and day-first, both slash-separated, and every value
// is checked against the real calendar (a 30th of February is rejected, a
// 29th of February is accepted only in leap years). Dates are stored in the
// canonical year-first form so age derivation works on one format.
package services

import "time"

const canonicalDateLayout = "2006/01/02"

// dateLayouts lists the accepted input patterns, canonical form first.
var dateLayouts = []string{
	canonicalDateLayout, // YYYY/MM/DD
	"02/01/2006",        // DD/MM/YYYY
}

// ParseFlexibleDate parses a user-entered date and returns it with its
// canonical YYYY/MM/DD rendering. ErrInvalidDate covers both pattern
// mismatches and impossible calendar days.
func ParseFlexibleDate(s string) (time.Time, string, error) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return t, t.Format(canonicalDateLayout), nil
	}
	return time.Time{}, "", ErrInvalidDate
}

// DeriveAge computes the whole-year age at the martyrdom date from two
// canonical date strings. The year difference is decremented when the
// birthday had not yet been reached, and negative results clamp to zero.
// Unparsable input yields nil; the record then simply carries no age.
func DeriveAge(dateBirth, dateMartyrdom string) *int {
	birth, err := time.Parse(canonicalDateLayout, dateBirth)
	if err != nil {
		return nil
	}
	martyrdom, err := time.Parse(canonicalDateLayout, dateMartyrdom)
	if err != nil {
		return nil
	}

	age := martyrdom.Year() - birth.Year()
	if martyrdom.Month() < birth.Month() ||
		(martyrdom.Month() == birth.Month() && martyrdom.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		age = 0
	}
	return &age
}
