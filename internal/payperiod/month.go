// Package payperiod derives the "Month Year" label used in payslip emails and
// attachment names.
package payperiod

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// monthNames maps every accepted month token to its canonical name.
var monthNames = map[string]string{
	"jan": "January", "january": "January",
	"feb": "February", "february": "February",
	"mar": "March", "march": "March",
	"apr": "April", "april": "April",
	"may": "May",
	"jun": "June", "june": "June",
	"jul": "July", "july": "July",
	"aug": "August", "august": "August",
	"sep": "September", "september": "September",
	"oct": "October", "october": "October",
	"nov": "November", "november": "November",
	"dec": "December", "december": "December",
}

// A month token, any run of non-digits, then a 2 to 4 digit year.
var filenamePattern = regexp.MustCompile(`(?i)(jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|jun(?:e)?|jul(?:y)?|aug(?:ust)?|sep(?:tember)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)[^0-9]*(\d{2,4})`)

// Resolver resolves pay period labels. Now supplies the fallback date.
type Resolver struct {
	Now func() time.Time
}

// NewResolver returns a Resolver that falls back to the wall clock.
func NewResolver() *Resolver {
	return &Resolver{Now: time.Now}
}

// Resolve returns explicit when it is non-empty, otherwise the label found in
// filename, otherwise the current month.
func (r *Resolver) Resolve(explicit, filename string) string {
	if explicit != "" {
		return explicit
	}
	if label, ok := FromFilename(filename); ok {
		return label
	}
	now := time.Now
	if r != nil && r.Now != nil {
		now = r.Now
	}
	return Label(now())
}

// Resolve uses the wall clock as the fallback.
func Resolve(explicit, filename string) string {
	return NewResolver().Resolve(explicit, filename)
}

// FromFilename finds the leftmost month/year pair in filename.
func FromFilename(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	m := filenamePattern.FindStringSubmatch(filename)
	if m == nil {
		return "", false
	}
	name, ok := monthNames[strings.ToLower(m[1])]
	if !ok {
		return "", false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil {
		return "", false
	}
	if year < 100 {
		year += 2000
	}
	return name + " " + strconv.Itoa(year), true
}

// Label formats t as "January 2006".
func Label(t time.Time) string {
	return t.Format("January 2006")
}
