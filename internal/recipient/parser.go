// Package recipient recovers the addressee of a payslip page from its
// extracted text.
package recipient

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// emailShape is a whole-string email address check. The boundaries around a
// candidate are checked by hand in ParseEmail since RE2 has no lookaround.
var emailShape = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Artifacts the payslip template's text layer glues onto the address.
const (
	idPrefix  = "ID"
	cugSuffix = "CUG"
)

// ParseEmail returns the first email address in text that starts at the
// beginning of the text or after whitespace or a colon, and ends at the end of
// the text or before a character that is not an ASCII letter or digit. A
// leading "ID" and a trailing "CUG" are stripped from the match.
func ParseEmail(text string) (string, bool) {
	raw, ok := findEmail(text)
	if !ok {
		return "", false
	}
	email := strings.TrimPrefix(raw, idPrefix)
	email = strings.TrimSuffix(email, cugSuffix)
	return email, true
}

func findEmail(text string) (string, bool) {
	for start := 0; start < len(text); start++ {
		if !isLocalChar(text[start]) || !startsCandidate(text, start) {
			continue
		}
		at := start
		for at < len(text) && isLocalChar(text[at]) {
			at++
		}
		if at >= len(text) || text[at] != '@' {
			continue
		}
		domainEnd := at + 1
		for domainEnd < len(text) && isDomainChar(text[domainEnd]) {
			domainEnd++
		}
		// The longest well-formed address that ends on a boundary wins.
		for end := domainEnd; end > at+1; end-- {
			if endsCandidate(text, end) && emailShape.MatchString(text[start:end]) {
				return text[start:end], true
			}
		}
	}
	return "", false
}

func startsCandidate(text string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	return prev == ':' || isBoundarySpace(prev)
}

// isBoundarySpace matches the whitespace class of the address heuristic:
// Unicode white space plus the byte order mark, but not NEL.
func isBoundarySpace(r rune) bool {
	return r == '\ufeff' || (r != '\u0085' && unicode.IsSpace(r))
}

func endsCandidate(text string, i int) bool {
	return i == len(text) || !isAlnum(text[i])
}

func isAlnum(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}

func isLocalChar(c byte) bool {
	return isAlnum(c) || strings.IndexByte("._%+-", c) >= 0
}

func isDomainChar(c byte) bool {
	return isAlnum(c) || c == '.' || c == '-'
}
