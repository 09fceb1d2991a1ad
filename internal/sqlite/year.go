package sqlite

import (
	"fmt"
	"strings"
)

// Accepted year range. Years outside it are treated as "no year".
const (
	MinYear = 1000
	MaxYear = 2100
)

// ExtractYear derives a year from a free-form date string. The first rule
// that matches decides the candidate:
//
//  1. an ISO-like date yields its year;
//  2. four trailing digits, as in "Summer [2007" or "12.03.1988";
//  3. the first "19" followed by two more digits;
//  4. the first "20" followed by two more digits.
//
// The candidate is accepted only within [MinYear, MaxYear]. The heuristic
// is lossy: a string like "Room 1942b" yields 1942.
func ExtractYear(date string) (int, bool) {
	year, ok := candidateYear(date)
	if !ok || year < MinYear || year > MaxYear {
		return 0, false
	}
	return year, true
}

func candidateYear(date string) (int, bool) {
	if date == "" {
		return 0, false
	}
	if y, ok := isoYear(date); ok {
		return y, true
	}

	r := []rune(date)
	if len(r) >= 4 && allDigits(r[len(r)-4:]) {
		return digitsValue(r[len(r)-4:]), true
	}
	for _, prefix := range []string{"19", "20"} {
		i := strings.Index(date, prefix)
		if i < 0 {
			continue
		}
		// Index is a byte offset; the digits rule counts characters.
		at := len([]rune(date[:i]))
		if at+4 <= len(r) && allDigits(r[at:at+4]) {
			return digitsValue(r[at : at+4]), true
		}
	}
	return 0, false
}

// isoYear returns the year of a value SQLite's date functions accept as a
// YYYY-MM-DD date: the date, then optionally spaces or 'T', a time of day
// and a zone ("Z" or "+HH:MM"). Day and month are range checked only, so
// "2020-02-30" counts.
func isoYear(date string) (int, bool) {
	year, rest, ok := fixedDigits(date, 4, 0, 9999, '-')
	if ok {
		_, rest, ok = fixedDigits(rest, 2, 1, 12, '-')
	}
	if ok {
		_, rest, ok = fixedDigits(rest, 2, 1, 31, 0)
	}
	if !ok {
		return 0, false
	}
	rest = strings.TrimLeftFunc(rest, func(r rune) bool { return isSQLSpace(r) || r == 'T' })
	if rest != "" && !validTimeOfDay(rest) {
		return 0, false
	}
	return year, true
}

// validTimeOfDay reports whether s is HH:MM[:SS[.fff]] followed by an
// optional zone and nothing else.
func validTimeOfDay(s string) bool {
	_, s, ok := fixedDigits(s, 2, 0, 24, ':')
	if ok {
		_, s, ok = fixedDigits(s, 2, 0, 59, 0)
	}
	if !ok {
		return false
	}
	if strings.HasPrefix(s, ":") {
		if _, s, ok = fixedDigits(s[1:], 2, 0, 59, 0); !ok {
			return false
		}
		if len(s) > 1 && s[0] == '.' && isDigit(rune(s[1])) {
			s = strings.TrimLeftFunc(s[1:], isDigit)
		}
	}
	return validZone(s)
}

func validZone(s string) bool {
	s = strings.TrimLeftFunc(s, isSQLSpace)
	switch {
	case s == "":
		return true
	case s[0] == 'Z' || s[0] == 'z':
		s = s[1:]
	case s[0] == '+' || s[0] == '-':
		_, rest, ok := fixedDigits(s[1:], 2, 0, 14, ':')
		if ok {
			_, rest, ok = fixedDigits(rest, 2, 0, 59, 0)
		}
		if !ok {
			return false
		}
		s = rest
	default:
		return false
	}
	return strings.TrimLeftFunc(s, isSQLSpace) == ""
}

// fixedDigits reads n digits valued within [lo, hi] from the front of s
// and returns the remainder. A non-zero sep must follow and is consumed.
func fixedDigits(s string, n, lo, hi int, sep byte) (int, string, bool) {
	if len(s) < n {
		return 0, s, false
	}
	v := 0
	for i := 0; i < n; i++ {
		if !isDigit(rune(s[i])) {
			return 0, s, false
		}
		v = v*10 + int(s[i]-'0')
	}
	s = s[n:]
	if v < lo || v > hi {
		return 0, s, false
	}
	if sep != 0 {
		if s == "" || s[0] != sep {
			return 0, s, false
		}
		s = s[1:]
	}
	return v, s, true
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

// isSQLSpace matches SQLite's ASCII whitespace.
func isSQLSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func allDigits(r []rune) bool {
	for _, c := range r {
		if !isDigit(c) {
			return false
		}
	}
	return true
}

func digitsValue(r []rune) int {
	n := 0
	for _, c := range r {
		n = n*10 + int(c-'0')
	}
	return n
}

// yearExpr returns the SQL rendition of candidateYear for column col. The
// result is an INTEGER or NULL; callers apply the range check.
func yearExpr(col string) string {
	return fmt.Sprintf(`CAST(CASE
    WHEN %[1]s GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]*' AND strftime('%%Y', %[1]s) IS NOT NULL THEN substr(%[1]s, 1, 4)
    WHEN %[1]s GLOB '*[0-9][0-9][0-9][0-9]' THEN substr(%[1]s, -4)
    WHEN instr(%[1]s, '19') > 0 AND substr(%[1]s, instr(%[1]s, '19'), 4) GLOB '[0-9][0-9][0-9][0-9]' THEN substr(%[1]s, instr(%[1]s, '19'), 4)
    WHEN instr(%[1]s, '20') > 0 AND substr(%[1]s, instr(%[1]s, '20'), 4) GLOB '[0-9][0-9][0-9][0-9]' THEN substr(%[1]s, instr(%[1]s, '20'), 4)
END AS INTEGER)`, col)
}

// yearInRange returns the SQL condition "col has a year within range".
func yearInRange(col string) string {
	return fmt.Sprintf("(%s BETWEEN %d AND %d)", yearExpr(col), MinYear, MaxYear)
}
