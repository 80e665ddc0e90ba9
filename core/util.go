package core

import (
	"regexp"
	"sort"
	"strings"
)

var nonIdentRegex = regexp.MustCompile(`[^a-z0-9_]+`)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Identifier turns `s` into a lower-cased SQL-safe identifier fragment:
// every run of characters outside [a-z0-9_] becomes a single "_", leading and trailing "_" are dropped.
func Identifier(s string) string {
	s = nonIdentRegex.ReplaceAllString(CleanString(s, true /* lower */), "_")
	return strings.Trim(s, "_")
}

// SemesterKey sanitizes a free-form semester identifier before it is used in a table name.
func SemesterKey(s string) (string, error) {
	key := Identifier(s)
	if key == "" {
		return "", NewValidationError(nil, FieldError{Field: "semester", Error: "invalid semester"})
	}
	if len(key) > maxSemesterKeyLen {
		return "", NewValidationError(nil, FieldError{Field: "semester", Error: "semester is too long"})
	}
	return key, nil
}

const maxSemesterKeyLen = 32

// SortSemesters orders semester keys naturally: numeric keys first by value ("2" before "10"),
// then the others alphabetically.
func SortSemesters(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		aNum, bNum := isDigits(a), isDigits(b)
		switch {
		case aNum && bNum:
			// keys may exceed int64, compare digit strings without leading zeros
			ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
			if len(ta) != len(tb) {
				return len(ta) < len(tb)
			}
			if ta != tb {
				return ta < tb
			}
			return a < b
		case aNum != bNum:
			return aNum
		default:
			return a < b
		}
	})
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
