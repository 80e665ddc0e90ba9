package grade

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/sheet"
)

// Fixed columns of every semester table, in table order.
const (
	ColID           = "id"
	ColStudentName  = "student_name"
	ColUSN          = "usn"
	ColSGPA         = "sgpa"
	ColResult       = "result"
	ColOverallGrade = "overall_grade"
)

var (
	// ReservedKeys may never be used as a subject storage key.
	ReservedKeys = []string{ColID, ColStudentName, ColUSN, ColSGPA, ColResult, ColOverallGrade}

	subjectHeaderRegex = regexp.MustCompile(`^(.*?)\s*\(\s*(\d+)\s*\)$`)
)

// SubjectColumn is a graded subject discovered from a spreadsheet header such as "Mathematics (4)".
type SubjectColumn struct {
	RawHeader    string `json:"raw_header"`
	SubjectName  string `json:"subject_name"`
	CreditWeight int    `json:"credit_weight"`
	StorageKey   string `json:"storage_key"`
}

// Schema is the ordered list of subjects of one semester. It is built once by ExtractSchema
// and threaded through computation and storage.
type Schema []SubjectColumn

func (s Schema) TotalCredits() int {
	var total int
	for _, col := range s {
		total += col.CreditWeight
	}
	return total
}

func (s Schema) Keys() []string {
	keys := make([]string, 0, len(s))
	for _, col := range s {
		keys = append(keys, col.StorageKey)
	}
	return keys
}

// Lookup finds a subject by storage key.
func (s Schema) Lookup(key string) (SubjectColumn, bool) {
	for _, col := range s {
		if col.StorageKey == key {
			return col, true
		}
	}
	return SubjectColumn{}, false
}

// Warning reports a spreadsheet column left out of the schema.
type Warning struct {
	Column int    `json:"column"` // 1-based
	Header string `json:"header"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("column %d (%q): %s", w.Column, w.Header, w.Reason)
}

// ExtractSubject splits a header of the form "<subject> (<credits>)".
// ok is false when the header does not follow that form.
func ExtractSubject(header string) (name string, credits int, ok bool) {
	m := subjectHeaderRegex.FindStringSubmatch(strings.TrimSpace(header))
	if m == nil {
		return "", 0, false
	}
	credits, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return strings.TrimSpace(m[1]), credits, true
}

// StorageKey derives the column name used to persist a subject.
func StorageKey(subjectName string) string {
	return core.Identifier(subjectName)
}

func IsReserved(key string) bool {
	for _, r := range ReservedKeys {
		if key == r {
			return true
		}
	}
	return false
}

// ExtractSchema builds the subject schema from a header row. Columns that cannot be graded are
// reported as warnings; the USN and Student Name columns are expected and skipped silently.
func ExtractSchema(headers []string) (Schema, []Warning) {
	var (
		schema   Schema
		warnings []Warning
		used     = make(map[string]bool, len(headers)+len(ReservedKeys))
	)
	for _, r := range ReservedKeys {
		used[r] = true
	}

	for i, header := range headers {
		warn := func(reason string) {
			warnings = append(warnings, Warning{Column: i + 1, Header: header, Reason: reason})
		}

		header = strings.TrimSpace(header)
		if strings.EqualFold(header, sheet.HeaderUSN) || strings.EqualFold(header, sheet.HeaderStudentName) {
			continue
		}
		if header == "" {
			warn("column has no header")
			continue
		}

		name, credits, ok := ExtractSubject(header)
		if !ok {
			warn("no credit suffix, expected \"<subject> (<credits>)\"; column is not graded")
			continue
		}
		if credits <= 0 {
			warn("credit weight must be a positive integer")
			continue
		}

		key := StorageKey(name)
		if key == "" {
			warn("subject name is empty once sanitized")
			continue
		}
		if IsReserved(key) {
			warn(fmt.Sprintf("subject name collides with reserved column %q", key))
			continue
		}
		if used[key] {
			base := key
			for n := 2; used[key]; n++ {
				key = base + "_" + strconv.Itoa(n)
			}
			warn(fmt.Sprintf("subject name collides with another subject, stored as %q", key))
		}

		used[key] = true
		schema = append(schema, SubjectColumn{
			RawHeader:    header,
			SubjectName:  name,
			CreditWeight: credits,
			StorageKey:   key,
		})
	}
	return schema, warnings
}
