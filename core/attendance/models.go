package attendance

import (
	"fmt"
	"strings"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/sheet"
)

const (
	// TablePrefix + semester key names an attendance table, e.g. "attendance_sem_3".
	TablePrefix = "attendance_sem_"
	// sessionColumnPrefix keeps session columns valid identifiers even for labels starting with a digit.
	sessionColumnPrefix = "s_"

	// Fixed columns of every attendance table.
	ColID          = "id"
	ColUSN         = "usn"
	ColStudentName = "student_name"

	maxReportedCellErrors = 10
)

func TableName(semester string) string { return TablePrefix + semester }

type Table struct {
	Semester string `json:"semester"`
	Name     string `json:"table"`
}

func NewTable(semester string) Table {
	return Table{Semester: semester, Name: TableName(semester)}
}

// Mark is a session cell: present, absent or not marked.
type Mark string

const (
	Present  Mark = "P"
	Absent   Mark = "A"
	Unmarked Mark = ""
)

// ParseMark reads a cell case-insensitively.
func ParseMark(cell string) (Mark, error) {
	switch m := Mark(strings.ToUpper(strings.TrimSpace(cell))); m {
	case Present, Absent, Unmarked:
		return m, nil
	default:
		return Unmarked, fmt.Errorf("invalid attendance mark %q, expected P, A or blank", cell)
	}
}

// Session is one class session (usually a date) and the column holding it.
type Session struct {
	Label  string `json:"label"`
	Column string `json:"-"`
}

// NewSession derives the storage column of a session label.
func NewSession(label string) (Session, error) {
	label = strings.TrimSpace(label)
	ident := core.Identifier(label)
	if ident == "" {
		return Session{}, core.NewValidationErrorf("session label %q cannot be stored", label)
	}
	return Session{Label: label, Column: sessionColumnPrefix + ident}, nil
}

type Record struct {
	USN         string          `json:"usn"`
	StudentName string          `json:"student_name"`
	Marks       map[string]Mark `json:"marks"` // by session label
}

// Register is an attendance table as read back: sessions in column order and one record per student.
type Register struct {
	Semester string    `json:"semester"`
	Sessions []Session `json:"sessions"`
	Records  []Record  `json:"records"`
}

type StudentStats struct {
	USN                  string  `json:"usn"`
	StudentName          string  `json:"student_name"`
	TotalClasses         int     `json:"total_classes"`
	ClassesAttended      int     `json:"classes_attended"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	Shortage             bool    `json:"shortage"`
}

type ClassSummary struct {
	TotalStudents     int     `json:"total_students"`
	ShortageCount     int     `json:"shortage_count"`
	AveragePercentage float64 `json:"average_percentage"`
	Threshold         float64 `json:"threshold"`
}

type Stats struct {
	Students []StudentStats `json:"students"`
	Summary  ClassSummary   `json:"class_summary"`
}

type IngestResult struct {
	Table    Table     `json:"table"`
	Ingested int       `json:"ingested"`
	Sessions []Session `json:"sessions"`
}

// StatsFor computes one student's attendance. Only marked sessions count as classes;
// a student is short when the percentage is strictly below threshold.
func StatsFor(rec Record, sessions []Session, threshold float64) StudentStats {
	st := StudentStats{USN: rec.USN, StudentName: rec.StudentName}
	for _, s := range sessions {
		switch rec.Marks[s.Label] {
		case Present:
			st.TotalClasses++
			st.ClassesAttended++
		case Absent:
			st.TotalClasses++
		}
	}
	st.AttendancePercentage = grade.Percentage(int64(st.ClassesAttended), int64(st.TotalClasses))
	st.Shortage = st.TotalClasses > 0 && st.AttendancePercentage < threshold
	return st
}

// ComputeStats computes per-student attendance and the class summary.
// The class average is the plain mean of the student percentages.
func ComputeStats(reg Register, threshold float64) Stats {
	stats := Stats{
		Students: make([]StudentStats, 0, len(reg.Records)),
		Summary:  ClassSummary{TotalStudents: len(reg.Records), Threshold: threshold},
	}
	var sum float64
	for _, rec := range reg.Records {
		st := StatsFor(rec, reg.Sessions, threshold)
		if st.Shortage {
			stats.Summary.ShortageCount++
		}
		sum += st.AttendancePercentage
		stats.Students = append(stats.Students, st)
	}
	if len(reg.Records) > 0 {
		stats.Summary.AveragePercentage = grade.Round2(sum / float64(len(reg.Records)))
	}
	return stats
}

// ParseRegister reads an attendance sheet: USN and Student Name columns plus one column per session.
// Any malformed cell fails the whole sheet.
func ParseRegister(s *sheet.Sheet) ([]Session, []Record, error) {
	idx, err := s.RequireHeaders(sheet.HeaderUSN, sheet.HeaderStudentName)
	if err != nil {
		return nil, nil, err
	}
	usnIdx, nameIdx := idx[0], idx[1]

	var (
		sessions   []Session
		sessionIdx []int
		columns    = make(map[string]string)
	)
	for i, header := range s.Headers {
		if i == usnIdx || i == nameIdx {
			continue
		}
		if header == "" {
			return nil, nil, core.NewValidationErrorf("column %d has no session label", i+1)
		}
		sess, err := NewSession(header)
		if err != nil {
			return nil, nil, err
		}
		if prev, dup := columns[sess.Column]; dup {
			return nil, nil, core.NewValidationErrorf("sessions %q and %q are the same session", prev, sess.Label)
		}
		columns[sess.Column] = sess.Label
		sessions = append(sessions, sess)
		sessionIdx = append(sessionIdx, i)
	}

	var cellErrs []string
	seen := make(map[string]int, len(s.Rows))
	records := make([]Record, 0, len(s.Rows))
	for r, row := range s.Rows {
		rowNum := r + 2
		rec := Record{
			USN:         core.CleanString(row[usnIdx]),
			StudentName: core.CleanString(row[nameIdx]),
			Marks:       make(map[string]Mark, len(sessions)),
		}
		if rec.USN == "" {
			cellErrs = append(cellErrs, fmt.Sprintf("row %d: missing %s", rowNum, sheet.HeaderUSN))
		} else if prev, dup := seen[strings.ToUpper(rec.USN)]; dup {
			cellErrs = append(cellErrs, fmt.Sprintf("row %d: %s %q already used on row %d", rowNum, sheet.HeaderUSN, rec.USN, prev))
		} else {
			seen[strings.ToUpper(rec.USN)] = rowNum
		}
		for i, sess := range sessions {
			m, err := ParseMark(row[sessionIdx[i]])
			if err != nil {
				cellErrs = append(cellErrs, fmt.Sprintf("row %d: %q: %v", rowNum, sess.Label, err))
				continue
			}
			rec.Marks[sess.Label] = m
		}
		records = append(records, rec)
	}

	if n := len(cellErrs); n > 0 {
		if n > maxReportedCellErrors {
			cellErrs = append(cellErrs[:maxReportedCellErrors], fmt.Sprintf("and %d more", n-maxReportedCellErrors))
		}
		return nil, nil, core.NewDataError(nil, "%d invalid cell(s): %s", n, strings.Join(cellErrs, "; "))
	}
	return sessions, records, nil
}
