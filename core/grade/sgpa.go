package grade

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/sheet"
)

// maxReportedRowErrors caps the row errors listed in a single DataError message.
const maxReportedRowErrors = 10

// StudentRecord holds one student's raw marks keyed by subject storage key. Invalid marks are absent.
type StudentRecord struct {
	StudentName string                  `json:"student_name"`
	USN         string                  `json:"usn"`
	Marks       map[string]null.Float64 `json:"marks"`
}

// EnrichedStudentRecord is a StudentRecord with its computed grade.
type EnrichedStudentRecord struct {
	StudentRecord
	SGPA         float64      `json:"sgpa"`
	Result       Result       `json:"result"`
	OverallGrade OverallGrade `json:"overall_grade"`
}

// Evaluate grades one student. A single mark under FailThreshold fails the semester outright;
// otherwise the SGPA is the credit weighted mean of grade points, rounded half-up to 2 decimals.
// A subject without a mark is not a failure and contributes no grade point.
func Evaluate(rec StudentRecord, schema Schema) EnrichedStudentRecord {
	enriched := EnrichedStudentRecord{StudentRecord: rec}

	for _, col := range schema {
		if mark := rec.Marks[col.StorageKey]; mark.Valid && mark.Float64 < FailThreshold {
			enriched.Result = Fail
			enriched.SGPA = 0
			enriched.OverallGrade = GradeF
			return enriched
		}
	}

	var points, credits int64
	for _, col := range schema {
		credits += int64(col.CreditWeight)
		if mark := rec.Marks[col.StorageKey]; mark.Valid {
			points += int64(GradePoint(mark.Float64) * col.CreditWeight)
		}
	}
	enriched.Result = Pass
	enriched.SGPA = RoundRatio(points, credits)
	enriched.OverallGrade = OverallGradeFor(enriched.SGPA)
	return enriched
}

// Compute grades every record against the same schema, preserving order.
func Compute(records []StudentRecord, schema Schema) []EnrichedStudentRecord {
	enriched := make([]EnrichedStudentRecord, 0, len(records))
	for _, rec := range records {
		enriched = append(enriched, Evaluate(rec, schema))
	}
	return enriched
}

// ParseStudentRecords reads raw marks out of a sheet for the subjects of schema.
// Any malformed row fails the whole batch; every offending cell is reported.
func ParseStudentRecords(s *sheet.Sheet, schema Schema) ([]StudentRecord, error) {
	idx, err := s.RequireHeaders(sheet.HeaderUSN, sheet.HeaderStudentName)
	if err != nil {
		return nil, err
	}
	usnIdx, nameIdx := idx[0], idx[1]

	// repeated headers map to successive columns
	subjIdx := make([]int, len(schema))
	taken := make(map[int]bool, len(schema))
	for i, col := range schema {
		subjIdx[i] = -1
		for j, h := range s.Headers {
			if !taken[j] && strings.TrimSpace(h) == col.RawHeader {
				subjIdx[i] = j
				taken[j] = true
				break
			}
		}
		if subjIdx[i] < 0 {
			return nil, core.NewValidationErrorf("column %q not found in sheet", col.RawHeader)
		}
	}

	var rowErrs []string
	addErr := func(rowNum int, format string, args ...interface{}) {
		rowErrs = append(rowErrs, fmt.Sprintf("row %d: ", rowNum)+fmt.Sprintf(format, args...))
	}

	seen := make(map[string]int, len(s.Rows))
	records := make([]StudentRecord, 0, len(s.Rows))
	for r, row := range s.Rows {
		rowNum := r + 2 // 1-based, after the header row
		rec := StudentRecord{
			USN:         core.CleanString(row[usnIdx]),
			StudentName: core.CleanString(row[nameIdx]),
			Marks:       make(map[string]null.Float64, len(schema)),
		}
		if rec.USN == "" {
			addErr(rowNum, "missing %s", sheet.HeaderUSN)
		} else if prev, dup := seen[strings.ToUpper(rec.USN)]; dup {
			addErr(rowNum, "%s %q already used on row %d", sheet.HeaderUSN, rec.USN, prev)
		} else {
			seen[strings.ToUpper(rec.USN)] = rowNum
		}

		for i, col := range schema {
			mark, err := ParseMark(row[subjIdx[i]])
			if err != nil {
				addErr(rowNum, "%q: %v", col.RawHeader, err)
				continue
			}
			rec.Marks[col.StorageKey] = mark
		}
		records = append(records, rec)
	}

	if len(rowErrs) > 0 {
		return nil, core.NewDataError(nil, "%d invalid cell(s): %s", len(rowErrs), summarize(rowErrs))
	}
	return records, nil
}

// ParseMark parses a spreadsheet cell as a mark. A blank cell is an absent mark.
func ParseMark(cell string) (null.Float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return null.Float64{}, nil
	}
	mark, err := strconv.ParseFloat(cell, 64)
	if err != nil || math.IsNaN(mark) || math.IsInf(mark, 0) {
		return null.Float64{}, fmt.Errorf("mark %q is not a number", cell)
	}
	if mark < MinMark || mark > MaxMark {
		return null.Float64{}, fmt.Errorf("mark %v is out of range [%v, %v]", mark, MinMark, MaxMark)
	}
	return null.Float64From(mark), nil
}

func summarize(errs []string) string {
	if len(errs) > maxReportedRowErrors {
		return strings.Join(errs[:maxReportedRowErrors], "; ") + fmt.Sprintf("; and %d more", len(errs)-maxReportedRowErrors)
	}
	return strings.Join(errs, "; ")
}
