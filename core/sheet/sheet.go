// Package sheet decodes uploaded spreadsheets (xlsx or csv) into an ordered header + rows table.
package sheet

import (
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core"
)

// Fixed metadata headers every uploaded sheet must carry.
const (
	HeaderUSN         = "USN"
	HeaderStudentName = "Student Name"
)

var ErrUnsupportedFormat = core.NewValidationError(nil, core.FieldError{Field: "file", Error: "unsupported file format (expected .xlsx or .csv)"})

// Sheet is an ordered table: Headers in column order, Rows padded to len(Headers).
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// New builds a Sheet from a header row and data rows. Blank rows are dropped.
func New(name string, headers []string, rows ...[]string) *Sheet {
	s := &Sheet{Name: name, Headers: make([]string, len(headers))}
	for i, h := range headers {
		s.Headers[i] = strings.TrimSpace(h)
	}
	for _, row := range rows {
		if isBlank(row) {
			continue
		}
		padded := make([]string, len(headers))
		for i := 0; i < len(row) && i < len(headers); i++ {
			padded[i] = strings.TrimSpace(row[i])
		}
		s.Rows = append(s.Rows, padded)
	}
	return s
}

// Index returns the position of header (case-insensitive), or -1.
func (s *Sheet) Index(header string) int {
	for i, h := range s.Headers {
		if strings.EqualFold(h, header) {
			return i
		}
	}
	return -1
}

// RequireHeaders returns the positions of the given headers or a ValidationError naming the missing ones.
func (s *Sheet) RequireHeaders(headers ...string) ([]int, error) {
	idx := make([]int, len(headers))
	var missing []string
	for i, h := range headers {
		idx[i] = s.Index(h)
		if idx[i] < 0 {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, core.NewValidationErrorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// Read decodes r according to the extension of filename.
func Read(r io.Reader, filename string) (*Sheet, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(r)
	case ".csv":
		return ReadCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ReadXLSX decodes the first worksheet of an xlsx workbook.
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, core.NewDataError(err, "reading workbook")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewValidationErrorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, core.NewDataError(err, "reading sheet %q", sheets[0])
	}
	return fromRecords(sheets[0], rows)
}

// ReadCSV decodes a comma separated file whose first record is the header row.
func ReadCSV(r io.Reader) (*Sheet, error) {
	rdr := csv.NewReader(r)
	rdr.FieldsPerRecord = -1 // ragged rows are padded
	rdr.TrimLeadingSpace = true
	records, err := rdr.ReadAll()
	if err != nil {
		return nil, core.NewDataError(errors.WithStack(err), "reading csv")
	}
	return fromRecords("csv", records)
}

func fromRecords(name string, records [][]string) (*Sheet, error) {
	// the header row is the first non blank one
	for i, rec := range records {
		if isBlank(rec) {
			continue
		}
		return New(name, trimTrailingBlank(rec), records[i+1:]...), nil
	}
	return nil, core.NewValidationErrorf("sheet %q is empty", name)
}

func trimTrailingBlank(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
