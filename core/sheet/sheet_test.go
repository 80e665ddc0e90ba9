package sheet

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/gradebook/core"
)

func xlsxBytes(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestReadXLSX(t *testing.T) {
	buf := xlsxBytes(t,
		[]interface{}{"USN", "Student Name", "Maths (4)"},
		[]interface{}{"1XX01", "Alice", 95},
		[]interface{}{},
		[]interface{}{"1XX02", "Bob"},
	)
	s, err := Read(buf, "marks.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "Sheet1", s.Name)
	assert.Equal(t, []string{"USN", "Student Name", "Maths (4)"}, s.Headers)
	assert.Equal(t, [][]string{
		{"1XX01", "Alice", "95"},
		{"1XX02", "Bob", ""},
	}, s.Rows)
}

func TestReadCSV(t *testing.T) {
	data := "\n USN ,Student Name,2024-01-05,2024-01-06\n1XX01,Alice,P,a\n1XX02,Bob,P\n,,,\n"
	s, err := Read(strings.NewReader(data), "attendance.CSV")
	require.NoError(t, err)

	assert.Equal(t, []string{"USN", "Student Name", "2024-01-05", "2024-01-06"}, s.Headers)
	assert.Equal(t, [][]string{
		{"1XX01", "Alice", "P", "a"},
		{"1XX02", "Bob", "P", ""},
	}, s.Rows)
}

func TestRead_errors(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		wantKind core.Kind
	}{
		{name: "unsupported extension", data: "x", filename: "marks.pdf", wantKind: core.KindValidation},
		{name: "empty csv", data: "\n,,\n", filename: "marks.csv", wantKind: core.KindValidation},
		{name: "not a workbook", data: "definitely not a zip", filename: "marks.xlsx", wantKind: core.KindData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.data), tt.filename)
			assert.Equal(t, tt.wantKind, core.KindOf(err))
		})
	}
}

func TestSheet_RequireHeaders(t *testing.T) {
	s := New("s", []string{"usn", "STUDENT NAME", "x"})

	idx, err := s.RequireHeaders(HeaderStudentName, HeaderUSN)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, idx)

	_, err = s.RequireHeaders(HeaderUSN, "Semester")
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	assert.Contains(t, err.Error(), "Semester")
}
