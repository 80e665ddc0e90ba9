package attendance

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/gradebook/core"
	"github.com/trezcool/gradebook/core/sheet"
)

func TestParseMark(t *testing.T) {
	tests := []struct {
		cell    string
		want    Mark
		wantErr bool
	}{
		{cell: "P", want: Present},
		{cell: "p", want: Present},
		{cell: " a ", want: Absent},
		{cell: "", want: Unmarked},
		{cell: "x", wantErr: true},
		{cell: "present", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.cell, func(t *testing.T) {
			got, err := ParseMark(tt.cell)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMark() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewSession(t *testing.T) {
	s, err := NewSession(" 2024-01-05 ")
	require.NoError(t, err)
	assert.Equal(t, Session{Label: "2024-01-05", Column: "s_2024_01_05"}, s)

	_, err = NewSession("???")
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func sessions(n int) []Session {
	ss := make([]Session, 0, n)
	for i := 1; i <= n; i++ {
		s, _ := NewSession(fmt.Sprintf("day %d", i))
		ss = append(ss, s)
	}
	return ss
}

func TestStatsFor(t *testing.T) {
	ss := sessions(21)
	marks := make(map[string]Mark)
	for i, s := range ss {
		switch {
		case i < 16:
			marks[s.Label] = Present
		case i < 20:
			marks[s.Label] = Absent
		default:
			marks[s.Label] = Unmarked
		}
	}
	rec := Record{USN: "1XX01", StudentName: "Alice", Marks: marks}

	got := StatsFor(rec, ss, 80)
	assert.Equal(t, StudentStats{
		USN:                  "1XX01",
		StudentName:          "Alice",
		TotalClasses:         20,
		ClassesAttended:      16,
		AttendancePercentage: 80,
		Shortage:             false, // boundary is not a shortage
	}, got)

	assert.True(t, StatsFor(rec, ss, 80.01).Shortage)
	assert.False(t, StatsFor(Record{USN: "x"}, ss, 80).Shortage)
}

func TestComputeStats(t *testing.T) {
	ss := sessions(3)
	reg := Register{
		Sessions: ss,
		Records: []Record{
			{USN: "1", Marks: map[string]Mark{"day 1": Present, "day 2": Present, "day 3": Present}},
			{USN: "2", Marks: map[string]Mark{"day 1": Present, "day 2": Absent, "day 3": Absent}},
			{USN: "3", Marks: map[string]Mark{"day 1": Present, "day 2": Absent}},
		},
	}
	stats := ComputeStats(reg, 75)

	require.Len(t, stats.Students, 3)
	assert.Equal(t, 100.0, stats.Students[0].AttendancePercentage)
	assert.Equal(t, 33.33, stats.Students[1].AttendancePercentage)
	assert.Equal(t, 50.0, stats.Students[2].AttendancePercentage)
	assert.Equal(t, ClassSummary{
		TotalStudents:     3,
		ShortageCount:     2,
		AveragePercentage: 61.11, // (100 + 33.33 + 50) / 3, not weighted by classes
		Threshold:         75,
	}, stats.Summary)

	empty := ComputeStats(Register{}, 80)
	assert.Equal(t, 0.0, empty.Summary.AveragePercentage)
	assert.Empty(t, empty.Students)
}

func TestParseRegister(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		s := sheet.New("att", []string{"Student Name", "USN", "2024-01-05", "2024-01-06"},
			[]string{"Alice", "1XX01", "p", "A"},
			[]string{"Bob", "1XX02", "", "P"},
		)
		ss, records, err := ParseRegister(s)
		require.NoError(t, err)
		assert.Equal(t, []Session{
			{Label: "2024-01-05", Column: "s_2024_01_05"},
			{Label: "2024-01-06", Column: "s_2024_01_06"},
		}, ss)
		require.Len(t, records, 2)
		assert.Equal(t, Record{
			USN:         "1XX01",
			StudentName: "Alice",
			Marks:       map[string]Mark{"2024-01-05": Present, "2024-01-06": Absent},
		}, records[0])
		assert.Equal(t, Unmarked, records[1].Marks["2024-01-05"])
	})

	tests := []struct {
		name     string
		headers  []string
		rows     [][]string
		wantKind core.Kind
	}{
		{name: "missing USN", headers: []string{"Student Name", "d1"}, wantKind: core.KindValidation},
		{name: "missing Student Name", headers: []string{"USN", "d1"}, wantKind: core.KindValidation},
		{name: "duplicate sessions", headers: []string{"USN", "Student Name", "01/05", "01-05"}, wantKind: core.KindValidation},
		{
			name:     "invalid mark",
			headers:  []string{"USN", "Student Name", "d1"},
			rows:     [][]string{{"1", "A", "L"}},
			wantKind: core.KindData,
		},
		{
			name:     "duplicate USN",
			headers:  []string{"USN", "Student Name", "d1"},
			rows:     [][]string{{"1", "A", "P"}, {"1", "B", "P"}},
			wantKind: core.KindData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseRegister(sheet.New("att", tt.headers, tt.rows...))
			assert.Equal(t, tt.wantKind, core.KindOf(err))
		})
	}
}
