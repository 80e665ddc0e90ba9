package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/semester"
)

func TestPassFailChart(t *testing.T) {
	tests := []struct {
		name  string
		stats semester.Statistics
		want  []Point
	}{
		{
			name:  "thirds add up",
			stats: semester.Statistics{Total: 3, Passed: 1, Failed: 2},
			want:  []Point{{Label: "Pass", Value: 33.33}, {Label: "Fail", Value: 66.67}},
		},
		{
			name:  "rounded shares still add up",
			stats: semester.Statistics{Total: 800, Passed: 1, Failed: 799},
			want:  []Point{{Label: "Pass", Value: 0.13}, {Label: "Fail", Value: 99.87}},
		},
		{
			name:  "everybody passed",
			stats: semester.Statistics{Total: 7, Passed: 7},
			want:  []Point{{Label: "Pass", Value: 100}, {Label: "Fail", Value: 0}},
		},
		{
			name:  "empty semester",
			stats: semester.Statistics{},
			want:  []Point{{Label: "Pass", Value: 0}, {Label: "Fail", Value: 0}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PassFailChart(tt.stats)
			assert.Equal(t, ChartPassFail, c.Title)
			assert.Equal(t, tt.want, c.Points)
			if tt.stats.Total > 0 {
				assert.InDelta(t, 100, c.Points[0].Value+c.Points[1].Value, 1e-9)
			}
		})
	}
}

func TestPerformanceChart(t *testing.T) {
	marks := []SubjectMark{
		{Mark: null.Float64From(75.5)},
		{Mark: null.Float64From(75)},
		{Mark: null.Float64From(60)},
		{Mark: null.Float64From(59.99)},
		{Mark: null.Float64{}},
	}
	assert.Equal(t, []Point{
		{Label: BucketAbove75, Value: 1},
		{Label: Bucket60To75, Value: 2},
		{Label: BucketBelow60, Value: 1},
	}, PerformanceChart(marks).Points)
}

func TestHistogramChart(t *testing.T) {
	c := HistogramChart(semester.NewHistogram([]int{1, 0, 0, 0, 2, 0, 3}))
	assert.Len(t, c.Points, 7)
	assert.Equal(t, Point{Label: "9-10", Value: 3}, c.Points[6])
}

func TestTopAttendance(t *testing.T) {
	students := []attendance.StudentStats{
		{USN: "1", AttendancePercentage: 50},
		{USN: "2", AttendancePercentage: 90},
		{USN: "3", AttendancePercentage: 90},
		{USN: "4", AttendancePercentage: 100},
		{USN: "5", AttendancePercentage: 10},
		{USN: "6", AttendancePercentage: 70},
	}
	top := TopAttendance(students, 5)

	usns := make([]string, 0, len(top))
	for _, st := range top {
		usns = append(usns, st.USN)
	}
	assert.Equal(t, []string{"4", "2", "3", "6", "1"}, usns)
	assert.Equal(t, "1", students[0].USN) // input untouched
	assert.Empty(t, TopAttendance(nil, 5))
}
