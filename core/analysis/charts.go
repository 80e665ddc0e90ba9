// Package analysis shapes semester and attendance data into report view-models:
// chart-ready label/value series and fixed-size leaderboards. It holds no state of its own.
package analysis

import (
	"github.com/trezcool/gradebook/core/attendance"
	"github.com/trezcool/gradebook/core/grade"
	"github.com/trezcool/gradebook/core/semester"
)

const (
	ChartPassFail          = "Pass/Fail Ratio"
	ChartGradeDistribution = "Grade Distribution"
	ChartSGPADistribution  = "SGPA Distribution"
	ChartSubjectPassRate   = "Subject Pass Rate"
	ChartSubjectMarks      = "Subject-wise Performance"
	ChartPerformance       = "Performance Distribution"
	ChartAttendance        = "Attendance Percentage"

	BucketAbove75 = "Above 75"
	Bucket60To75  = "60-75"
	BucketBelow60 = "Below 60"
)

// Point is one label/value pair of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type Chart struct {
	Title  string  `json:"title"`
	Points []Point `json:"points"`
}

func newChart(title string, capacity int) Chart {
	return Chart{Title: title, Points: make([]Point, 0, capacity)}
}

func (c *Chart) add(label string, value float64) {
	c.Points = append(c.Points, Point{Label: label, Value: value})
}

// PassFailChart rounds the pass share and gives the rest to fail, so both add up to 100 when anyone sat.
func PassFailChart(stats semester.Statistics) Chart {
	c := newChart(ChartPassFail, 2)
	pass := grade.Percentage(int64(stats.Passed), int64(stats.Total))
	var fail float64
	if stats.Total > 0 {
		fail = grade.Round2(100 - pass)
	}
	c.add(string(grade.Pass), pass)
	c.add(string(grade.Fail), fail)
	return c
}

func GradeChart(dist []semester.GradeCount) Chart {
	c := newChart(ChartGradeDistribution, len(dist))
	for _, gc := range dist {
		c.add(string(gc.Grade), float64(gc.Count))
	}
	return c
}

func HistogramChart(buckets []semester.HistogramBucket) Chart {
	c := newChart(ChartSGPADistribution, len(buckets))
	for _, b := range buckets {
		c.add(b.Label, float64(b.Count))
	}
	return c
}

func SubjectPassRateChart(analyses []semester.SubjectAnalysis) Chart {
	c := newChart(ChartSubjectPassRate, len(analyses))
	for _, a := range analyses {
		c.add(a.Subject.SubjectName, a.PassRate)
	}
	return c
}

// SubjectMarksChart plots the marks of one student; subjects without a mark are left out.
func SubjectMarksChart(marks []SubjectMark) Chart {
	c := newChart(ChartSubjectMarks, len(marks))
	for _, m := range marks {
		if m.Mark.Valid {
			c.add(m.Subject.SubjectName, m.Mark.Float64)
		}
	}
	return c
}

// PerformanceChart counts a student's marks above 75, between 60 and 75 inclusive, and below 60.
func PerformanceChart(marks []SubjectMark) Chart {
	var above, middle, below int
	for _, m := range marks {
		if !m.Mark.Valid {
			continue
		}
		switch v := m.Mark.Float64; {
		case v > 75:
			above++
		case v >= 60:
			middle++
		default:
			below++
		}
	}

	c := newChart(ChartPerformance, 3)
	c.add(BucketAbove75, float64(above))
	c.add(Bucket60To75, float64(middle))
	c.add(BucketBelow60, float64(below))
	return c
}

func AttendanceChart(students []attendance.StudentStats) Chart {
	c := newChart(ChartAttendance, len(students))
	for _, st := range students {
		c.add(st.USN, st.AttendancePercentage)
	}
	return c
}
