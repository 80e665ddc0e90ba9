package semester

import (
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/gradebook/core/grade"
)

const (
	// TablePrefix + semester key names a semester table, e.g. "sem_3".
	TablePrefix = "sem_"

	// LeaderboardSize is the number of students listed by every top-N query.
	LeaderboardSize = 5
)

func TableName(semester string) string { return TablePrefix + semester }

// Table identifies a persisted semester table.
type Table struct {
	Semester string `json:"semester"`
	Name     string `json:"table"`
}

func NewTable(semester string) Table {
	return Table{Semester: semester, Name: TableName(semester)}
}

type Statistics struct {
	Total          int          `json:"total_students"`
	Passed         int          `json:"passed_students"`
	Failed         int          `json:"failed_students"`
	PassPercentage float64      `json:"pass_percentage"`
	AverageSGPA    null.Float64 `json:"average_sgpa"` // passers only; null when nobody passed
	HighestSGPA    null.Float64 `json:"highest_sgpa"`
	LowestSGPA     null.Float64 `json:"lowest_sgpa"`
}

// Performer is a leaderboard entry; Score is an SGPA or a subject mark.
type Performer struct {
	StudentName string  `json:"name" db:"student_name"`
	USN         string  `json:"usn" db:"usn"`
	Score       float64 `json:"score" db:"score"`
}

type SubjectAnalysis struct {
	Subject       grade.SubjectColumn `json:"subject"`
	TopPerformers []Performer         `json:"top_performers"`
	PassCount     int                 `json:"pass_count"`
	FailCount     int                 `json:"fail_count"`
	AverageMark   null.Float64        `json:"average_mark"`
	PassRate      float64             `json:"pass_rate"`
}

type GradeCount struct {
	Grade grade.OverallGrade `json:"grade"`
	Count int                `json:"count"`
}

// HistogramBucket counts SGPAs in [Min, Max), or [Min, Max] when Inclusive.
type HistogramBucket struct {
	Label     string  `json:"label"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	Inclusive bool    `json:"-"`
	Count     int     `json:"count"`
}

// HistogramBuckets are the fixed, unevenly sized SGPA buckets.
var HistogramBuckets = []HistogramBucket{
	{Label: "0-2", Min: 0, Max: 2},
	{Label: "2-4", Min: 2, Max: 4},
	{Label: "4-6", Min: 4, Max: 6},
	{Label: "6-7", Min: 6, Max: 7},
	{Label: "7-8", Min: 7, Max: 8},
	{Label: "8-9", Min: 8, Max: 9},
	{Label: "9-10", Min: 9, Max: 10, Inclusive: true},
}

// NewHistogram returns a copy of HistogramBuckets with the given counts, in bucket order.
func NewHistogram(counts []int) []HistogramBucket {
	buckets := make([]HistogramBucket, len(HistogramBuckets))
	copy(buckets, HistogramBuckets)
	for i := range buckets {
		if i < len(counts) {
			buckets[i].Count = counts[i]
		}
	}
	return buckets
}

// NewGradeDistribution lists every grade in rank order, zero-filled.
func NewGradeDistribution(counts map[grade.OverallGrade]int) []GradeCount {
	dist := make([]GradeCount, 0, len(grade.Grades))
	for _, g := range grade.Grades {
		dist = append(dist, GradeCount{Grade: g, Count: counts[g]})
	}
	return dist
}

// Snapshot holds every aggregate of a semester, all read from the same data.
type Snapshot struct {
	Schema            grade.Schema
	Statistics        Statistics
	GradeDistribution []GradeCount
	SGPAHistogram     []HistogramBucket
	Subjects          []SubjectAnalysis
	TopPerformers     []Performer
}

// UploadResult summarizes a gradebook upload.
type UploadResult struct {
	Table    Table           `json:"table"`
	Inserted int             `json:"inserted"`
	Subjects grade.Schema    `json:"subjects"`
	Warnings []grade.Warning `json:"warnings"`
}
