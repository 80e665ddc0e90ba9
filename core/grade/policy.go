// Package grade holds the grading policy, the subject column extractor and the SGPA calculator.
// Everything in here is pure: no I/O, no shared state.
package grade

import "math"

const (
	// FailThreshold is the record level cut-off: one subject mark below it fails the whole semester.
	FailThreshold = 28.0
	// SubjectPassMark is the subject level pass mark used by subject statistics.
	// It differs from FailThreshold on purpose, both are kept as observed in the grading rules.
	SubjectPassMark = 40.0

	MinMark = 0.0
	MaxMark = 100.0

	MaxSGPA = 10.0
)

type Result string

const (
	Pass Result = "Pass"
	Fail Result = "Fail"
)

type OverallGrade string

const (
	GradeAPlus OverallGrade = "A+"
	GradeA     OverallGrade = "A"
	GradeBPlus OverallGrade = "B+"
	GradeB     OverallGrade = "B"
	GradeCPlus OverallGrade = "C+"
	GradeC     OverallGrade = "C"
	GradeF     OverallGrade = "F"
)

// Grades lists every overall grade in rank order, best first.
var Grades = []OverallGrade{GradeAPlus, GradeA, GradeBPlus, GradeB, GradeCPlus, GradeC, GradeF}

type breakpoint struct {
	min   float64
	point int
}

var (
	gradePoints = []breakpoint{{90, 10}, {80, 9}, {70, 8}, {60, 7}, {50, 6}, {40, 5}}

	sgpaGrades = []struct {
		min   float64
		grade OverallGrade
	}{
		{9.0, GradeAPlus}, {8.0, GradeA}, {7.0, GradeBPlus}, {6.0, GradeB}, {5.0, GradeCPlus}, {4.0, GradeC},
	}
)

// GradePoint maps a mark out of 100 to its grade point.
func GradePoint(mark float64) int {
	for _, bp := range gradePoints {
		if mark >= bp.min {
			return bp.point
		}
	}
	return 0
}

// OverallGradeFor derives the letter grade from an SGPA.
func OverallGradeFor(sgpa float64) OverallGrade {
	for _, g := range sgpaGrades {
		if sgpa >= g.min {
			return g.grade
		}
	}
	return GradeF
}

// Rank returns the position of g in Grades, or -1 for an unknown grade.
func Rank(g OverallGrade) int {
	for i, grd := range Grades {
		if grd == g {
			return i
		}
	}
	return -1
}

// RoundRatio returns num/den rounded half-up to 2 decimals, computed on integers so no binary
// representation error can flip a .xx5 case. den <= 0 yields 0.
func RoundRatio(num, den int64) float64 {
	if den <= 0 {
		return 0
	}
	neg := num < 0
	if neg {
		num = -num
	}
	hundredths := (200*num + den) / (2 * den)
	if neg {
		hundredths = -hundredths
	}
	return float64(hundredths) / 100
}

// Percentage is RoundRatio(100*part, whole).
func Percentage(part, whole int64) float64 {
	return RoundRatio(100*part, whole)
}

// Round2 rounds x half-up (away from zero) to 2 decimals. Used for float aggregates only.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
