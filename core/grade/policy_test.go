package grade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradePoint(t *testing.T) {
	tests := []struct {
		mark float64
		want int
	}{
		{0, 0}, {27.5, 0}, {39, 0}, {39.99, 0},
		{40, 5}, {49, 5}, {49.99, 5},
		{50, 6}, {59, 6},
		{60, 7}, {69, 7},
		{70, 8}, {79, 8},
		{80, 9}, {89, 9}, {89.99, 9},
		{90, 10}, {99, 10}, {100, 10},
	}
	for _, tt := range tests {
		if got := GradePoint(tt.mark); got != tt.want {
			t.Errorf("GradePoint(%v) = %v, want %v", tt.mark, got, tt.want)
		}
	}
}

func TestGradePoint_monotonic(t *testing.T) {
	prev := GradePoint(0)
	for m := 0.0; m <= 100; m += 0.25 {
		gp := GradePoint(m)
		if gp < prev {
			t.Fatalf("GradePoint(%v) = %v < GradePoint of a lower mark (%v)", m, gp, prev)
		}
		prev = gp
	}
}

func TestOverallGradeFor(t *testing.T) {
	tests := []struct {
		sgpa float64
		want OverallGrade
	}{
		{10, GradeAPlus}, {9, GradeAPlus},
		{8.99, GradeA}, {8, GradeA},
		{7.99, GradeBPlus}, {7, GradeBPlus},
		{6.5, GradeB}, {6, GradeB},
		{5.5, GradeCPlus}, {5, GradeCPlus},
		{4.01, GradeC}, {4, GradeC},
		{3.99, GradeF}, {0, GradeF},
	}
	for _, tt := range tests {
		if got := OverallGradeFor(tt.sgpa); got != tt.want {
			t.Errorf("OverallGradeFor(%v) = %v, want %v", tt.sgpa, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	assert.Equal(t, 0, Rank(GradeAPlus))
	assert.Equal(t, len(Grades)-1, Rank(GradeF))
	assert.Equal(t, -1, Rank("Z"))
}

func TestRoundRatio(t *testing.T) {
	tests := []struct {
		name     string
		num, den int64
		want     float64
	}{
		{name: "exact", num: 91, den: 10, want: 9.1},
		{name: "half rounds up", num: 65, den: 8, want: 8.13},
		{name: "below half rounds down", num: 1, den: 3, want: 0.33},
		{name: "above half rounds up", num: 2, den: 3, want: 0.67},
		{name: "zero denominator", num: 5, den: 0, want: 0},
		{name: "negative numerator", num: -65, den: 8, want: -8.13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundRatio(tt.num, tt.den))
		})
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 66.67, Percentage(2, 3))
	assert.Equal(t, 80.0, Percentage(16, 20))
	assert.Equal(t, 0.0, Percentage(0, 0))
}
