package services

import (
	"math"
	"testing"

	"access-audit-api/models"
)

func TestComputeOverallScore(t *testing.T) {
	tests := []struct {
		name      string
		scores    []int
		maxScores []int
		want      float64
	}{
		{
			name:      "full marks",
			scores:    []int{5, 10},
			maxScores: []int{5, 10},
			want:      10,
		},
		{
			name:      "partial marks",
			scores:    []int{4, 8},
			maxScores: []int{5, 10},
			want:      8,
		},
		{
			name:      "single criterion",
			scores:    []int{3},
			maxScores: []int{4},
			want:      7.5,
		},
		{
			name:      "all zero max scores",
			scores:    []int{0, 0},
			maxScores: []int{0, 0},
			want:      0,
		},
		{
			name: "no details",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			details := make([]models.AssessmentDetail, len(tt.scores))
			maxScores := map[int]int{}
			for i, score := range tt.scores {
				details[i] = models.AssessmentDetail{CriterionID: i + 1, Score: score}
				maxScores[i+1] = tt.maxScores[i]
			}

			got := ComputeOverallScore(details, maxScores)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ComputeOverallScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Only the criteria attached to the assessment count toward the denominator;
// an assessment scoped to a subset is not penalised for the criteria it skipped.
func TestComputeOverallScoreIgnoresUnattachedCriteria(t *testing.T) {
	details := []models.AssessmentDetail{
		{CriterionID: 1, Score: 5},
	}
	maxScores := map[int]int{1: 5, 2: 10, 3: 10}

	if got := ComputeOverallScore(details, maxScores); got != 10 {
		t.Errorf("ComputeOverallScore() = %v, want 10", got)
	}
}
