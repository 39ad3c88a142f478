package services

import (
	"access-audit-api/models"
)

// ComputeOverallScore aggregates detail scores into the 0-10 headline score.
// Only the criteria actually attached to the assessment count: the achieved
// sum is divided by the sum of those criteria's max scores, then scaled to 10.
// A zero possible total is substituted with 1 so an assessment whose criteria
// all have max_score 0 computes to 0 rather than dividing by zero.
//
// Scores above a criterion's max are not clamped here; write-time callers are
// expected to keep inputs within range.
func ComputeOverallScore(details []models.AssessmentDetail, maxScores map[int]int) float64 {
	totalAchieved := 0
	totalPossible := 0
	for _, d := range details {
		totalAchieved += d.Score
		totalPossible += maxScores[d.CriterionID]
	}
	if totalPossible == 0 {
		totalPossible = 1
	}
	return float64(totalAchieved) / float64(totalPossible) * 10
}
