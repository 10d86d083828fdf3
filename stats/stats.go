// Package stats computes running score statistics and history summaries
// from feedback records.
package stats

import (
	"fmt"

	"github.com/krshsl/praxis/feedback/apperrors"
	"github.com/krshsl/praxis/feedback/models"
)

type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

const (
	// MinTrendRecords is the smallest history that gets a trend other than stable.
	MinTrendRecords = 4
	// TrendThreshold is how far apart the half means must be to count as a change.
	TrendThreshold = 5
	// TopItems caps the strengths and improvements lists of a summary.
	TopItems = 5
)

// Recompute folds one new feedback score into prior.
func Recompute(prior models.UserStats, newScore int) (models.UserStats, error) {
	if newScore < 0 || newScore > 100 {
		return prior, apperrors.NewValidationError("score", fmt.Sprintf("%d is outside 0-100", newScore))
	}
	next := models.UserStats{
		InterviewsCompleted: prior.InterviewsCompleted + 1,
		TotalScore:          prior.TotalScore + newScore,
	}
	next.AverageScore = roundDiv(next.TotalScore, next.InterviewsCompleted)
	return next, nil
}

// roundDiv returns num/den rounded half up. Both must be non-negative and
// den non-zero.
func roundDiv(num, den int) int {
	return (2*num + den) / (2 * den)
}

// Summary describes a window of a user's feedback history.
type Summary struct {
	AverageScore       int      `json:"average_score"`
	TotalInterviews    int      `json:"total_interviews"`
	ImprovementTrend   Trend    `json:"improvement_trend"`
	TopStrengths       []string `json:"top_strengths"`
	CommonImprovements []string `json:"common_improvements"`
}

// Summarize computes a Summary over feedbacks, which must be ordered newest
// first. The order is not checked or fixed here; use NewestFirst when the
// source is not known to be sorted. With windowSplit false, or fewer than
// MinTrendRecords records, the trend is stable.
func Summarize(feedbacks []models.Feedback, windowSplit bool) Summary {
	s := Summary{
		TotalInterviews:    len(feedbacks),
		ImprovementTrend:   TrendStable,
		TopStrengths:       []string{},
		CommonImprovements: []string{},
	}
	if len(feedbacks) == 0 {
		return s
	}

	s.AverageScore = roundDiv(sumScores(feedbacks), len(feedbacks))

	if windowSplit && len(feedbacks) >= MinTrendRecords {
		mid := len(feedbacks) / 2
		recent := mean(feedbacks[:mid])
		older := mean(feedbacks[mid:])
		switch {
		case recent > older+TrendThreshold:
			s.ImprovementTrend = TrendImproving
		case recent < older-TrendThreshold:
			s.ImprovementTrend = TrendDeclining
		}
	}

	var strengths, improvements [][]string
	for _, f := range feedbacks {
		strengths = append(strengths, f.Strengths)
		improvements = append(improvements, f.AreasForImprovement)
	}
	s.TopStrengths = firstUnique(strengths, TopItems)
	s.CommonImprovements = firstUnique(improvements, TopItems)
	return s
}

// NewestFirst reports whether feedbacks are ordered by CreatedAt descending.
func NewestFirst(feedbacks []models.Feedback) bool {
	for i := 1; i < len(feedbacks); i++ {
		if feedbacks[i].CreatedAt.After(feedbacks[i-1].CreatedAt) {
			return false
		}
	}
	return true
}

func sumScores(feedbacks []models.Feedback) int {
	total := 0
	for _, f := range feedbacks {
		total += f.TotalScore
	}
	return total
}

func mean(feedbacks []models.Feedback) float64 {
	return float64(sumScores(feedbacks)) / float64(len(feedbacks))
}

// firstUnique flattens lists and keeps the first limit distinct values in
// the order they were first seen.
func firstUnique(lists [][]string, limit int) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
