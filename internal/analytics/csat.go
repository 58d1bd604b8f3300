package analytics

import (
	"strconv"

	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// CSATAnalysis summarizes satisfaction survey answers. Percentage (share of ratings at or
// above the high threshold) is the headline KPI; Average is reference only.
type CSATAnalysis struct {
	Percentage            float64        `json:"percentage"`
	TotalResponses        int            `json:"total_responses"`
	HighSatisfactionCount int            `json:"high_satisfaction_count"`
	Distribution          map[string]int `json:"distribution"`
	Average               float64        `json:"average"`
}

// CSAT considers only tickets with a rating on [1,5].
func (e *Engine) CSAT(rs *domain.RecordSet) CSATAnalysis {
	out := CSATAnalysis{Distribution: map[string]int{}}
	var ratings []float64
	for _, t := range rs.All() {
		if !t.HasRating() {
			continue
		}
		ratings = append(ratings, t.Satisfaction)
		out.Distribution[ratingLabel(t.Satisfaction)]++
		if t.Satisfaction >= e.policy.HighRating {
			out.HighSatisfactionCount++
		}
	}
	out.TotalResponses = len(ratings)
	out.Percentage = percent(out.HighSatisfactionCount, out.TotalResponses)
	out.Average = round(mean(ratings), 2)
	return out
}

func ratingLabel(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
