package analytics

import "github.com/spec-kit/ticket-analytics/internal/domain"

const noneLabel = "(none)"

// Distribution breaks tickets down by their categorical fields.
type Distribution struct {
	ByType        map[string]int `json:"by_type"`
	ByStatus      map[string]int `json:"by_status"`
	ByPriority    map[string]int `json:"by_priority"`
	ByCategory    []Count        `json:"by_category"`
	TopRequesters []Count        `json:"top_requesters"`
}

// Distribution counts tickets per type, status, priority, top categories and top requesters.
func (e *Engine) Distribution(rs *domain.RecordSet) Distribution {
	out := Distribution{
		ByType:     map[string]int{},
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
	}
	categories := map[string]int{}
	requesters := map[string]int{}
	for _, t := range rs.All() {
		out.ByType[labelOrNone(t.Type)]++
		out.ByStatus[labelOrNone(t.Status)]++
		out.ByPriority[labelOrNone(t.Priority)]++
		categories[labelOrNone(t.Category)]++
		if t.Requester != "" {
			requesters[t.Requester]++
		}
	}
	out.ByCategory = topCounts(categories, e.policy.TopCategories)
	out.TopRequesters = topCounts(requesters, e.policy.TopRequesters)
	return out
}

func labelOrNone(v string) string {
	if v == "" {
		return noneLabel
	}
	return v
}
