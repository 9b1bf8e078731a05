package dedup

import (
	"sort"

	"github.com/sells-group/leads-cli/internal/model"
)

// Match types reported by FindMatches.
const (
	MatchTypeName  = "name"
	MatchTypePhone = "phone"
)

// Query is a candidate record checked against the existing set before
// creation. Either field may be empty.
type Query struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// MatchResult is one existing lead that collides with a query. MatchScore
// counts the agreeing fields; it is not weighted.
type MatchResult struct {
	LeadID     string   `json:"id"`
	Name       string   `json:"name"`
	Phone      string   `json:"phone,omitempty"`
	Email      string   `json:"email,omitempty"`
	City       string   `json:"city,omitempty"`
	Status     string   `json:"status,omitempty"`
	MatchScore int      `json:"match_score"`
	MatchTypes []string `json:"match_types"`
}

// FindMatches returns every lead that plausibly collides with the query,
// sorted by match score descending. The sort is stable, so equal scores
// keep their original array order. Name comparison runs query-as-input
// against the stored name, same direction as the group scan.
func FindMatches(leads []model.Lead, q Query) []MatchResult {
	var matches []MatchResult

	for i := range leads {
		lead := &leads[i]
		score := 0
		var types []string

		if q.Name != "" && lead.Name != "" && IsNameMatch(q.Name, lead.Name) {
			score++
			types = append(types, MatchTypeName)
		}
		if q.Phone != "" && lead.Phone != "" && NormalizePhone(q.Phone) == NormalizePhone(lead.Phone) {
			score++
			types = append(types, MatchTypePhone)
		}

		if score == 0 {
			continue
		}
		matches = append(matches, MatchResult{
			LeadID:     lead.ID,
			Name:       lead.Name,
			Phone:      lead.Phone,
			Email:      lead.Email,
			City:       lead.City,
			Status:     lead.StatusValue(),
			MatchScore: score,
			MatchTypes: types,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	return matches
}
