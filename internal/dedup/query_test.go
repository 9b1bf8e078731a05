package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leads-cli/internal/model"
)

func TestFindMatches_NameOnly(t *testing.T) {
	leads := []model.Lead{
		{ID: "a", Name: "Mario Rossi"},
		{ID: "b", Name: "Giuseppe Verdi"},
	}

	matches := FindMatches(leads, Query{Name: "Mario Rossi"})

	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].LeadID)
	assert.Equal(t, 1, matches[0].MatchScore)
	assert.Equal(t, []string{MatchTypeName}, matches[0].MatchTypes)
}

func TestFindMatches_PhoneOnly(t *testing.T) {
	leads := []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
	}

	matches := FindMatches(leads, Query{Phone: "+39 333 123 4567"})

	require.Len(t, matches, 1)
	assert.Equal(t, []string{MatchTypePhone}, matches[0].MatchTypes)
}

func TestFindMatches_ScoreOrdering(t *testing.T) {
	leads := []model.Lead{
		{ID: "name-only", Name: "Mario Rossi", Phone: "999"},
		{ID: "both", Name: "Mario Rossi", Phone: "3331234567"},
		{ID: "phone-only", Name: "Altro Nome", Phone: "3331234567"},
	}

	matches := FindMatches(leads, Query{Name: "Mario Rossi", Phone: "3331234567"})

	require.Len(t, matches, 3)
	assert.Equal(t, "both", matches[0].LeadID)
	assert.Equal(t, 2, matches[0].MatchScore)
	// Stable sort keeps original order for equal scores
	assert.Equal(t, "name-only", matches[1].LeadID)
	assert.Equal(t, "phone-only", matches[2].LeadID)
}

func TestFindMatches_QueryDirection(t *testing.T) {
	leads := []model.Lead{
		{ID: "a", Name: "Mario Rossi"},
	}

	// A bare first-name query matches the fuller stored record
	assert.Len(t, FindMatches(leads, Query{Name: "Mario"}), 1)

	// The stored side being less specific does not match a fuller query
	leads[0].Name = "Mario"
	assert.Empty(t, FindMatches(leads, Query{Name: "Mario Rossi"}))
}

func TestFindMatches_EmptyQuery(t *testing.T) {
	leads := []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
	}

	assert.Empty(t, FindMatches(leads, Query{}))
}

func TestFindMatches_StatusFromNestedFields(t *testing.T) {
	leads := []model.Lead{
		{
			ID:     "a",
			Name:   "Mario Rossi",
			Fields: map[string]any{"status": "Contattato"},
		},
	}

	matches := FindMatches(leads, Query{Name: "Mario Rossi"})
	require.Len(t, matches, 1)
	assert.Equal(t, "Contattato", matches[0].Status)
}
