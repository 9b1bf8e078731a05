package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leads-cli/internal/model"
)

func TestBuildPlan_TextConsolidation(t *testing.T) {
	master := model.Lead{ID: "m", Email: "mario@example.com"}
	duplicates := []model.Lead{
		{ID: "d1", Email: "other@example.com", City: "Roma", Notes: "first note"},
		{ID: "d2", City: "Milano", Notes: "second note", Zip: "20100"},
	}

	plan, v := BuildPlan(master, duplicates, Choices{}, DefaultPolicy())
	require.True(t, v.Valid)

	// Master's value wins; the first duplicate with a value fills gaps
	assert.Equal(t, "mario@example.com", plan.Fields["email"])
	assert.Equal(t, "Roma", plan.Fields["city"])
	assert.Equal(t, "first note", plan.Fields["notes"])
	assert.Equal(t, "20100", plan.Fields["zip"])

	// Empty fields are omitted entirely
	assert.NotContains(t, plan.Fields, "address")
	assert.NotContains(t, plan.Fields, "need")

	assert.Equal(t, []string{"d1", "d2"}, plan.DeleteIDs)
	assert.Equal(t, "m", plan.MasterID)
}

func TestBuildPlan_RelationUnion(t *testing.T) {
	master := model.Lead{ID: "m", Orders: []string{"o1", "o2"}}
	duplicates := []model.Lead{
		{ID: "d1", Orders: []string{"o2", "o3"}, Activities: []string{"act1"}},
	}

	plan, v := BuildPlan(master, duplicates, Choices{}, DefaultPolicy())
	require.True(t, v.Valid)

	assert.Equal(t, []string{"o1", "o2", "o3"}, plan.Fields["orders"])
	assert.Equal(t, []string{"act1"}, plan.Fields["activities"])
}

func TestBuildPlan_StatusChoice(t *testing.T) {
	master := model.Lead{ID: "m", Status: "Nuovo"}
	duplicates := []model.Lead{{ID: "d1", Status: "Contattato"}}

	plan, v := BuildPlan(master, duplicates, Choices{Status: "Contattato"}, DefaultPolicy())
	require.True(t, v.Valid)
	assert.Equal(t, "Contattato", plan.Fields["status"])

	// No choice keeps the master's status
	plan, v = BuildPlan(master, duplicates, Choices{}, DefaultPolicy())
	require.True(t, v.Valid)
	assert.Equal(t, "Nuovo", plan.Fields["status"])
}

func TestBuildPlan_InvalidStatusChoice(t *testing.T) {
	master := model.Lead{ID: "m", Status: "Nuovo"}
	duplicates := []model.Lead{{ID: "d1", Status: "Contattato"}}

	plan, v := BuildPlan(master, duplicates, Choices{Status: "Inventato"}, DefaultPolicy())

	assert.False(t, v.Valid)
	assert.Contains(t, v.Error, "Inventato")
	assert.Empty(t, plan.MasterID)
	assert.Empty(t, plan.DeleteIDs)
}

func TestBuildPlan_AssigneeChoice(t *testing.T) {
	master := model.Lead{ID: "m", Assignee: model.AssigneeList{"anna"}}
	duplicates := []model.Lead{{ID: "d1", Assignee: model.AssigneeList{"marco"}}}

	plan, v := BuildPlan(master, duplicates, Choices{Assignee: "marco"}, DefaultPolicy())
	require.True(t, v.Valid)
	assert.Equal(t, []string{"marco"}, plan.Fields["assignee"])

	// No choice keeps the master's assignees
	plan, v = BuildPlan(master, duplicates, Choices{}, DefaultPolicy())
	require.True(t, v.Valid)
	assert.Equal(t, []string{"anna"}, plan.Fields["assignee"])
}

// Any of a multi-owner master's assignees is a valid pick, not just the
// first one.
func TestBuildPlan_AssigneeChoiceFromMasterList(t *testing.T) {
	master := model.Lead{ID: "m", Assignee: model.AssigneeList{"anna", "marco"}}
	duplicates := []model.Lead{{ID: "d1"}}

	_, v := BuildPlan(master, duplicates, Choices{Assignee: "marco"}, DefaultPolicy())
	assert.True(t, v.Valid)
}

func TestBuildPlan_InvalidAssigneeChoice(t *testing.T) {
	master := model.Lead{ID: "m", Assignee: model.AssigneeList{"anna"}}
	duplicates := []model.Lead{{ID: "d1"}}

	_, v := BuildPlan(master, duplicates, Choices{Assignee: "nessuno"}, DefaultPolicy())
	assert.False(t, v.Valid)
}

func TestBuildPlan_ForbiddenFieldsStripped(t *testing.T) {
	policy := DefaultPolicy()
	policy.TextFields = append(policy.TextFields, "id", "createdTime")

	// Nested values make the planner pick the system fields up, so the
	// forbidden strip is what keeps them out of the plan.
	master := model.Lead{ID: "m", Email: "m@x.it", Fields: map[string]any{
		"id":          "m",
		"createdTime": "2024-01-01T00:00:00Z",
	}}
	duplicates := []model.Lead{{ID: "d1"}}

	plan, v := BuildPlan(master, duplicates, Choices{}, policy)
	require.True(t, v.Valid)

	assert.NotContains(t, plan.Fields, "id")
	assert.NotContains(t, plan.Fields, "ID")
	assert.NotContains(t, plan.Fields, "createdTime")
	assert.Equal(t, "m@x.it", plan.Fields["email"])
}

func TestBuildPlan_Attachments(t *testing.T) {
	master := model.Lead{ID: "m", Attachments: []model.Attachment{{ID: "a1", URL: "https://x/1"}}}
	duplicates := []model.Lead{
		{ID: "d1", Attachments: []model.Attachment{{ID: "a2", URL: "https://x/2"}}},
	}

	plan, v := BuildPlan(master, duplicates, Choices{}, DefaultPolicy())
	require.True(t, v.Valid)
	require.Len(t, plan.Attachments, 2)
}

func TestBuildPlan_NestedShapeSources(t *testing.T) {
	master := model.Lead{ID: "m", Fields: map[string]any{
		"email":  "nested@example.com",
		"status": "Nuovo",
	}}
	duplicates := []model.Lead{{ID: "d1", Fields: map[string]any{
		"city":   "Napoli",
		"orders": []any{"o9"},
	}}}

	plan, v := BuildPlan(master, duplicates, Choices{}, DefaultPolicy())
	require.True(t, v.Valid)

	assert.Equal(t, "nested@example.com", plan.Fields["email"])
	assert.Equal(t, "Napoli", plan.Fields["city"])
	assert.Equal(t, "Nuovo", plan.Fields["status"])
	assert.Equal(t, []string{"o9"}, plan.Fields["orders"])
}
