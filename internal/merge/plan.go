package merge

import (
	"github.com/sells-group/leads-cli/internal/model"
)

// Choices holds the operator's picks for the conflicting business fields.
// Empty means "keep the master's current value".
type Choices struct {
	Status   string `json:"status,omitempty"`
	Assignee string `json:"assignee,omitempty"`
}

// Plan is a fully resolved merge proposal, ready for the persistence
// layer to commit: the consolidated field values to write on the master
// and the duplicate ids to remove afterwards.
type Plan struct {
	MasterID    string             `json:"master_id"`
	Fields      map[string]any     `json:"fields"`
	Attachments []model.Attachment `json:"attachments"`
	DeleteIDs   []string           `json:"delete_ids"`
}

// ValidateChoices checks both operator picks against the values observed
// in the group. The first invalid choice wins.
func ValidateChoices(master model.Lead, duplicates []model.Lead, choices Choices) Validation {
	if v := ValidateMergeChoice(choices.Status, master.StatusValue(), UniqueStates(model.Lead{}, duplicates)); !v.Valid {
		return v
	}
	// Assignees validate against the flattened group set; a master with
	// several owners makes any of them a valid pick.
	return ValidateMergeChoice(choices.Assignee, "", UniqueAssignees(master, duplicates))
}

// BuildPlan resolves a duplicate group into a merge proposal.
//
// Text fields consolidate master-first: the master's value wins, and the
// first duplicate (in array order) with a non-empty value fills any gap.
// Relation fields set-union across the group, master ids first.
// Attachments merge per MergeAttachments. Forbidden fields and empty
// values are stripped before the plan is returned, so the commit never
// touches computed or system columns.
//
// The returned Validation reflects the operator's choices; when it is
// invalid the plan is empty and must not be committed.
func BuildPlan(master model.Lead, duplicates []model.Lead, choices Choices, policy Policy) (Plan, Validation) {
	if v := ValidateChoices(master, duplicates, choices); !v.Valid {
		return Plan{}, v
	}

	fields := make(map[string]any)

	for _, key := range policy.TextFields {
		value := master.TextValue(key)
		if value == "" {
			for i := range duplicates {
				if dv := duplicates[i].TextValue(key); dv != "" {
					value = dv
					break
				}
			}
		}
		if value != "" {
			fields[key] = value
		}
	}

	for _, key := range policy.RelationFields {
		ids := unionRelations(key, master, duplicates)
		if len(ids) > 0 {
			fields[key] = ids
		}
	}

	status := choices.Status
	if status == "" {
		status = master.StatusValue()
	}
	if status != "" {
		fields[model.FieldStatus] = status
	}

	assignees := master.AssigneeValue()
	if choices.Assignee != "" {
		assignees = model.AssigneeList{choices.Assignee}
	}
	if len(assignees) > 0 {
		fields[model.FieldAssignee] = []string(assignees)
	}

	for key := range fields {
		if policy.forbidden(key) {
			delete(fields, key)
		}
	}

	plan := Plan{
		MasterID:    master.ID,
		Fields:      fields,
		Attachments: MergeAttachments(master, duplicates),
	}
	for i := range duplicates {
		plan.DeleteIDs = append(plan.DeleteIDs, duplicates[i].ID)
	}
	return plan, Validation{Valid: true}
}

// unionRelations set-unions a relation field's linked ids across the
// group, preserving first-seen order with the master's ids first.
func unionRelations(key string, master model.Lead, duplicates []model.Lead) []string {
	var out []string
	seen := make(map[string]bool)

	add := func(ids []string) {
		for _, id := range ids {
			if id != "" && !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}

	add(master.RelationIDs(key))
	for i := range duplicates {
		add(duplicates[i].RelationIDs(key))
	}
	return out
}
