// Package merge implements conflict detection and merge-resolution for
// duplicate lead groups: it decides what needs human arbitration before a
// group collapses into its master and assembles the resulting record.
package merge

import (
	"github.com/sells-group/leads-cli/internal/model"
)

// HasStateConflict reports whether any duplicate carries a non-empty
// status different from the master's. Field access resolves both record
// shapes (nested wins).
func HasStateConflict(master model.Lead, duplicates []model.Lead) bool {
	masterState := master.StatusValue()
	for i := range duplicates {
		dupState := duplicates[i].StatusValue()
		if dupState != "" && dupState != masterState {
			return true
		}
	}
	return false
}

// HasAssigneeConflict reports whether any duplicate carries assignees that
// differ from the master's. Comparison is structural and order-sensitive:
// ["a","b"] conflicts with ["b","a"].
func HasAssigneeConflict(master model.Lead, duplicates []model.Lead) bool {
	masterAssignee := master.AssigneeValue()
	for i := range duplicates {
		dupAssignee := duplicates[i].AssigneeValue()
		if len(dupAssignee) > 0 && !dupAssignee.Equal(masterAssignee) {
			return true
		}
	}
	return false
}

// UniqueStates lists every distinct non-empty status across the group, in
// insertion order: master first, then duplicates in array order.
func UniqueStates(master model.Lead, duplicates []model.Lead) []string {
	var states []string
	seen := make(map[string]bool)

	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			states = append(states, s)
		}
	}

	add(master.StatusValue())
	for i := range duplicates {
		add(duplicates[i].StatusValue())
	}
	return states
}

// UniqueAssignees lists every distinct assignee id across the group,
// master first. Multi-assignee values are flattened into individual ids.
func UniqueAssignees(master model.Lead, duplicates []model.Lead) []string {
	var assignees []string
	seen := make(map[string]bool)

	add := func(ids model.AssigneeList) {
		for _, id := range ids {
			if id != "" && !seen[id] {
				seen[id] = true
				assignees = append(assignees, id)
			}
		}
	}

	add(master.AssigneeValue())
	for i := range duplicates {
		add(duplicates[i].AssigneeValue())
	}
	return assignees
}
