package merge

import "fmt"

// Validation is the structured result of checking an operator's merge
// choice. Invalid selections are reported here, not as errors; the caller
// decides whether to block the merge.
type Validation struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// ValidateMergeChoice checks that a picked field value was actually
// observed somewhere in the group ({master} ∪ duplicates). An empty
// selection is always valid: it means "keep the master's current value".
// The same rule applies to status and assignee choices.
func ValidateMergeChoice(selected, master string, duplicates []string) Validation {
	if selected == "" {
		return Validation{Valid: true}
	}
	if selected == master {
		return Validation{Valid: true}
	}
	for _, v := range duplicates {
		if selected == v {
			return Validation{Valid: true}
		}
	}
	return Validation{
		Valid: false,
		Error: fmt.Sprintf("selected value %q not valid", selected),
	}
}
