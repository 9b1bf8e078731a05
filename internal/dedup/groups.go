package dedup

import (
	"github.com/sells-group/leads-cli/internal/model"
)

// DuplicateGroup clusters one master lead with the records detected as
// duplicates of it. Similarity carries the caller-supplied threshold in
// strict mode and a computed score only in fuzzy mode; it is not a
// confidence value for strict groups.
type DuplicateGroup struct {
	MasterID     string   `json:"master_id" yaml:"master_id"`
	DuplicateIDs []string `json:"duplicate_ids" yaml:"duplicate_ids"`
	Similarity   float64  `json:"similarity" yaml:"similarity"`
}

// GroupSet is the result of a full duplicate scan: the emitted groups plus
// a lookup from every referenced lead id to its record.
type GroupSet struct {
	Groups    []DuplicateGroup      `json:"groups"`
	LeadsByID map[string]model.Lead `json:"leads_by_id"`
}

// FindDuplicateGroups partitions the lead set into disjoint master/
// duplicate groups in a single O(n²) pass.
//
// Two leads are duplicates when any of: the strict name matcher agrees
// (master side as input; see IsNameMatch on why direction matters), the
// normalized phones are equal, or the emails are equal ignoring case.
// The first unprocessed lead encountered in array order becomes the
// master of everything it matches, and each id lands in at most one
// group. Chains split by this first-writer rule (A↔B, B↔C, A✗C) stay
// split; the ordering is part of the contract.
//
// The caller bounds the input (a few thousand records); there is no
// pagination here.
func FindDuplicateGroups(leads []model.Lead, threshold float64) GroupSet {
	result := GroupSet{
		LeadsByID: make(map[string]model.Lead),
	}
	processed := make(map[string]bool, len(leads))

	for i := range leads {
		master := &leads[i]
		if processed[master.ID] {
			continue
		}

		var duplicates []string
		for j := i + 1; j < len(leads); j++ {
			candidate := &leads[j]
			if processed[candidate.ID] {
				continue
			}
			if !isDuplicatePair(master, candidate) {
				continue
			}
			duplicates = append(duplicates, candidate.ID)
			processed[candidate.ID] = true
		}

		if len(duplicates) == 0 {
			continue
		}

		result.Groups = append(result.Groups, DuplicateGroup{
			MasterID:     master.ID,
			DuplicateIDs: duplicates,
			Similarity:   threshold,
		})
		processed[master.ID] = true

		result.LeadsByID[master.ID] = *master
		for _, id := range duplicates {
			result.LeadsByID[id] = leadByID(leads, id)
		}
	}

	return result
}

func isDuplicatePair(master, candidate *model.Lead) bool {
	if master.Name != "" && candidate.Name != "" && IsNameMatch(master.Name, candidate.Name) {
		return true
	}
	if PhonesMatch(master.Phone, candidate.Phone) {
		return true
	}
	if EmailsMatch(master.Email, candidate.Email) {
		return true
	}
	return false
}

func leadByID(leads []model.Lead, id string) model.Lead {
	for i := range leads {
		if leads[i].ID == id {
			return leads[i]
		}
	}
	return model.Lead{ID: id}
}
