package dedup

import (
	"strings"

	"github.com/sells-group/leads-cli/internal/model"
)

// Fuzzy-mode tuning. The gate keeps clearly different names out before
// the phone check; a phone agreement lifts the pair to near-certainty.
const (
	fuzzyNameGate   = 0.7
	phoneBoostFloor = 0.95
	noPhonePenalty  = 0.9
)

// LevenshteinSimilarity returns a similarity in [0,1] between two strings
// (1 = identical after lowercasing and trimming). Computed as
// 1 - editDistance/maxLen.
func LevenshteinSimilarity(s1, s2 string) float64 {
	a := strings.ToLower(strings.TrimSpace(s1))
	b := strings.ToLower(strings.TrimSpace(s2))

	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for i := 0; i <= len(ra); i++ {
		prev[i] = i
	}

	for j := 1; j <= len(rb); j++ {
		curr[0] = j
		for i := 1; i <= len(ra); i++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[i] = min(curr[i-1]+1, prev[i]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}

	distance := prev[len(ra)]
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	return 1 - float64(distance)/float64(maxLen)
}

// DetectFuzzy partitions leads into duplicate groups using Levenshtein
// name similarity instead of the strict prefix matcher. Unlike the strict
// scan, group similarity here is a real computed score (the max over the
// group's pairs).
//
// With exactOnly set, only pairs whose normalized names AND phones are
// identical group, at similarity 1.0.
func DetectFuzzy(leads []model.Lead, threshold float64, exactOnly bool) []DuplicateGroup {
	var groups []DuplicateGroup
	processed := make(map[string]bool, len(leads))

	for i := range leads {
		master := &leads[i]
		if processed[master.ID] {
			continue
		}

		masterName := NormalizeText(master.Name)
		masterPhone := normalizeLastTen(master.Phone)

		type scored struct {
			id  string
			sim float64
		}
		var duplicates []scored

		for j := i + 1; j < len(leads); j++ {
			candidate := &leads[j]
			if processed[candidate.ID] {
				continue
			}

			var similarity float64
			candidateName := NormalizeText(candidate.Name)
			candidatePhone := normalizeLastTen(candidate.Phone)

			if exactOnly {
				if masterName == candidateName && masterPhone != "" && masterPhone == candidatePhone {
					similarity = 1.0
				}
			} else {
				nameSim := LevenshteinSimilarity(masterName, candidateName)
				if nameSim > fuzzyNameGate {
					if masterPhone != "" && masterPhone == candidatePhone {
						similarity = nameSim
						if similarity < phoneBoostFloor {
							similarity = phoneBoostFloor
						}
					} else {
						similarity = nameSim * noPhonePenalty
					}
				}
			}

			if similarity >= threshold && similarity > 0 {
				duplicates = append(duplicates, scored{id: candidate.ID, sim: similarity})
				processed[candidate.ID] = true
			}
		}

		if len(duplicates) == 0 {
			continue
		}

		group := DuplicateGroup{MasterID: master.ID}
		for _, d := range duplicates {
			group.DuplicateIDs = append(group.DuplicateIDs, d.id)
			if d.sim > group.Similarity {
				group.Similarity = d.sim
			}
		}
		groups = append(groups, group)
		processed[master.ID] = true
	}

	return groups
}

// DuplicatesForLead returns the other members of the fuzzy group that
// contains leadID, or nil when the lead is unknown or ungrouped.
func DuplicatesForLead(leadID string, leads []model.Lead, threshold float64) []model.Lead {
	found := false
	for i := range leads {
		if leads[i].ID == leadID {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	for _, group := range DetectFuzzy(leads, threshold, false) {
		ids := groupMemberIDs(group, leadID)
		if ids == nil {
			continue
		}
		var out []model.Lead
		for _, id := range ids {
			for i := range leads {
				if leads[i].ID == id {
					out = append(out, leads[i])
					break
				}
			}
		}
		return out
	}
	return nil
}

// groupMemberIDs returns the ids of the group members other than leadID,
// or nil when leadID is not in the group.
func groupMemberIDs(group DuplicateGroup, leadID string) []string {
	if group.MasterID == leadID {
		return group.DuplicateIDs
	}
	for _, id := range group.DuplicateIDs {
		if id != leadID {
			continue
		}
		ids := []string{group.MasterID}
		for _, other := range group.DuplicateIDs {
			if other != leadID {
				ids = append(ids, other)
			}
		}
		return ids
	}
	return nil
}
