package merge

import (
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/model"
)

// MergeAttachments set-unions the attachment lists of a group, de-duped by
// identity (url, else id). Master attachments come first, then each
// duplicate's in duplicates-array order; relative order within each source
// list is preserved. Malformed entries (anything that is not an attachment
// object) are skipped with a warning, never fatal.
func MergeAttachments(master model.Lead, duplicates []model.Lead) []model.Attachment {
	merged := []model.Attachment{}
	seen := make(map[string]bool)

	appendFrom := func(leadID string, records []any) {
		for _, rec := range records {
			att, ok := model.AttachmentFromRecord(rec)
			if !ok {
				zap.L().Warn("skipping malformed attachment entry",
					zap.String("lead", leadID),
					zap.Any("entry", rec),
				)
				continue
			}
			identity := att.Identity()
			if identity == "" || seen[identity] {
				continue
			}
			seen[identity] = true
			merged = append(merged, att)
		}
	}

	appendFrom(master.ID, master.AttachmentRecords())
	for i := range duplicates {
		appendFrom(duplicates[i].ID, duplicates[i].AttachmentRecords())
	}
	return merged
}

// AttachmentPreview summarizes what an attachment merge would produce, for
// display before the operator commits.
type AttachmentPreview struct {
	MasterCount    int                `json:"master_count"`
	DuplicateCount int                `json:"duplicate_count"`
	TotalCount     int                `json:"total_count"`
	Merged         []model.Attachment `json:"merged"`
}

// PreviewAttachments counts the group's raw attachment entries and the
// de-duplicated result of merging them.
func PreviewAttachments(master model.Lead, duplicates []model.Lead) AttachmentPreview {
	dupCount := 0
	for i := range duplicates {
		dupCount += len(duplicates[i].AttachmentRecords())
	}
	merged := MergeAttachments(master, duplicates)
	return AttachmentPreview{
		MasterCount:    len(master.AttachmentRecords()),
		DuplicateCount: dupCount,
		TotalCount:     len(merged),
		Merged:         merged,
	}
}
