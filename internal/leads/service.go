// Package leads orchestrates the dedup engine, the merge planner and the
// persistence layer into the operations the CLI and the HTTP API expose.
package leads

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leads-cli/internal/dedup"
	"github.com/sells-group/leads-cli/internal/merge"
	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/internal/source"
	"github.com/sells-group/leads-cli/internal/store"
)

// Detection modes for duplicate scans.
const (
	ModeStrict = "strict"
	ModeFuzzy  = "fuzzy"
	ModeExact  = "exact"
)

// ScanOptions configures a duplicate scan.
type ScanOptions struct {
	Mode      string
	Threshold float64
	MaxLeads  int
}

// Service wires the engine to a record source and a store.
type Service struct {
	store  store.Store
	source source.Source
	policy merge.Policy
	log    *zap.Logger
}

// NewService creates a Service. The source supplies scan snapshots; the
// store is where merges commit. They usually point at the same backend
// but don't have to (e.g. scanning Airtable while merging via its API is
// out of scope for the store-backed committer).
func NewService(st store.Store, src source.Source, policy merge.Policy) *Service {
	return &Service{
		store:  st,
		source: src,
		policy: policy,
		log:    zap.L().With(zap.String("component", "leads_service")),
	}
}

// ScanDuplicates fetches a bounded snapshot and partitions it into
// duplicate groups using the requested mode.
func (s *Service) ScanDuplicates(ctx context.Context, opts ScanOptions) (dedup.GroupSet, error) {
	limit := opts.MaxLeads
	if limit <= 0 || limit > store.MaxListLimit {
		limit = store.MaxListLimit
	}

	records, err := s.source.FetchLeads(ctx, limit)
	if err != nil {
		return dedup.GroupSet{}, eris.Wrap(err, "leads: fetch for scan")
	}
	s.log.Info("scanning for duplicates",
		zap.Int("leads", len(records)),
		zap.String("mode", opts.Mode),
		zap.Float64("threshold", opts.Threshold),
	)

	switch opts.Mode {
	case ModeFuzzy, ModeExact:
		groups := dedup.DetectFuzzy(records, opts.Threshold, opts.Mode == ModeExact)
		set := dedup.GroupSet{Groups: groups, LeadsByID: make(map[string]model.Lead)}
		index := make(map[string]model.Lead, len(records))
		for i := range records {
			index[records[i].ID] = records[i]
		}
		for _, g := range groups {
			set.LeadsByID[g.MasterID] = index[g.MasterID]
			for _, id := range g.DuplicateIDs {
				set.LeadsByID[id] = index[id]
			}
		}
		return set, nil
	default:
		return dedup.FindDuplicateGroups(records, opts.Threshold), nil
	}
}

// CheckDuplicates ranks existing leads that collide with a candidate
// name/phone, for warning the operator before a create.
func (s *Service) CheckDuplicates(ctx context.Context, q dedup.Query) ([]dedup.MatchResult, error) {
	records, err := s.source.FetchLeads(ctx, store.MaxListLimit)
	if err != nil {
		return nil, eris.Wrap(err, "leads: fetch for check")
	}
	return dedup.FindMatches(records, q), nil
}

// DuplicatesForLead returns the other members of the group containing the
// given lead, if any.
func (s *Service) DuplicatesForLead(ctx context.Context, leadID string, threshold float64) ([]model.Lead, error) {
	records, err := s.source.FetchLeads(ctx, store.MaxListLimit)
	if err != nil {
		return nil, eris.Wrap(err, "leads: fetch for lookup")
	}
	return dedup.DuplicatesForLead(leadID, records, threshold), nil
}

// MergeRequest describes one merge to execute.
type MergeRequest struct {
	MasterID     string        `json:"master_id"`
	DuplicateIDs []string      `json:"duplicate_ids"`
	Choices      merge.Choices `json:"choices"`
}

// MergeResult reports what a committed merge did.
type MergeResult struct {
	MasterID    string   `json:"master_id"`
	MergedIDs   []string `json:"merged_ids"`
	Attachments int      `json:"attachments"`
	Conflicts   struct {
		Status   bool `json:"status"`
		Assignee bool `json:"assignee"`
	} `json:"conflicts"`
}

// Merge collapses a duplicate group into its master: fetches the records,
// validates the operator's choices, consolidates fields and attachments,
// writes the master and deletes the duplicates.
//
// Duplicates that no longer exist are skipped; the merge fails only when
// none of them resolve. Fetches run concurrently, the commit is
// sequential so a failure leaves an inspectable partial state rather than
// interleaved writes.
func (s *Service) Merge(ctx context.Context, req MergeRequest) (*MergeResult, error) {
	if req.MasterID == "" || len(req.DuplicateIDs) == 0 {
		return nil, eris.New("leads: merge requires master_id and duplicate_ids")
	}

	master, err := s.store.GetLead(ctx, req.MasterID)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: fetch master %s", req.MasterID)
	}

	duplicates, err := s.fetchDuplicates(ctx, req.DuplicateIDs)
	if err != nil {
		return nil, err
	}
	if len(duplicates) == 0 {
		return nil, eris.New("leads: no duplicate records found")
	}

	plan, validation := merge.BuildPlan(*master, duplicates, req.Choices, s.policy)
	if !validation.Valid {
		return nil, eris.Errorf("leads: invalid merge choice: %s", validation.Error)
	}

	if err := s.store.UpdateLeadFields(ctx, plan.MasterID, plan.Fields); err != nil {
		return nil, eris.Wrapf(err, "leads: update master %s", plan.MasterID)
	}
	if err := s.store.UpdateAttachments(ctx, plan.MasterID, plan.Attachments); err != nil {
		return nil, eris.Wrapf(err, "leads: update attachments %s", plan.MasterID)
	}

	for _, id := range plan.DeleteIDs {
		if err := s.store.DeleteLead(ctx, id); err != nil {
			return nil, eris.Wrapf(err, "leads: delete duplicate %s", id)
		}
		s.log.Info("merged duplicate deleted",
			zap.String("master", plan.MasterID),
			zap.String("duplicate", id),
		)
	}

	result := &MergeResult{
		MasterID:    plan.MasterID,
		MergedIDs:   plan.DeleteIDs,
		Attachments: len(plan.Attachments),
	}
	result.Conflicts.Status = merge.HasStateConflict(*master, duplicates)
	result.Conflicts.Assignee = merge.HasAssigneeConflict(*master, duplicates)
	return result, nil
}

// fetchDuplicates loads duplicate records concurrently, preserving the
// requested order. Missing records are logged and skipped.
func (s *Service) fetchDuplicates(ctx context.Context, ids []string) ([]model.Lead, error) {
	// Each goroutine writes its own index, so no lock is needed.
	found := make([]*model.Lead, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, id := range ids {
		g.Go(func() error {
			lead, err := s.store.GetLead(gctx, id)
			if err != nil {
				s.log.Warn("duplicate record not found, skipping",
					zap.String("id", id),
					zap.Error(err),
				)
				return nil
			}
			found[i] = lead
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "leads: fetch duplicates")
	}

	var duplicates []model.Lead
	for _, lead := range found {
		if lead != nil {
			duplicates = append(duplicates, *lead)
		}
	}
	return duplicates, nil
}

// Preview reports the group's conflicts and attachment outcome without
// committing anything, for the confirmation step.
type Preview struct {
	MasterID         string                  `json:"master_id"`
	StatusConflict   bool                    `json:"status_conflict"`
	AssigneeConflict bool                    `json:"assignee_conflict"`
	States           []string                `json:"states"`
	Assignees        []string                `json:"assignees"`
	Attachments      merge.AttachmentPreview `json:"attachments"`
}

// PreviewMerge resolves the group and reports what the operator needs to
// arbitrate.
func (s *Service) PreviewMerge(ctx context.Context, masterID string, duplicateIDs []string) (*Preview, error) {
	master, err := s.store.GetLead(ctx, masterID)
	if err != nil {
		return nil, eris.Wrapf(err, "leads: fetch master %s", masterID)
	}
	duplicates, err := s.fetchDuplicates(ctx, duplicateIDs)
	if err != nil {
		return nil, err
	}
	if len(duplicates) == 0 {
		return nil, eris.New("leads: no duplicate records found")
	}

	return &Preview{
		MasterID:         master.ID,
		StatusConflict:   merge.HasStateConflict(*master, duplicates),
		AssigneeConflict: merge.HasAssigneeConflict(*master, duplicates),
		States:           merge.UniqueStates(*master, duplicates),
		Assignees:        merge.UniqueAssignees(*master, duplicates),
		Attachments:      merge.PreviewAttachments(*master, duplicates),
	}, nil
}
