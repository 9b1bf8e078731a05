package leads

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leads-cli/internal/dedup"
	"github.com/sells-group/leads-cli/internal/merge"
	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/internal/store"
)

// fakeStore is an in-memory Store that records merge writes.
type fakeStore struct {
	leads map[string]model.Lead

	updatedFields      map[string]any
	updatedAttachments []model.Attachment
	deleted            []string
}

func newFakeStore(leads ...model.Lead) *fakeStore {
	s := &fakeStore{leads: make(map[string]model.Lead)}
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return s
}

func (s *fakeStore) CreateLead(_ context.Context, lead model.Lead) (*model.Lead, error) {
	s.leads[lead.ID] = lead
	return &lead, nil
}

func (s *fakeStore) GetLead(_ context.Context, id string) (*model.Lead, error) {
	l, ok := s.leads[id]
	if !ok {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	return &l, nil
}

func (s *fakeStore) ListLeads(_ context.Context, _ store.LeadFilter) ([]model.Lead, error) {
	var out []model.Lead
	for _, l := range s.leads {
		out = append(out, l)
	}
	return out, nil
}

func (s *fakeStore) UpdateLeadFields(_ context.Context, id string, fields map[string]any) error {
	if _, ok := s.leads[id]; !ok {
		return eris.Errorf("lead not found: %s", id)
	}
	s.updatedFields = fields
	return nil
}

func (s *fakeStore) UpdateAttachments(_ context.Context, id string, attachments []model.Attachment) error {
	if _, ok := s.leads[id]; !ok {
		return eris.Errorf("lead not found: %s", id)
	}
	s.updatedAttachments = attachments
	return nil
}

func (s *fakeStore) DeleteLead(_ context.Context, id string) error {
	if _, ok := s.leads[id]; !ok {
		return eris.Errorf("lead not found: %s", id)
	}
	delete(s.leads, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *fakeStore) BulkInsertLeads(_ context.Context, leads []model.Lead) (int, error) {
	for _, l := range leads {
		s.leads[l.ID] = l
	}
	return len(leads), nil
}

func (s *fakeStore) Migrate(context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

// fakeSource serves a fixed snapshot and records the requested limit.
type fakeSource struct {
	leads []model.Lead
	limit int
	err   error
}

func (s *fakeSource) FetchLeads(_ context.Context, limit int) ([]model.Lead, error) {
	s.limit = limit
	if s.err != nil {
		return nil, s.err
	}
	if limit < len(s.leads) {
		return s.leads[:limit], nil
	}
	return s.leads, nil
}

func TestScanDuplicates_Strict(t *testing.T) {
	src := &fakeSource{leads: []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
		{ID: "b", Name: "Mario Rossi", Phone: "333 123 4567"},
		{ID: "c", Name: "Anna Bianchi", Phone: "3479998888"},
	}}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	set, err := svc.ScanDuplicates(context.Background(), ScanOptions{Mode: ModeStrict, Threshold: 0.85})
	require.NoError(t, err)

	require.Len(t, set.Groups, 1)
	assert.Equal(t, "a", set.Groups[0].MasterID)
	assert.Equal(t, []string{"b"}, set.Groups[0].DuplicateIDs)
	assert.Contains(t, set.LeadsByID, "a")
	assert.Contains(t, set.LeadsByID, "b")
	assert.NotContains(t, set.LeadsByID, "c")
}

func TestScanDuplicates_Fuzzy(t *testing.T) {
	src := &fakeSource{leads: []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
		{ID: "b", Name: "Maria Rossi", Phone: "3331234567"},
		{ID: "c", Name: "Anna Bianchi", Phone: "3479998888"},
	}}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	set, err := svc.ScanDuplicates(context.Background(), ScanOptions{Mode: ModeFuzzy, Threshold: 0.85})
	require.NoError(t, err)

	require.Len(t, set.Groups, 1)
	assert.Equal(t, "a", set.Groups[0].MasterID)
	assert.Equal(t, []string{"b"}, set.Groups[0].DuplicateIDs)
	assert.GreaterOrEqual(t, set.Groups[0].Similarity, 0.95)
	assert.NotContains(t, set.LeadsByID, "c")
}

func TestScanDuplicates_ExactMode(t *testing.T) {
	src := &fakeSource{leads: []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
		{ID: "b", Name: "Maria Rossi", Phone: "3331234567"},
	}}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	set, err := svc.ScanDuplicates(context.Background(), ScanOptions{Mode: ModeExact, Threshold: 0.85})
	require.NoError(t, err)
	assert.Empty(t, set.Groups)
}

func TestScanDuplicates_LimitClamped(t *testing.T) {
	src := &fakeSource{}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	_, err := svc.ScanDuplicates(context.Background(), ScanOptions{MaxLeads: 0})
	require.NoError(t, err)
	assert.Equal(t, store.MaxListLimit, src.limit)

	_, err = svc.ScanDuplicates(context.Background(), ScanOptions{MaxLeads: 100})
	require.NoError(t, err)
	assert.Equal(t, 100, src.limit)

	_, err = svc.ScanDuplicates(context.Background(), ScanOptions{MaxLeads: store.MaxListLimit + 1})
	require.NoError(t, err)
	assert.Equal(t, store.MaxListLimit, src.limit)
}

func TestScanDuplicates_SourceError(t *testing.T) {
	src := &fakeSource{err: eris.New("boom")}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	_, err := svc.ScanDuplicates(context.Background(), ScanOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch for scan")
}

func TestCheckDuplicates(t *testing.T) {
	src := &fakeSource{leads: []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
		{ID: "b", Name: "Anna Bianchi", Phone: "3479998888"},
	}}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	matches, err := svc.CheckDuplicates(context.Background(), dedup.Query{Name: "Mario Rossi"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].LeadID)
}

func TestDuplicatesForLead(t *testing.T) {
	src := &fakeSource{leads: []model.Lead{
		{ID: "a", Name: "Mario Rossi", Phone: "3331234567"},
		{ID: "b", Name: "Mario Rossi", Phone: "3331234567"},
	}}
	svc := NewService(newFakeStore(), src, merge.DefaultPolicy())

	dups, err := svc.DuplicatesForLead(context.Background(), "b", 0.85)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, "a", dups[0].ID)
}

func TestMerge(t *testing.T) {
	st := newFakeStore(
		model.Lead{ID: "m", Name: "Mario Rossi", Status: "Nuovo", Attachments: []model.Attachment{{ID: "a1", URL: "https://x/1"}}},
		model.Lead{ID: "d1", Name: "Mario Rossi", Email: "mario@example.com", Status: "Contattato"},
		model.Lead{ID: "d2", Name: "Mario Rossi", Notes: "richiamare"},
	)
	svc := NewService(st, &fakeSource{}, merge.DefaultPolicy())

	res, err := svc.Merge(context.Background(), MergeRequest{
		MasterID:     "m",
		DuplicateIDs: []string{"d1", "d2"},
		Choices:      merge.Choices{Status: "Contattato"},
	})
	require.NoError(t, err)

	assert.Equal(t, "m", res.MasterID)
	assert.Equal(t, []string{"d1", "d2"}, res.MergedIDs)
	assert.Equal(t, 1, res.Attachments)
	assert.True(t, res.Conflicts.Status)
	assert.False(t, res.Conflicts.Assignee)

	assert.Equal(t, "mario@example.com", st.updatedFields["email"])
	assert.Equal(t, "richiamare", st.updatedFields["notes"])
	assert.Equal(t, "Contattato", st.updatedFields["status"])
	require.Len(t, st.updatedAttachments, 1)
	assert.Equal(t, []string{"d1", "d2"}, st.deleted)
}

func TestMerge_MissingDuplicateSkipped(t *testing.T) {
	st := newFakeStore(
		model.Lead{ID: "m", Name: "Mario Rossi"},
		model.Lead{ID: "d1", Name: "Mario Rossi", City: "Roma"},
	)
	svc := NewService(st, &fakeSource{}, merge.DefaultPolicy())

	res, err := svc.Merge(context.Background(), MergeRequest{
		MasterID:     "m",
		DuplicateIDs: []string{"gone", "d1"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"d1"}, res.MergedIDs)
	assert.Equal(t, "Roma", st.updatedFields["city"])
}

func TestMerge_AllDuplicatesMissing(t *testing.T) {
	st := newFakeStore(model.Lead{ID: "m", Name: "Mario Rossi"})
	svc := NewService(st, &fakeSource{}, merge.DefaultPolicy())

	_, err := svc.Merge(context.Background(), MergeRequest{
		MasterID:     "m",
		DuplicateIDs: []string{"gone-1", "gone-2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no duplicate records found")
}

func TestMerge_MissingMaster(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeSource{}, merge.DefaultPolicy())

	_, err := svc.Merge(context.Background(), MergeRequest{
		MasterID:     "gone",
		DuplicateIDs: []string{"d1"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch master")
}

func TestMerge_EmptyRequest(t *testing.T) {
	svc := NewService(newFakeStore(), &fakeSource{}, merge.DefaultPolicy())

	_, err := svc.Merge(context.Background(), MergeRequest{})
	require.Error(t, err)

	_, err = svc.Merge(context.Background(), MergeRequest{MasterID: "m"})
	require.Error(t, err)
}

func TestMerge_InvalidChoice(t *testing.T) {
	st := newFakeStore(
		model.Lead{ID: "m", Name: "Mario Rossi", Status: "Nuovo"},
		model.Lead{ID: "d1", Name: "Mario Rossi", Status: "Contattato"},
	)
	svc := NewService(st, &fakeSource{}, merge.DefaultPolicy())

	_, err := svc.Merge(context.Background(), MergeRequest{
		MasterID:     "m",
		DuplicateIDs: []string{"d1"},
		Choices:      merge.Choices{Status: "Inventato"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid merge choice")
	assert.Empty(t, st.deleted)
	assert.Nil(t, st.updatedFields)
}

func TestPreviewMerge(t *testing.T) {
	st := newFakeStore(
		model.Lead{ID: "m", Name: "Mario Rossi", Status: "Nuovo", Assignee: model.AssigneeList{"anna"},
			Attachments: []model.Attachment{{ID: "a1", URL: "https://x/1"}}},
		model.Lead{ID: "d1", Name: "Mario Rossi", Status: "Contattato", Assignee: model.AssigneeList{"marco"},
			Attachments: []model.Attachment{{ID: "a2", URL: "https://x/1"}, {ID: "a3", URL: "https://x/3"}}},
	)
	svc := NewService(st, &fakeSource{}, merge.DefaultPolicy())

	p, err := svc.PreviewMerge(context.Background(), "m", []string{"d1"})
	require.NoError(t, err)

	assert.Equal(t, "m", p.MasterID)
	assert.True(t, p.StatusConflict)
	assert.True(t, p.AssigneeConflict)
	assert.Equal(t, []string{"Nuovo", "Contattato"}, p.States)
	assert.Equal(t, []string{"anna", "marco"}, p.Assignees)
	assert.Equal(t, 2, p.Attachments.TotalCount)
}

func TestPreviewMerge_NoDuplicates(t *testing.T) {
	st := newFakeStore(model.Lead{ID: "m", Name: "Mario Rossi"})
	svc := NewService(st, &fakeSource{}, merge.DefaultPolicy())

	_, err := svc.PreviewMerge(context.Background(), "m", []string{"gone"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no duplicate records found")
}
