package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leads-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteCreateAndGetLead(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	created, err := s.CreateLead(ctx, model.Lead{
		Name:     "Mario Rossi",
		Phone:    "3331234567",
		Email:    "mario@example.com",
		City:     "Roma",
		Status:   "Nuovo",
		Assignee: model.AssigneeList{"anna"},
		Attachments: []model.Attachment{
			{ID: "att1", URL: "https://x/1", Filename: "contract.pdf"},
		},
		Orders: []string{"o1", "o2"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEmpty(t, created.CreatedTime)

	got, err := s.GetLead(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", got.Name)
	assert.Equal(t, "Nuovo", got.Status)
	assert.Equal(t, model.AssigneeList{"anna"}, got.Assignee)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "https://x/1", got.Attachments[0].URL)
	assert.Equal(t, []string{"o1", "o2"}, got.Orders)
}

func TestSQLiteCreateLead_KeepsExplicitID(t *testing.T) {
	s := newTestSQLite(t)

	created, err := s.CreateLead(context.Background(), model.Lead{ID: "fixed-id", Name: "X"})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", created.ID)
}

func TestSQLiteGetLead_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetLead(context.Background(), "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteListLeads_Filters(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	seed := []model.Lead{
		{ID: "a", Name: "Uno", Status: "Nuovo", City: "Roma"},
		{ID: "b", Name: "Due", Status: "Contattato", City: "Roma"},
		{ID: "c", Name: "Tre", Status: "Nuovo", City: "Milano"},
	}
	for _, l := range seed {
		_, err := s.CreateLead(ctx, l)
		require.NoError(t, err)
	}

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	nuovo, err := s.ListLeads(ctx, LeadFilter{Status: "Nuovo"})
	require.NoError(t, err)
	assert.Len(t, nuovo, 2)

	roma, err := s.ListLeads(ctx, LeadFilter{City: "Roma"})
	require.NoError(t, err)
	assert.Len(t, roma, 2)

	both, err := s.ListLeads(ctx, LeadFilter{Status: "Nuovo", City: "Roma"})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "a", both[0].ID)
}

func TestSQLiteListLeads_LimitAndOffset(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.CreateLead(ctx, model.Lead{ID: id, Name: id})
		require.NoError(t, err)
	}

	page, err := s.ListLeads(ctx, LeadFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := s.ListLeads(ctx, LeadFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func TestSQLiteUpdateLeadFields(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.CreateLead(ctx, model.Lead{ID: "a", Name: "Mario Rossi"})
	require.NoError(t, err)

	err = s.UpdateLeadFields(ctx, "a", map[string]any{
		"email":    "mario@example.com",
		"status":   "Contattato",
		"orders":   []string{"o1"},
		"assignee": []string{"anna"},
		"unknown":  "ignored",
	})
	require.NoError(t, err)

	got, err := s.GetLead(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "mario@example.com", got.Email)
	assert.Equal(t, "Contattato", got.Status)
	assert.Equal(t, []string{"o1"}, got.Orders)
	assert.Equal(t, model.AssigneeList{"anna"}, got.Assignee)
	// Name untouched
	assert.Equal(t, "Mario Rossi", got.Name)
}

func TestSQLiteUpdateLeadFields_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	err := s.UpdateLeadFields(context.Background(), "missing", map[string]any{"email": "x@y.it"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteUpdateLeadFields_Empty(t *testing.T) {
	s := newTestSQLite(t)

	// Nothing to update is a no-op, even for an unknown id
	assert.NoError(t, s.UpdateLeadFields(context.Background(), "missing", nil))
	assert.NoError(t, s.UpdateLeadFields(context.Background(), "missing", map[string]any{"unknown": 1}))
}

func TestSQLiteUpdateAttachments(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.CreateLead(ctx, model.Lead{ID: "a", Name: "Mario"})
	require.NoError(t, err)

	atts := []model.Attachment{{ID: "att1", URL: "https://x/1"}}
	require.NoError(t, s.UpdateAttachments(ctx, "a", atts))

	got, err := s.GetLead(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "att1", got.Attachments[0].ID)

	assert.Error(t, s.UpdateAttachments(ctx, "missing", atts))
}

func TestSQLiteDeleteLead(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.CreateLead(ctx, model.Lead{ID: "a", Name: "Mario"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteLead(ctx, "a"))
	_, err = s.GetLead(ctx, "a")
	assert.Error(t, err)

	err = s.DeleteLead(ctx, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteBulkInsertLeads(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	n, err := s.BulkInsertLeads(ctx, []model.Lead{
		{Name: "Uno", Phone: "111"},
		{Name: "Due", Phone: "222"},
		{Name: "Tre", Phone: "333"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := s.ListLeads(ctx, LeadFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, l := range all {
		assert.NotEmpty(t, l.ID)
		assert.NotEmpty(t, l.CreatedTime)
	}
}

func TestSQLiteBulkInsertLeads_Empty(t *testing.T) {
	s := newTestSQLite(t)

	n, err := s.BulkInsertLeads(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
