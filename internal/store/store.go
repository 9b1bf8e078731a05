package store

import (
	"context"

	"github.com/sells-group/leads-cli/internal/model"
)

// MaxListLimit caps a single lead listing. The dedup scan is O(n²) over
// whatever the store returns, so the bound lives here rather than in the
// engine.
const MaxListLimit = 5000

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Status string `json:"status,omitempty"`
	City   string `json:"city,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for lead records.
type Store interface {
	CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	UpdateLeadFields(ctx context.Context, id string, fields map[string]any) error
	UpdateAttachments(ctx context.Context, id string, attachments []model.Attachment) error
	DeleteLead(ctx context.Context, id string) error
	BulkInsertLeads(ctx context.Context, leads []model.Lead) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
