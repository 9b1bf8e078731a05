package source

import (
	"context"

	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/internal/store"
)

// StoreSource reads leads from the local store.
type StoreSource struct {
	store store.Store
}

// NewStore creates a source backed by the lead store.
func NewStore(s store.Store) *StoreSource {
	return &StoreSource{store: s}
}

func (s *StoreSource) FetchLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	return s.store.ListLeads(ctx, store.LeadFilter{Limit: limit})
}
