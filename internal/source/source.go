// Package source adapts external record systems to the lead model so the
// dedup engine can scan them read-only.
package source

import (
	"context"

	"github.com/sells-group/leads-cli/internal/model"
)

// Source supplies a bounded snapshot of lead records.
type Source interface {
	FetchLeads(ctx context.Context, limit int) ([]model.Lead, error)
}
