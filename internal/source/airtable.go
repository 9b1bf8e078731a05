package source

import (
	"context"

	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/pkg/airtable"
)

// AirtableSource fetches leads from an Airtable table.
type AirtableSource struct {
	client airtable.Client
}

// NewAirtable creates a source backed by the given Airtable client.
func NewAirtable(client airtable.Client) *AirtableSource {
	return &AirtableSource{client: client}
}

// FetchLeads lists the table and converts each record. Records keep their
// nested fields map and also get the well-known keys lifted into the flat
// struct fields, matching what the engine's comparators read.
func (s *AirtableSource) FetchLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	records, err := s.client.ListRecords(ctx, limit)
	if err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(records))
	for _, rec := range records {
		leads = append(leads, LeadFromRecord(rec))
	}
	return leads, nil
}

// LeadFromRecord converts one Airtable record into a Lead.
func LeadFromRecord(rec airtable.Record) model.Lead {
	l := model.Lead{
		ID:          rec.ID,
		CreatedTime: rec.CreatedTime,
		Fields:      rec.Fields,
	}
	l.Name = l.TextValue(model.FieldName)
	l.Phone = l.TextValue(model.FieldPhone)
	l.Email = l.TextValue(model.FieldEmail)
	l.City = l.TextValue(model.FieldCity)
	return l
}
