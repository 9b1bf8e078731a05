package source

import (
	"context"
	"fmt"

	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/pkg/salesforce"
)

// SalesforceSource fetches leads from the Salesforce Lead object.
type SalesforceSource struct {
	client salesforce.Client
}

// NewSalesforce creates a source backed by the given Salesforce client.
func NewSalesforce(client salesforce.Client) *SalesforceSource {
	return &SalesforceSource{client: client}
}

// FetchLeads queries the Lead object via SOQL.
func (s *SalesforceSource) FetchLeads(ctx context.Context, limit int) ([]model.Lead, error) {
	soql := fmt.Sprintf("SELECT Id, Name, Phone, Email, City, Status FROM Lead LIMIT %d", limit)

	var records []salesforce.LeadRecord
	if err := s.client.Query(ctx, soql, &records); err != nil {
		return nil, err
	}

	leads := make([]model.Lead, 0, len(records))
	for _, r := range records {
		leads = append(leads, model.Lead{
			ID:     r.ID,
			Name:   r.Name,
			Phone:  r.Phone,
			Email:  r.Email,
			City:   r.City,
			Status: r.Status,
		})
	}
	return leads, nil
}
