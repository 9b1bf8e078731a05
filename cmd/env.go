package main

import (
	"context"
	"os"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leads-cli/internal/leads"
	"github.com/sells-group/leads-cli/internal/merge"
	"github.com/sells-group/leads-cli/internal/source"
	"github.com/sells-group/leads-cli/internal/store"
	"github.com/sells-group/leads-cli/pkg/airtable"
	sfpkg "github.com/sells-group/leads-cli/pkg/salesforce"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "leads.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initSource builds the scan source named by --source. The store source
// reuses the already-open store so merges and scans see the same data.
func initSource(st store.Store, name string) (source.Source, error) {
	switch name {
	case "", "store":
		return source.NewStore(st), nil
	case "airtable":
		if cfg.Airtable.Key == "" || cfg.Airtable.BaseID == "" {
			return nil, eris.New("airtable key and base_id are required (LEADS_AIRTABLE_KEY, LEADS_AIRTABLE_BASE_ID)")
		}
		client := airtable.New(cfg.Airtable.Key, cfg.Airtable.BaseID, cfg.Airtable.Table,
			airtable.WithBaseURL(cfg.Airtable.BaseURL))
		return source.NewAirtable(client), nil
	case "salesforce":
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return source.NewSalesforce(client), nil
	default:
		return nil, eris.Errorf("unsupported source: %s", name)
	}
}

func initSalesforce() (sfpkg.Client, error) {
	if cfg.Salesforce.ClientID == "" {
		return nil, eris.New("salesforce client ID is required (LEADS_SALESFORCE_CLIENT_ID)")
	}

	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.Salesforce.LoginURL,
		Username:       cfg.Salesforce.Username,
		ConsumerKey:    cfg.Salesforce.ClientID,
		ConsumerRSAPem: string(pemData),
	})
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}

	return sfpkg.NewClient(sf), nil
}

func loadPolicy() (merge.Policy, error) {
	if cfg.Merge.PolicyPath == "" {
		return merge.DefaultPolicy(), nil
	}
	return merge.LoadPolicy(cfg.Merge.PolicyPath)
}

// initService wires a store, a scan source and the merge policy into the
// lead service. Caller closes the returned store.
func initService(ctx context.Context, sourceName string) (*leads.Service, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}

	src, err := initSource(st, sourceName)
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	policy, err := loadPolicy()
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}

	return leads.NewService(st, src, policy), st, nil
}
