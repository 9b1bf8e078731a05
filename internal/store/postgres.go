package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leads-cli/internal/db"
	"github.com/sells-group/leads-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL DEFAULT '',
	need        TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	assignee    JSONB,
	attachments JSONB,
	orders      JSONB,
	activities  JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_city ON leads(city);
CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgLeadColumns = `id, name, phone, email, city, address, zip, need, notes, status, assignee, attachments, orders, activities, created_at::text`

func (s *PostgresStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedTime == "" {
		lead.CreatedTime = time.Now().UTC().Format(time.RFC3339)
	}

	assignee, attachments, orders, activities, err := marshalLeadJSON(&lead)
	if err != nil {
		return nil, err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, name, phone, email, city, address, zip, need, notes, status, assignee, attachments, orders, activities, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.City, lead.Address, lead.Zip,
		lead.Need, lead.Notes, lead.Status,
		assignee, attachments, orders, activities,
		lead.CreatedTime,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert lead")
	}
	return &lead, nil
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgLeadColumns+` FROM leads WHERE id = $1`, id,
	)
	l, err := scanPgLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("lead not found: %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}
	return l, nil
}

func (s *PostgresStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + pgLeadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		query += fmt.Sprintf(` AND city = $%d`, len(args))
	}
	query += ` ORDER BY created_at ASC, id ASC`

	limit := filter.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(` LIMIT $%d`, len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanPgLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) UpdateLeadFields(ctx context.Context, id string, fields map[string]any) error {
	sets, args, err := buildFieldUpdates(fields, func(i int) string { return fmt.Sprintf("$%d", i) })
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args)),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateAttachments(ctx context.Context, id string, attachments []model.Attachment) error {
	data, err := marshalNullable(attachments, "attachments")
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET attachments = $1 WHERE id = $2`, data, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update attachments %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) DeleteLead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete lead %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("lead not found: %s", id)
	}
	return nil
}

func (s *PostgresStore) BulkInsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	columns := []string{"id", "name", "phone", "email", "city", "address", "zip", "need", "notes", "status", "assignee", "attachments", "orders", "activities", "created_at"}
	rows := make([][]any, 0, len(leads))

	for i := range leads {
		lead := leads[i]
		if lead.ID == "" {
			lead.ID = uuid.New().String()
		}
		if lead.CreatedTime == "" {
			lead.CreatedTime = time.Now().UTC().Format(time.RFC3339)
		}
		assignee, attachments, orders, activities, err := marshalLeadJSON(&lead)
		if err != nil {
			return 0, err
		}
		rows = append(rows, []any{
			lead.ID, lead.Name, lead.Phone, lead.Email, lead.City, lead.Address, lead.Zip,
			lead.Need, lead.Notes, lead.Status,
			assignee, attachments, orders, activities,
			lead.CreatedTime,
		})
	}

	n, err := db.CopyFrom(ctx, s.pool, "leads", columns, rows)
	return int(n), err
}

func scanPgLead(row pgx.Row) (*model.Lead, error) {
	var l model.Lead
	var assignee, attachments, orders, activities *string

	err := row.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.City, &l.Address, &l.Zip,
		&l.Need, &l.Notes, &l.Status, &assignee, &attachments, &orders, &activities, &l.CreatedTime)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		src  *string
		dst  any
		what string
	}{
		{assignee, &l.Assignee, "assignee"},
		{attachments, &l.Attachments, "attachments"},
		{orders, &l.Orders, "orders"},
		{activities, &l.Activities, "activities"},
	} {
		if f.src == nil || *f.src == "" {
			continue
		}
		if err := unmarshalInto(sql.NullString{String: *f.src, Valid: true}, f.dst, f.what); err != nil {
			return nil, err
		}
	}
	return &l, nil
}
