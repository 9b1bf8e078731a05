package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leads-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL DEFAULT '',
	phone       TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL DEFAULT '',
	city        TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	zip         TEXT NOT NULL DEFAULT '',
	need        TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	assignee    TEXT,
	attachments TEXT,
	orders      TEXT,
	activities  TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status);
CREATE INDEX IF NOT EXISTS idx_leads_city ON leads(city);
CREATE INDEX IF NOT EXISTS idx_leads_phone ON leads(phone);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const leadColumns = `id, name, phone, email, city, address, zip, need, notes, status, assignee, attachments, orders, activities, created_at`

func (s *SQLiteStore) CreateLead(ctx context.Context, lead model.Lead) (*model.Lead, error) {
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

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Phone, lead.Email, lead.City, lead.Address, lead.Zip,
		lead.Need, lead.Notes, lead.Status, assignee, attachments, orders, activities, lead.CreatedTime,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert lead")
	}
	return &lead, nil
}

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id,
	)
	return scanLead(row)
}

func (s *SQLiteStore) ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.City != "" {
		query += ` AND city = ?`
		args = append(args, filter.City)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	limit := filter.Limit
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, *l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) UpdateLeadFields(ctx context.Context, id string, fields map[string]any) error {
	sets, args, err := buildFieldUpdates(fields, func(int) string { return "?" })
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE leads SET %s WHERE id = ?`, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update lead %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) UpdateAttachments(ctx context.Context, id string, attachments []model.Attachment) error {
	data, err := json.Marshal(attachments)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal attachments")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET attachments = ? WHERE id = ?`, string(data), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update attachments %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) DeleteLead(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete lead %s", id)
	}
	return checkRowsAffected(res, "lead", id)
}

func (s *SQLiteStore) BulkInsertLeads(ctx context.Context, leads []model.Lead) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin bulk insert")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare bulk insert")
	}
	defer stmt.Close()

	inserted := 0
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
			return inserted, err
		}
		if _, err := stmt.ExecContext(ctx,
			lead.ID, lead.Name, lead.Phone, lead.Email, lead.City, lead.Address, lead.Zip,
			lead.Need, lead.Notes, lead.Status, assignee, attachments, orders, activities, lead.CreatedTime,
		); err != nil {
			return inserted, eris.Wrapf(err, "sqlite: bulk insert lead %s", lead.ID)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return inserted, eris.Wrap(err, "sqlite: commit bulk insert")
	}
	return inserted, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanLead(row scannable) (*model.Lead, error) {
	var l model.Lead
	var assignee, attachments, orders, activities sql.NullString

	err := row.Scan(&l.ID, &l.Name, &l.Phone, &l.Email, &l.City, &l.Address, &l.Zip,
		&l.Need, &l.Notes, &l.Status, &assignee, &attachments, &orders, &activities, &l.CreatedTime)
	if err == sql.ErrNoRows {
		return nil, eris.New("lead not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan lead")
	}

	if err := unmarshalInto(assignee, &l.Assignee, "assignee"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(attachments, &l.Attachments, "attachments"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(orders, &l.Orders, "orders"); err != nil {
		return nil, err
	}
	if err := unmarshalInto(activities, &l.Activities, "activities"); err != nil {
		return nil, err
	}
	return &l, nil
}

func unmarshalInto(src sql.NullString, dst any, what string) error {
	if !src.Valid || src.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(src.String), dst); err != nil {
		return eris.Wrapf(err, "store: unmarshal %s", what)
	}
	return nil
}

func marshalLeadJSON(lead *model.Lead) (assignee, attachments, orders, activities sql.NullString, err error) {
	if assignee, err = marshalNullable(lead.Assignee, "assignee"); err != nil {
		return
	}
	if attachments, err = marshalNullable(lead.Attachments, "attachments"); err != nil {
		return
	}
	if orders, err = marshalNullable(lead.Orders, "orders"); err != nil {
		return
	}
	activities, err = marshalNullable(lead.Activities, "activities")
	return
}

func marshalNullable(v any, what string) (sql.NullString, error) {
	switch t := v.(type) {
	case model.AssigneeList:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []model.Attachment:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(t) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, eris.Wrapf(err, "store: marshal %s", what)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// fieldColumns whitelists the merge-plan field keys that map to lead
// columns. JSON-typed columns marshal their values before binding.
var fieldColumns = map[string]struct {
	column string
	isJSON bool
}{
	model.FieldName:        {column: "name"},
	model.FieldPhone:       {column: "phone"},
	model.FieldEmail:       {column: "email"},
	model.FieldCity:        {column: "city"},
	model.FieldAddress:     {column: "address"},
	model.FieldZip:         {column: "zip"},
	model.FieldNeed:        {column: "need"},
	model.FieldNotes:       {column: "notes"},
	model.FieldStatus:      {column: "status"},
	model.FieldAssignee:    {column: "assignee", isJSON: true},
	model.FieldAttachments: {column: "attachments", isJSON: true},
	model.FieldOrders:      {column: "orders", isJSON: true},
	model.FieldActivities:  {column: "activities", isJSON: true},
}

// buildFieldUpdates turns a merge-plan field map into SET clauses.
// Unknown keys are skipped: the plan sanitizer already dropped forbidden
// fields, and anything else has no column to land in. placeholder renders
// the bind marker for the i-th argument (1-based).
func buildFieldUpdates(fields map[string]any, placeholder func(i int) string) (sets []string, args []any, err error) {
	// Deterministic clause order keeps queries stable for tests and logs.
	for _, key := range sortedKeys(fields) {
		col, ok := fieldColumns[key]
		if !ok {
			continue
		}
		value := fields[key]
		if col.isJSON {
			data, merr := json.Marshal(value)
			if merr != nil {
				return nil, nil, eris.Wrapf(merr, "store: marshal field %s", key)
			}
			value = string(data)
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = %s", col.column, placeholder(len(args))))
	}
	return sets, args, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
