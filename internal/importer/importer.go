// Package importer loads lead records from CSV and XLSX files into the
// store.
package importer

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/leads-cli/internal/model"
	"github.com/sells-group/leads-cli/internal/store"
)

// Options configures a file import.
type Options struct {
	Format    string // "csv" or "xlsx"; inferred from the extension when empty
	Sheet     string // xlsx sheet name; first sheet when empty
	Delimiter rune   // csv delimiter; default ','
}

// Report summarizes an import run.
type Report struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Importer parses lead files and bulk-inserts them.
type Importer struct {
	store store.Store
	log   *zap.Logger
}

// New creates an Importer writing into the given store.
func New(st store.Store) *Importer {
	return &Importer{
		store: st,
		log:   zap.L().With(zap.String("component", "importer")),
	}
}

// ImportFile parses the file and inserts every usable row. Rows without
// a name and phone are skipped and counted in the report.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (*Report, error) {
	format := opts.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(path), ".")
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(format) {
	case "csv":
		rows, err = readCSVFile(path, opts.Delimiter)
	case "xlsx":
		rows, err = readXLSXFile(path, opts.Sheet)
	default:
		return nil, eris.Errorf("importer: unsupported format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, eris.New("importer: file has no rows")
	}

	header := rows[0]
	leads, skipped := parseLeads(header, rows[1:], im.log)
	if len(leads) == 0 {
		return &Report{Skipped: skipped}, nil
	}

	inserted, err := im.store.BulkInsertLeads(ctx, leads)
	if err != nil {
		return nil, eris.Wrap(err, "importer: bulk insert")
	}
	im.log.Info("import complete",
		zap.String("file", path),
		zap.Int("imported", inserted),
		zap.Int("skipped", skipped),
	)
	return &Report{Imported: inserted, Skipped: skipped}, nil
}

func readCSVFile(path string, delimiter rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1 // allow variable fields

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "importer: read csv row")
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func readXLSXFile(path, sheetName string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}

	var sheet *xlsx.Sheet
	if sheetName != "" {
		s, ok := f.Sheet[sheetName]
		if !ok {
			return nil, eris.Errorf("importer: sheet %q not found", sheetName)
		}
		sheet = s
	} else {
		if len(f.Sheets) == 0 {
			return nil, eris.New("importer: xlsx file has no sheets")
		}
		sheet = f.Sheets[0]
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// knownColumns maps normalized header names to lead field keys.
var knownColumns = map[string]string{
	"name":     model.FieldName,
	"phone":    model.FieldPhone,
	"email":    model.FieldEmail,
	"city":     model.FieldCity,
	"address":  model.FieldAddress,
	"zip":      model.FieldZip,
	"need":     model.FieldNeed,
	"notes":    model.FieldNotes,
	"status":   model.FieldStatus,
	"assignee": model.FieldAssignee,
}

func parseLeads(header []string, rows [][]string, log *zap.Logger) ([]model.Lead, int) {
	keys := make([]string, len(header))
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if key, ok := knownColumns[h]; ok {
			keys[i] = key
		} else {
			keys[i] = h
		}
	}

	var (
		leads   []model.Lead
		skipped int
	)
	for n, row := range rows {
		lead := leadFromRow(keys, row)
		if lead.Name == "" && lead.Phone == "" {
			skipped++
			log.Warn("skipping row without name or phone", zap.Int("row", n+2))
			continue
		}
		leads = append(leads, lead)
	}
	return leads, skipped
}

func leadFromRow(keys []string, row []string) model.Lead {
	var lead model.Lead
	for i, value := range row {
		if i >= len(keys) || keys[i] == "" {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch keys[i] {
		case model.FieldName:
			lead.Name = value
		case model.FieldPhone:
			lead.Phone = value
		case model.FieldEmail:
			lead.Email = value
		case model.FieldCity:
			lead.City = value
		case model.FieldAddress:
			lead.Address = value
		case model.FieldZip:
			lead.Zip = value
		case model.FieldNeed:
			lead.Need = value
		case model.FieldNotes:
			lead.Notes = value
		case model.FieldStatus:
			lead.Status = value
		case model.FieldAssignee:
			lead.Assignee = model.AssigneeList{value}
		default:
			if lead.Fields == nil {
				lead.Fields = make(map[string]any)
			}
			lead.Fields[keys[i]] = value
		}
	}
	return lead
}
