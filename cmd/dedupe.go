package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leads-cli/internal/dedup"
	"github.com/sells-group/leads-cli/internal/leads"
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Scan leads for duplicate groups",
	Long:  "Partitions the lead set into duplicate groups. Strict mode uses the exact name/phone/email matcher; fuzzy mode scores names with Levenshtein similarity.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		mode, _ := cmd.Flags().GetString("mode")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		maxLeads, _ := cmd.Flags().GetInt("max-leads")
		sourceName, _ := cmd.Flags().GetString("source")
		output, _ := cmd.Flags().GetString("output")

		if mode == "" {
			mode = cfg.Dedup.Mode
		}
		if threshold == 0 {
			threshold = cfg.Dedup.Threshold
		}
		if maxLeads == 0 {
			maxLeads = cfg.Dedup.MaxLeads
		}

		cfg.Dedup.Mode = mode
		cfg.Dedup.Threshold = threshold
		cfg.Dedup.MaxLeads = maxLeads
		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		svc, st, err := initService(ctx, sourceName)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		set, err := svc.ScanDuplicates(ctx, leads.ScanOptions{
			Mode:      mode,
			Threshold: threshold,
			MaxLeads:  maxLeads,
		})
		if err != nil {
			return eris.Wrap(err, "dedupe scan")
		}

		if len(set.Groups) == 0 {
			fmt.Fprintln(os.Stderr, "No duplicate groups found.")
			return nil
		}

		return writeGroups(os.Stdout, set, output)
	},
}

func init() {
	dedupeCmd.Flags().String("mode", "", "detection mode: strict, fuzzy, exact (default from config)")
	dedupeCmd.Flags().Float64("threshold", 0, "similarity threshold 0..1 (default from config)")
	dedupeCmd.Flags().Int("max-leads", 0, "max leads to scan (default from config)")
	dedupeCmd.Flags().String("source", "store", "record source: store, airtable, salesforce")
	dedupeCmd.Flags().String("output", "table", "output format: table, json, yaml")
	rootCmd.AddCommand(dedupeCmd)
}

func writeGroups(out io.Writer, set dedup.GroupSet, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(set.Groups)
	case "yaml":
		return yaml.NewEncoder(out).Encode(set.Groups)
	case "table":
		formatGroups(out, set)
		return nil
	default:
		return eris.Errorf("unsupported output format: %s", format)
	}
}

// formatGroups writes a tabular summary of duplicate groups to out.
func formatGroups(out io.Writer, set dedup.GroupSet) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "MASTER\tNAME\tDUPLICATES\tSIMILARITY")
	_, _ = fmt.Fprintln(w, "------\t----\t----------\t----------")

	for _, g := range set.Groups {
		name := set.LeadsByID[g.MasterID].Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n",
			truncateID(g.MasterID),
			name,
			len(g.DuplicateIDs),
			g.Similarity,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
