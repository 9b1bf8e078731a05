package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leads-cli/internal/dedup"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a candidate lead against existing records",
	Long:  "Ranks existing leads that collide with a candidate name or phone, for warning before creating a new record.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		name, _ := cmd.Flags().GetString("name")
		phone, _ := cmd.Flags().GetString("phone")
		sourceName, _ := cmd.Flags().GetString("source")
		output, _ := cmd.Flags().GetString("output")

		if name == "" && phone == "" {
			return eris.New("at least one of --name or --phone is required")
		}

		svc, st, err := initService(ctx, sourceName)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		matches, err := svc.CheckDuplicates(ctx, dedup.Query{Name: name, Phone: phone})
		if err != nil {
			return eris.Wrap(err, "check duplicates")
		}

		if len(matches) == 0 {
			fmt.Fprintln(os.Stderr, "No matching leads found.")
			return nil
		}

		if output == "json" {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(matches)
		}

		formatMatches(os.Stdout, matches)
		return nil
	},
}

func init() {
	checkCmd.Flags().String("name", "", "candidate name")
	checkCmd.Flags().String("phone", "", "candidate phone")
	checkCmd.Flags().String("source", "store", "record source: store, airtable, salesforce")
	checkCmd.Flags().String("output", "table", "output format: table, json")
	rootCmd.AddCommand(checkCmd)
}

// formatMatches writes a tabular list of match results to out.
func formatMatches(out io.Writer, matches []dedup.MatchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPHONE\tCITY\tSTATUS\tSCORE\tMATCHED ON")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t----\t------\t-----\t----------")

	for _, m := range matches {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
			truncateID(m.LeadID),
			m.Name,
			m.Phone,
			m.City,
			m.Status,
			m.MatchScore,
			strings.Join(m.MatchTypes, ","),
		)
	}
	_ = w.Flush()
}
