package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leads-cli/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import leads from a CSV or XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, _ := cmd.Flags().GetString("format")
		sheet, _ := cmd.Flags().GetString("sheet")
		delimiter, _ := cmd.Flags().GetString("delimiter")

		var delim rune
		if delimiter != "" {
			runes := []rune(delimiter)
			if len(runes) != 1 {
				return eris.Errorf("delimiter must be a single character, got %q", delimiter)
			}
			delim = runes[0]
		}

		if err := cfg.Validate("merge"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		report, err := importer.New(st).ImportFile(ctx, args[0], importer.Options{
			Format:    format,
			Sheet:     sheet,
			Delimiter: delim,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Imported %d lead(s), skipped %d row(s).\n", report.Imported, report.Skipped)
		return nil
	},
}

func init() {
	importCmd.Flags().String("format", "", "file format: csv or xlsx (default from extension)")
	importCmd.Flags().String("sheet", "", "xlsx sheet name (default first sheet)")
	importCmd.Flags().String("delimiter", "", "csv delimiter (default comma)")
	rootCmd.AddCommand(importCmd)
}
