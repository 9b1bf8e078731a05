package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leads-cli/internal/leads"
	"github.com/sells-group/leads-cli/internal/merge"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <master-id> <duplicate-id>...",
	Short: "Merge duplicate leads into a master record",
	Long:  "Consolidates fields and attachments from duplicates into the master, then deletes the duplicates. Conflicting status and assignee values must be arbitrated with --status and --assignee.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		status, _ := cmd.Flags().GetString("status")
		assignee, _ := cmd.Flags().GetString("assignee")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		yes, _ := cmd.Flags().GetBool("yes")

		if err := cfg.Validate("merge"); err != nil {
			return err
		}

		svc, st, err := initService(ctx, "store")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		masterID, duplicateIDs := args[0], args[1:]

		preview, err := svc.PreviewMerge(ctx, masterID, duplicateIDs)
		if err != nil {
			return eris.Wrap(err, "merge preview")
		}
		formatPreview(os.Stdout, preview)

		if dryRun {
			return nil
		}
		if preview.StatusConflict && status == "" {
			return eris.New("status values conflict, pick one with --status")
		}
		if preview.AssigneeConflict && assignee == "" {
			return eris.New("assignee values conflict, pick one with --assignee")
		}
		if !yes && !confirm(os.Stdin, os.Stdout) {
			fmt.Fprintln(os.Stderr, "Aborted.")
			return nil
		}

		result, err := svc.Merge(ctx, leads.MergeRequest{
			MasterID:     masterID,
			DuplicateIDs: duplicateIDs,
			Choices:      merge.Choices{Status: status, Assignee: assignee},
		})
		if err != nil {
			return eris.Wrap(err, "merge")
		}

		fmt.Printf("Merged %d duplicate(s) into %s (%d attachments).\n",
			len(result.MergedIDs), result.MasterID, result.Attachments)
		return nil
	},
}

func init() {
	mergeCmd.Flags().String("status", "", "status value to keep when the group conflicts")
	mergeCmd.Flags().String("assignee", "", "assignee to keep when the group conflicts")
	mergeCmd.Flags().Bool("dry-run", false, "show the preview and exit without merging")
	mergeCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(mergeCmd)
}

// formatPreview writes the merge preview to out.
func formatPreview(out io.Writer, p *leads.Preview) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Master:\t%s\n", p.MasterID)
	_, _ = fmt.Fprintf(w, "Statuses:\t%s\n", strings.Join(p.States, ", "))
	if p.StatusConflict {
		_, _ = fmt.Fprintln(w, "\t(conflict)")
	}
	_, _ = fmt.Fprintf(w, "Assignees:\t%s\n", strings.Join(p.Assignees, ", "))
	if p.AssigneeConflict {
		_, _ = fmt.Fprintln(w, "\t(conflict)")
	}
	raw := p.Attachments.MasterCount + p.Attachments.DuplicateCount
	_, _ = fmt.Fprintf(w, "Attachments:\t%d kept of %d\n", p.Attachments.TotalCount, raw)
	_ = w.Flush()
}

func confirm(in io.Reader, out io.Writer) bool {
	fmt.Fprint(out, "Proceed with merge? [y/N] ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}
