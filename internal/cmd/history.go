package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/pkgtx/internal/history"
	"github.com/quantmind-br/pkgtx/internal/ui"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history [ID]",
		Short: "Show journaled transactions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				parsed, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil || parsed <= 0 {
					return invalidArgument("invalid transaction id %q", args[0])
				}
				id = parsed
			}

			db, err := a.openHistory(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if id > 0 {
				entry, err := db.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd.OutOrStdout(), entry)
				}
				printHistoryEntry(cmd.OutOrStdout(), entry)
				return nil
			}

			entries, err := db.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions recorded")
				return nil
			}
			printHistoryTable(cmd.OutOrStdout(), entries)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requestSummary(entry *history.Entry) string {
	parts := make([]string, 0, len(entry.Requests))
	for _, r := range entry.Requests {
		parts = append(parts, string(r.Kind)+" "+r.String())
	}
	summary := strings.Join(parts, ", ")
	if len(summary) > 50 {
		summary = summary[:47] + "..."
	}
	return summary
}

func printHistoryTable(w io.Writer, entries []history.Entry) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"ID", "Date", "Backend", "Status", "Packages", "Requests"}),
		tablewriter.WithAlignment(tw.MakeAlign(6, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	for i := range entries {
		e := &entries[i]
		table.Append(
			strconv.FormatInt(e.ID, 10),
			e.StartedAt.Format("2006-01-02 15:04"),
			e.Backend,
			ui.ColorizeStatus(string(e.Status)),
			strconv.Itoa(len(e.Outcomes)),
			requestSummary(e),
		)
	}

	table.Render()
}

func printHistoryEntry(w io.Writer, e *history.Entry) {
	fmt.Fprintf(w, "Transaction %d\n", e.ID)
	fmt.Fprintf(w, "  Started:  %s\n", e.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  Duration: %s\n", e.FinishedAt.Sub(e.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(w, "  Backend:  %s\n", e.Backend)
	fmt.Fprintf(w, "  Status:   %s\n", ui.ColorizeStatus(string(e.Status)))
	if e.Error != "" {
		fmt.Fprintf(w, "  Error:    %s\n", e.Error)
	}
	for _, r := range e.Requests {
		fmt.Fprintf(w, "  Request:  %s %s\n", r.Kind, r.String())
	}

	if len(e.Outcomes) == 0 {
		return
	}
	fmt.Fprintln(w)

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Action", "Name", "Version", "Arch", "Code"}),
		tablewriter.WithAlignment(tw.MakeAlign(5, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleLight)),
	)
	for _, o := range e.Outcomes {
		version := o.Version
		if o.Release != "" {
			version += "-" + o.Release
		}
		table.Append(ui.ColorizeStatus(string(o.ActionType)), o.Name, version, o.Arch, string(o.ActionCode))
	}
	table.Render()
}
