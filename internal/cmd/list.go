package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/quantmind-br/pkgtx/internal/syspkg"
	"github.com/quantmind-br/pkgtx/internal/ui"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	var (
		jsonOutput bool
		scopeName  string
		filterName string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed and available packages",
		Long: `List packages known to the host package manager. This is a read-only
query and does not take the package database lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scope, err := syspkg.ParseListScope(scopeName)
			if err != nil {
				return invalidArgument("%v", err)
			}

			provider, err := a.providers()
			if err != nil {
				return err
			}

			lists, err := provider.ListPackages(cmd.Context(), scope)
			if err != nil {
				return fmt.Errorf("list packages: %w", err)
			}
			lists = filterLists(lists, filterName)

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(lists)
			}

			if countLists(lists) == 0 {
				if filterName != "" {
					ui.PrintWarning("No packages found matching %q", filterName)
				}
				return nil
			}

			printListTable(cmd.OutOrStdout(), lists)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&scopeName, "scope", string(syspkg.ScopeAll), "installed, available, extras or all")
	cmd.Flags().StringVar(&filterName, "name", "", "filter by package name (fuzzy match)")

	return cmd
}

// filterLists keeps packages whose name fuzzily matches filter
func filterLists(lists *syspkg.PackageLists, filter string) *syspkg.PackageLists {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return lists
	}

	keep := func(pkgs []syspkg.PackageID) []syspkg.PackageID {
		out := make([]syspkg.PackageID, 0, len(pkgs))
		for _, p := range pkgs {
			if fuzzy.MatchNormalizedFold(filter, p.Name) {
				out = append(out, p)
			}
		}
		return out
	}

	return &syspkg.PackageLists{
		Installed:     keep(lists.Installed),
		Available:     keep(lists.Available),
		Reinstallable: keep(lists.Reinstallable),
		Extras:        keep(lists.Extras),
	}
}

func countLists(lists *syspkg.PackageLists) int {
	return len(lists.Installed) + len(lists.Available) + len(lists.Reinstallable) + len(lists.Extras)
}

func printListTable(w io.Writer, lists *syspkg.PackageLists) {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Name", "Version", "Arch", "Repo", "List"}),
		tablewriter.WithAlignment(tw.MakeAlign(5, tw.AlignLeft)),
		tablewriter.WithSymbols(tw.NewSymbols(tw.StyleNone)),
	)

	sections := []struct {
		name string
		pkgs []syspkg.PackageID
	}{
		{"installed", lists.Installed},
		{"available", lists.Available},
		{"reinstallable", lists.Reinstallable},
		{"extras", lists.Extras},
	}

	for _, s := range sections {
		for _, p := range s.pkgs {
			evr := p.Version
			if p.Release != "" {
				evr += "-" + p.Release
			}
			if p.Epoch != "" && p.Epoch != "0" {
				evr = p.Epoch + ":" + evr
			}
			repo := p.Repo
			if repo == "" {
				repo = "-"
			}
			table.Append(p.Name, evr, p.Arch, repo, s.name)
		}
	}

	table.Render()
}
