// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/librarian/internal/render"
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search the archive",
	Long: `Search sends a free-text query to the search backend and prints the
results normalized to title, author, reference, subject and media link.
Successful queries are added to the recent-search history.

With --select N the Nth result is opened in the playground and its player
link is printed; a single result with media opens on its own.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().Int("select", 0, "open result N (1-based) in the playground")
	searchCmd.Flags().Bool("json", false, "output session state as JSON")
	searchCmd.Flags().Bool("yaml", false, "output session state as YAML")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	format, err := render.FormatFromFlags(asJSON, asYAML)
	if err != nil {
		return err
	}
	sel, _ := cmd.Flags().GetInt("select")

	loop, cfg, stop, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer stop()

	ctx := cmd.Context()
	query := strings.Join(args, " ")
	fmt.Fprintf(stderr(), "Searching %s for %q\n", cfg.Backend.BaseURL, query)

	res, err := loop.Search(ctx, query)
	if err != nil {
		return err
	}
	st := res.State

	if sel > 0 && !st.Error {
		opened, selected, err := loop.Select(ctx, sel-1)
		if err != nil {
			return fmt.Errorf("--select %d: %w", sel, err)
		}
		if !opened {
			fmt.Fprintf(stderr(), "warning: result %d has no media link\n", sel)
		}
		st = selected
	}

	out := cmd.OutOrStdout()
	if format != render.Table {
		if err := render.Write(out, format, st); err != nil {
			return err
		}
	} else if !st.Error {
		render.State(out, st)
	}
	if st.Error {
		return fmt.Errorf("search failed: %s", st.Message)
	}
	return nil
}
