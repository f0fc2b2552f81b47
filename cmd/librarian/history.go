// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/librarian/internal/history"
	"github.com/pdiddy/librarian/internal/render"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or edit the recent-search history",
	Long: `History lists the most recent successful queries, newest first. The
list holds at most history.limit entries (default 5) and is shared with
the search command.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryList(cmd)
	},
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent queries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistoryList(cmd)
	},
}

var historyRemoveCmd = &cobra.Command{
	Use:   "remove <query...>",
	Short: "Remove one query from the history",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(h *history.Store) error {
			h.Remove(cmd.Context(), strings.Join(args, " "))
			render.History(cmd.OutOrStdout(), h.Entries())
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every query from the history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(h *history.Store) error {
			h.Clear(cmd.Context())
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{historyCmd, historyListCmd} {
		c.Flags().Bool("json", false, "output as JSON")
		c.Flags().Bool("yaml", false, "output as YAML")
	}
	historyCmd.AddCommand(historyListCmd, historyRemoveCmd, historyClearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command) error {
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")
	format, err := render.FormatFromFlags(asJSON, asYAML)
	if err != nil {
		return err
	}
	return withHistory(cmd, func(h *history.Store) error {
		if format != render.Table {
			return render.Write(cmd.OutOrStdout(), format, h.Entries())
		}
		render.History(cmd.OutOrStdout(), h.Entries())
		return nil
	})
}

func withHistory(cmd *cobra.Command, fn func(*history.Store) error) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	h, closeHist, err := openHistory(cmd.Context(), cfg.History, stderr())
	if err != nil {
		return err
	}
	defer closeHist()
	return fn(h)
}
