// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/librarian/internal/backend"
	"github.com/pdiddy/librarian/internal/history"
	"github.com/pdiddy/librarian/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve librarian sessions to a browser front end",
	Long: `Serve starts the HTTP API used by the browser front end. Each client
gets its own session, identified by the X-Librarian-Session header, with
its own results, playground, chat transcript and persisted history.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	n, err := newNormalizer(cfg.Normalize)
	if err != nil {
		return err
	}
	kv, closeKV, err := history.OpenKV(cfg.History)
	if err != nil {
		return err
	}
	defer closeKV()

	srv := server.New(cfg.Server, server.Deps{
		Backend:      backend.NewClient(cfg.Backend, stderr()),
		Normalizer:   n,
		History:      kv,
		HistoryKey:   cfg.History.Key,
		HistoryLimit: cfg.History.Limit,
		Warnings:     stderr(),
		AccessLog:    stderr(),
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(stderr(), "Serving on %s (backend %s)\n", cfg.Server.Addr, cfg.Backend.BaseURL)
	return srv.Run(ctx)
}
