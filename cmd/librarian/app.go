// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/librarian/internal/backend"
	"github.com/pdiddy/librarian/internal/session"
	"github.com/pdiddy/librarian/pkg/types"
)

// startSession loads the config and starts a session loop against the
// configured backend. stop ends the loop and releases the history store.
func startSession(cmd *cobra.Command) (loop *session.Loop, cfg types.LibrarianConfig, stop func(), err error) {
	cfg, err = loadConfig(viper.GetViper())
	if err != nil {
		return nil, cfg, nil, err
	}
	n, err := newNormalizer(cfg.Normalize)
	if err != nil {
		return nil, cfg, nil, err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	hist, closeHist, err := openHistory(ctx, cfg.History, stderr())
	if err != nil {
		cancel()
		return nil, cfg, nil, err
	}

	client := backend.NewClient(cfg.Backend, stderr())
	loop = session.NewLoop(session.New(n, hist), client)
	go loop.Run(ctx)

	stop = func() {
		cancel()
		<-loop.Done()
		_ = closeHist()
	}
	return loop, cfg, stop, nil
}
