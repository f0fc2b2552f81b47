// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/librarian/internal/history"
	"github.com/pdiddy/librarian/internal/normalize"
	"github.com/pdiddy/librarian/internal/server"
	"github.com/pdiddy/librarian/pkg/types"
)

const (
	defaultBackendURL = "http://127.0.0.1:5000"
	defaultTimeout    = 30 * time.Second
	defaultUserAgent  = "librarian/0.1"
	defaultServerAddr = ":8080"
	defaultOrigin     = "http://localhost:5173"

	defaultDownloadTimeout = 5 * time.Minute
	defaultDownloadDelay   = time.Second
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.base_url", defaultBackendURL)
	v.SetDefault("backend.timeout", defaultTimeout)
	v.SetDefault("backend.user_agent", defaultUserAgent)
	v.SetDefault("backend.max_retries", 2)

	v.SetDefault("history.driver", string(types.HistoryFile))
	v.SetDefault("history.path", defaultHistoryPath())
	v.SetDefault("history.key", history.DefaultKey)
	v.SetDefault("history.limit", history.DefaultLimit)

	v.SetDefault("normalize.alias_file", "")
	v.SetDefault("normalize.workers", 4)

	v.SetDefault("server.addr", defaultServerAddr)
	v.SetDefault("server.allow_origins", []string{defaultOrigin})
	v.SetDefault("server.session_ttl", server.DefaultSessionTTL)
	v.SetDefault("server.max_sessions", server.DefaultMaxSessions)

	v.SetDefault("download.dir", "downloads")
	v.SetDefault("download.delay", defaultDownloadDelay)
	v.SetDefault("download.timeout", defaultDownloadTimeout)
	v.SetDefault("download.user_agent", defaultUserAgent)
	v.SetDefault("download.max_retries", 2)
}

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".librarian", "history")
	}
	return filepath.Join(home, ".librarian", "history")
}

// loadConfig decodes the merged defaults, config file and environment.
func loadConfig(v *viper.Viper) (types.LibrarianConfig, error) {
	var cfg types.LibrarianConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}
	cfg.History.Path = expandHome(cfg.History.Path)
	cfg.Normalize.AliasFile = expandHome(cfg.Normalize.AliasFile)
	cfg.Download.Dir = expandHome(cfg.Download.Dir)
	return cfg, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

func quiet() bool {
	q, _ := rootCmd.PersistentFlags().GetBool("quiet")
	return q
}

// stderr is where warnings and progress go; --quiet discards them.
func stderr() io.Writer {
	if quiet() {
		return io.Discard
	}
	return os.Stderr
}

// newNormalizer builds a Normalizer with the configured alias overlay.
func newNormalizer(cfg types.NormalizeConfig) (*normalize.Normalizer, error) {
	aliases := normalize.DefaultAliases()
	if cfg.AliasFile != "" {
		extra, err := normalize.LoadAliasFile(cfg.AliasFile)
		if err != nil {
			return nil, err
		}
		aliases = aliases.Merge(extra)
	}
	return normalize.New(aliases, cfg.Workers), nil
}

// openHistory opens the configured history store. The returned close
// function releases the persistence backend.
func openHistory(ctx context.Context, cfg types.HistoryConfig, w io.Writer) (*history.Store, func() error, error) {
	kv, closeKV, err := history.OpenKV(cfg)
	if err != nil {
		return nil, nil, err
	}
	store := history.Open(ctx, kv,
		history.WithKey(cfg.Key),
		history.WithLimit(cfg.Limit),
		history.WithWarnings(w),
	)
	return store, closeKV, nil
}
