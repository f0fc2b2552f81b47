// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/librarian/internal/download"
	"github.com/pdiddy/librarian/internal/normalize"
	"github.com/pdiddy/librarian/pkg/types"
)

var downloadCmd = &cobra.Command{
	Use:   "download <query...>",
	Short: "Search the archive and save result media to disk",
	Long: `Download runs a search and saves the media files of the chosen results
(PDFs and audio; embedded video players cannot be saved) to the download
directory, each with a YAML file of its normalized metadata. Files already
present are skipped.

Choose results with --result (1-based, repeatable); without it every
result with downloadable media is saved.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().IntSlice("result", nil, "result numbers to download (default: all with media)")
	downloadCmd.Flags().String("dir", "", "download directory (default ./downloads)")
	downloadCmd.Flags().Duration("delay", 0, "delay between consecutive downloads (default 1s)")
	_ = viper.BindPFlag("download.dir", downloadCmd.Flags().Lookup("dir"))
	_ = viper.BindPFlag("download.delay", downloadCmd.Flags().Lookup("delay"))

	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	picks, _ := cmd.Flags().GetIntSlice("result")

	loop, cfg, stop, err := startSession(cmd)
	if err != nil {
		return err
	}
	defer stop()

	res, err := loop.Search(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return err
	}
	st := res.State
	if st.Error {
		return fmt.Errorf("search failed: %s", st.Message)
	}

	resolved, err := download.ResolveLinks(st.Results, cfg.Backend.BaseURL)
	if err != nil {
		return fmt.Errorf("resolving media links: %w", err)
	}
	chosen, err := pickResults(resolved, picks)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(chosen) == 0 {
		fmt.Fprintln(out, "Nothing to download.")
		return nil
	}

	var (
		saveable []types.NormalizedResource
		rejected int
	)
	for _, r := range chosen {
		if r.DownloadURL() == "" {
			fmt.Fprintf(out, "cannot download %q: %s\n", r.Title, notDownloadableReason(r))
			rejected++
			continue
		}
		saveable = append(saveable, r)
	}

	failed := rejected
	if len(saveable) > 0 {
		client := &http.Client{Timeout: cfg.Download.Timeout}
		failed += download.Batch(cmd.Context(), client, saveable, cfg.Download, out).Failed
	}
	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}

func notDownloadableReason(r types.NormalizedResource) string {
	switch {
	case !r.HasMedia():
		return "no media link"
	case normalize.IsEmbed(r.MediaLink):
		return "embedded video player"
	default:
		return "unsupported link " + r.MediaLink
	}
}

// pickResults returns the 1-based picks from rs, or every downloadable
// result when picks is empty.
func pickResults(rs []types.NormalizedResource, picks []int) ([]types.NormalizedResource, error) {
	if len(picks) == 0 {
		var out []types.NormalizedResource
		for _, r := range rs {
			if r.DownloadURL() != "" {
				out = append(out, r)
			}
		}
		return out, nil
	}
	out := make([]types.NormalizedResource, 0, len(picks))
	for _, p := range picks {
		if p < 1 || p > len(rs) {
			return nil, fmt.Errorf("--result %d: only %d results", p, len(rs))
		}
		out = append(out, rs[p-1])
	}
	return out, nil
}
