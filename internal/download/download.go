// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download saves the media behind normalized resources to disk.
// Each file is written next to a YAML sidecar holding the resource's
// metadata; files already present are skipped.
package download

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/librarian/internal/httputil"
	"github.com/pdiddy/librarian/pkg/types"
)

// ErrNotDownloadable is returned for resources without a downloadable
// link: no media at all, or an embedded player.
var ErrNotDownloadable = errors.New("resource has no downloadable media")

// BatchResult holds the outcome of a batch download run.
type BatchResult struct {
	Downloaded int
	Skipped    int
	Failed     int
	Paths      []string
}

// Total returns the number of resources processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Failed
}

// HasFailures reports whether any download failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// Fetch downloads the media of r into cfg.Dir and writes its metadata
// sidecar. If the file already exists the download is skipped.
func Fetch(ctx context.Context, client *http.Client, r types.NormalizedResource, cfg types.DownloadConfig, w io.Writer) (dest string, skipped bool, err error) {
	src := r.DownloadURL()
	if src == "" {
		return "", false, ErrNotDownloadable
	}

	slug := Slug(r)
	dest = filepath.Join(cfg.Dir, slug+Ext(r))
	meta := filepath.Join(cfg.Dir, slug+".yaml")
	if _, err := os.Stat(dest); err == nil {
		fmt.Fprintf(w, "skipped: %s (already exists)\n", filepath.Base(dest))
		if _, err := readMetadata(meta); err != nil {
			if err := writeMetadata(r, meta); err != nil {
				return "", false, fmt.Errorf("writing metadata for %s: %w", slug, err)
			}
		}
		return dest, true, nil
	}

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating directory %s: %w", cfg.Dir, err)
	}

	fmt.Fprintf(w, "downloading: %s (%s)\n", filepath.Base(dest), r.Kind)
	if err := fetchFile(ctx, client, src, dest, cfg, w); err != nil {
		return "", false, fmt.Errorf("downloading %s: %w", slug, err)
	}
	if err := writeMetadata(r, meta); err != nil {
		return "", false, fmt.Errorf("writing metadata for %s: %w", slug, err)
	}
	return dest, false, nil
}

// Batch downloads each resource in turn, continuing past failures and
// pausing cfg.Delay between downloads. Resources without downloadable
// media count as failures.
func Batch(ctx context.Context, client *http.Client, rs []types.NormalizedResource, cfg types.DownloadConfig, w io.Writer) BatchResult {
	var result BatchResult
	for i, r := range rs {
		if i > 0 && cfg.Delay > 0 {
			select {
			case <-time.After(cfg.Delay):
			case <-ctx.Done():
				result.Failed += len(rs) - i
				fmt.Fprintf(w, "stopped: %v\n", ctx.Err())
				return result
			}
		}
		dest, skipped, err := Fetch(ctx, client, r, cfg, w)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", r.Title, err)
			result.Failed++
			continue
		}
		if skipped {
			result.Skipped++
		} else {
			result.Downloaded++
		}
		result.Paths = append(result.Paths, dest)
	}
	fmt.Fprintf(w, "\nDownload summary: %d downloaded, %d skipped, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Failed, result.Total())
	return result
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug names the files for r: the base name of the media link followed by a
// short hash of the whole link, so resources whose links share a base name
// still get distinct files.
func Slug(r types.NormalizedResource) string {
	h := sha256.Sum256([]byte(r.MediaLink))
	sum := fmt.Sprintf("%x", h[:4])
	u, err := url.Parse(r.MediaLink)
	if err == nil {
		base := path.Base(u.Path)
		base = strings.TrimSuffix(base, path.Ext(base))
		base = strings.Trim(unsafeChars.ReplaceAllString(base, "-"), "-.")
		if base != "" {
			return base + "-" + sum
		}
	}
	return "media-" + sum
}

// ResolveLinks returns rs with relative media links resolved against base,
// the archive backend's URL. Absolute links are left as they are.
func ResolveLinks(rs []types.NormalizedResource, base string) ([]types.NormalizedResource, error) {
	b, err := url.Parse(base)
	if err != nil || b.Scheme == "" || b.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", base)
	}
	out := make([]types.NormalizedResource, len(rs))
	for i, r := range rs {
		out[i] = r
		if r.MediaLink == "" {
			continue
		}
		u, err := url.Parse(r.MediaLink)
		if err != nil || u.IsAbs() {
			continue
		}
		out[i].MediaLink = b.ResolveReference(u).String()
	}
	return out, nil
}

// Ext returns the file extension for r's media, taken from the link or, when
// the link has none, from the resource kind.
func Ext(r types.NormalizedResource) string {
	if u, err := url.Parse(r.MediaLink); err == nil {
		if ext := strings.ToLower(path.Ext(u.Path)); ext != "" && !unsafeChars.MatchString(ext[1:]) {
			return ext
		}
	}
	switch r.Kind {
	case types.KindBook:
		return ".pdf"
	case types.KindAudio:
		return ".mp3"
	case types.KindVideo:
		return ".mp4"
	default:
		return ".bin"
	}
}

// fetchFile fetches src to dest through a temporary file in the same
// directory, renaming it into place on success.
func fetchFile(ctx context.Context, client *http.Client, src, dest string, cfg types.DownloadConfig, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries, w)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, src)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, copyErr := io.Copy(tmpFile, resp.Body)
	closeErr := tmpFile.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", copyErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func writeMetadata(r types.NormalizedResource, file string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}
	return os.WriteFile(file, data, 0o644)
}

func readMetadata(file string) (types.NormalizedResource, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return types.NormalizedResource{}, err
	}
	var r types.NormalizedResource
	if err := yaml.Unmarshal(data, &r); err != nil {
		return types.NormalizedResource{}, fmt.Errorf("parsing %s: %w", file, err)
	}
	return r, nil
}
