// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package normalize

import (
	"net/url"
	"regexp"
	"strings"
)

// autoplayQuery is appended to every rewritten embed URL.
const autoplayQuery = "autoplay=1"

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// MediaLink rewrites a YouTube watch-page or short link into the embeddable
// player URL with autoplay enabled. Every other link, including links that
// are already embeddable, is returned unchanged, so MediaLink is idempotent.
//
//	https://youtube.com/watch?v=abc123 -> https://youtube.com/embed/abc123?autoplay=1
//	https://youtu.be/abc123            -> https://youtube.com/embed/abc123?autoplay=1
func MediaLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}

	u, err := url.Parse(withScheme(link))
	if err != nil || u.Host == "" {
		return link
	}

	host := strings.ToLower(u.Hostname())
	switch {
	case isWatchHost(host) && strings.TrimSuffix(u.Path, "/") == "/watch":
		return embedURL(u.Scheme, u.Host, u.Query().Get("v"), link)
	case host == "youtu.be" || host == "www.youtu.be":
		return embedURL(u.Scheme, "youtube.com", strings.Trim(u.Path, "/"), link)
	}
	return link
}

// IsEmbed reports whether link is already a YouTube embed URL.
func IsEmbed(link string) bool {
	u, err := url.Parse(withScheme(strings.TrimSpace(link)))
	if err != nil {
		return false
	}
	return isWatchHost(strings.ToLower(u.Hostname())) && strings.HasPrefix(u.Path, "/embed/")
}

func isWatchHost(host string) bool {
	switch host {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		return true
	}
	return false
}

// withScheme adds https:// to scheme-less YouTube links such as
// "youtu.be/abc123" so they parse with a host.
func withScheme(link string) string {
	if strings.Contains(link, "://") {
		return link
	}
	lower := strings.ToLower(link)
	for _, prefix := range []string{"youtu.be/", "www.youtu.be/", "youtube.com/", "www.youtube.com/", "m.youtube.com/"} {
		if strings.HasPrefix(lower, prefix) {
			return "https://" + link
		}
	}
	return link
}

func embedURL(scheme, host, id, original string) string {
	if !videoIDPattern.MatchString(id) {
		return original
	}
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + host + "/embed/" + id + "?" + autoplayQuery
}
