// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests (e.g. "librarian/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// MaxRetries bounds retries on throttled or unavailable responses (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// BackendConfig locates the external search backend.
type BackendConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL is the backend root; /search and /chat are resolved against it.
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`
}

// HistoryDriver selects where the search history is persisted.
type HistoryDriver string

const (
	HistoryFile   HistoryDriver = "file"
	HistorySQLite HistoryDriver = "sqlite"
	HistoryMemory HistoryDriver = "memory"
)

// HistoryConfig holds settings for the search history store.
type HistoryConfig struct {
	// Driver selects the persistence backend: file, sqlite or memory.
	Driver HistoryDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Path is the directory (file driver) or database file (sqlite driver).
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// Key names the persisted entry holding the history list.
	Key string `json:"key" yaml:"key" mapstructure:"key"`

	// Limit is the maximum number of retained queries (default 5).
	Limit int `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// NormalizeConfig holds settings for record normalization.
type NormalizeConfig struct {
	// AliasFile is an optional YAML file of extra field aliases per attribute.
	AliasFile string `json:"alias_file,omitempty" yaml:"alias_file,omitempty" mapstructure:"alias_file"`

	// Workers bounds parallel normalization of a result list (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// ServerConfig holds settings for the HTTP facade.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// AllowOrigins lists the browser origins permitted by CORS.
	AllowOrigins []string `json:"allow_origins" yaml:"allow_origins" mapstructure:"allow_origins"`

	// SessionTTL is how long a client session may sit idle before it is
	// stopped. MaxSessions caps the live sessions; the least recently used
	// one is stopped to make room.
	SessionTTL  time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`
	MaxSessions int           `json:"max_sessions" yaml:"max_sessions" mapstructure:"max_sessions"`
}

// DownloadConfig holds settings for saving resource media to disk.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Dir receives the media files and their metadata sidecars.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Delay is the pause between consecutive downloads in a batch.
	Delay time.Duration `json:"delay" yaml:"delay" mapstructure:"delay"`
}

// LibrarianConfig groups all component configurations.
type LibrarianConfig struct {
	Backend   BackendConfig   `json:"backend" yaml:"backend" mapstructure:"backend"`
	History   HistoryConfig   `json:"history" yaml:"history" mapstructure:"history"`
	Normalize NormalizeConfig `json:"normalize" yaml:"normalize" mapstructure:"normalize"`
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Download  DownloadConfig  `json:"download" yaml:"download" mapstructure:"download"`
}
