// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backend talks to the external archive search service. It issues
// free-text searches and chat turns and returns raw records tagged by kind;
// ranking and matching happen on the server.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/librarian/internal/httputil"
	"github.com/pdiddy/librarian/pkg/types"
)

const (
	defaultBaseURL   = "http://127.0.0.1:5000"
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "librarian/0.1"
)

// Client calls the search backend over HTTP.
type Client struct {
	HTTP *http.Client
	cfg  types.BackendConfig
	warn io.Writer
}

// NewClient returns a Client for cfg. Zero fields fall back to defaults.
// Retry notices are written to w (nil discards them).
func NewClient(cfg types.BackendConfig, w io.Writer) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if w == nil {
		w = io.Discard
	}
	return &Client{
		HTTP: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		warn: w,
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Search sends query to GET /search?q=. Only a response whose status is
// "success" yields records; anything else, including HTTP errors and
// undecodable bodies, is an *Error of kind ErrFailed. Transport failures
// are *Error of kind ErrUnavailable.
func (c *Client) Search(ctx context.Context, query string) (SearchResponse, error) {
	reqURL := c.endpoint("search") + "?" + url.Values{"q": {query}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return SearchResponse{}, &Error{Kind: ErrFailed, Message: "invalid backend URL", Err: err}
	}

	body, err := c.do(ctx, req)
	if err != nil {
		return SearchResponse{}, err
	}

	var env searchEnvelope
	if err := decode(body, &env); err != nil {
		return SearchResponse{}, &Error{Kind: ErrFailed, Message: "Invalid response from backend", Err: err}
	}
	if env.Status != StatusSuccess {
		msg := env.Message
		if msg == "" {
			msg = msgNotFound
		}
		return SearchResponse{}, &Error{Kind: ErrFailed, Message: msg}
	}

	out := SearchResponse{
		Records: make([]types.TaggedRecord, 0, len(env.Results)),
		AILogic: aiLogic(env.AILogic),
	}
	for _, item := range env.Results {
		if item == nil {
			continue
		}
		out.Records = append(out.Records, taggedRecord(item))
	}
	return out, nil
}

// Chat sends one message to POST /chat and returns the bot's reply with its
// optional record.
func (c *Client) Chat(ctx context.Context, message string) (ChatReply, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return ChatReply{}, &Error{Kind: ErrFailed, Message: "encoding chat message", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("chat"), bytes.NewReader(payload))
	if err != nil {
		return ChatReply{}, &Error{Kind: ErrFailed, Message: "invalid backend URL", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(ctx, req)
	if err != nil {
		return ChatReply{}, err
	}

	var env chatEnvelope
	if err := decode(body, &env); err != nil {
		return ChatReply{}, &Error{Kind: ErrFailed, Message: "Invalid response from backend", Err: err}
	}

	reply := ChatReply{Text: env.Response}
	if len(env.Data) > 0 {
		reply.Record = &types.TaggedRecord{Kind: types.ParseKind(env.ResType), Record: types.RawRecord(env.Data)}
	}
	return reply, nil
}

// do executes req with retries and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, c.cfg.MaxRetries, c.warn)
	if err != nil {
		return nil, &Error{Kind: ErrUnavailable, Message: msgUnavailable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: ErrUnavailable, Message: msgUnavailable, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: ErrFailed, Message: fmt.Sprintf("Server Error %d", resp.StatusCode)}
	}
	return body, nil
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/" + path
}

func decode(body []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
