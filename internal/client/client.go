package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"listd/internal/journal"
	"listd/internal/store"
)

const DefaultBaseURL = "http://127.0.0.1:8080"

// Client talks to a running listd server.
type Client struct {
	base *url.URL
	hc   *http.Client
}

func New(baseURL string, hc *http.Client) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{base: u, hc: hc}, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Code)
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

func (c *Client) Page(ctx context.Context, q store.PageQuery) (store.Page, error) {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	v.Set("offset", strconv.Itoa(q.Offset))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	v.Set("useStoredOrder", strconv.FormatBool(q.UseStoredOrder))
	var out store.Page
	return out, c.getJSON(ctx, "/items", v, &out)
}

func (c *Client) IDs(ctx context.Context, chunk, size int) (store.IDChunk, error) {
	v := url.Values{"chunk": {strconv.Itoa(chunk)}}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}
	var out store.IDChunk
	return out, c.getJSON(ctx, "/items/ids", v, &out)
}

func (c *Client) State(ctx context.Context) (store.Summary, error) {
	var out store.Summary
	return out, c.getJSON(ctx, "/items/get-state", nil, &out)
}

func (c *Client) OrderSlice(ctx context.Context, start, count int, search string) (store.OrderSlice, error) {
	v := url.Values{"start": {strconv.Itoa(start)}}
	if count > 0 {
		v.Set("count", strconv.Itoa(count))
	}
	if search != "" {
		v.Set("search", search)
	}
	var out store.OrderSlice
	return out, c.getJSON(ctx, "/items/custom-order", v, &out)
}

func (c *Client) Journal(ctx context.Context, limit int) ([]journal.Entry, error) {
	v := url.Values{}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Entries []journal.Entry `json:"entries"`
	}
	if err := c.getJSON(ctx, "/items/journal", v, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

// Save posts a save-state request.
func (c *Client) Save(ctx context.Context, req store.SaveStateRequest) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/items/save-state", nil), bytes.NewReader(b))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := c.hc.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/health", nil), nil)
	if err != nil {
		return err
	}
	resp, err := c.hc.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) endpoint(path string, q url.Values) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path, q), nil)
	if err != nil {
		return err
	}
	hreq.Header.Set("Accept", "application/json")
	resp, err := c.hc.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var env struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if err := json.Unmarshal(b, &env); err == nil && env.Error != "" {
		msg = env.Error
	}
	return &StatusError{Code: resp.StatusCode, Message: msg}
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
