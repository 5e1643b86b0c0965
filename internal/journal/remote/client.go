// Package remote implements the journal ports against the JSON API of another
// dreams server.
package remote

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

	"golang.org/x/sync/singleflight"

	"dreams/internal/core"
)

// Client talks to /api/dreams. Concurrent identical month requests share one
// round trip.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	group      singleflight.Group
}

// New builds a client for baseURL, e.g. "http://localhost:8081".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported base URL scheme %q", u.Scheme)
	}
	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type errorBody struct {
	Detail string `json:"detail"`
}

func (c *Client) ListMonth(ctx context.Context, year, month int) ([]core.DreamRecord, error) {
	if month < 1 || month > 12 {
		return nil, core.ErrInvalidMonth
	}
	q := url.Values{}
	q.Set("year", strconv.Itoa(year))
	q.Set("month", strconv.Itoa(month))
	key := q.Encode()

	// The shared fetch outlives any single caller; the http.Client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		var out []core.DreamRecord
		err := c.do(shared, "list month", http.MethodGet, "/api/dreams?"+key, nil, &out)
		return out, err
	})
	select {
	case <-ctx.Done():
		return nil, &core.TransportError{Op: "list month", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneRecords(res.Val.([]core.DreamRecord)), nil
	}
}

func (c *Client) GetDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	var out core.DreamRecord
	err := c.do(ctx, "get dream", http.MethodGet, dreamPath(id), nil, &out)
	return out, notFound(err, id)
}

func (c *Client) ListByEmotion(ctx context.Context, emotion string) ([]core.DreamRecord, error) {
	var out []core.DreamRecord
	err := c.do(ctx, "list by emotion", http.MethodGet, "/api/dreams/by-emotion/"+url.PathEscape(emotion), nil, &out)
	var te *core.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		// the server answers 404 when no dream carries the tag
		return []core.DreamRecord{}, nil
	}
	return nonNil(out), err
}

func (c *Client) CreateDream(ctx context.Context, p core.DreamPayload) (core.DreamRecord, error) {
	var out core.DreamRecord
	err := c.do(ctx, "create dream", http.MethodPost, "/api/dreams", p, &out)
	return out, err
}

func (c *Client) UpdateDream(ctx context.Context, id int64, p core.DreamPayload) (core.DreamRecord, error) {
	var out core.DreamRecord
	err := c.do(ctx, "update dream", http.MethodPut, dreamPath(id), p, &out)
	return out, notFound(err, id)
}

func (c *Client) DeleteDream(ctx context.Context, id int64) (core.DreamRecord, error) {
	var out core.DreamRecord
	err := c.do(ctx, "delete dream", http.MethodDelete, dreamPath(id), nil, &out)
	return out, notFound(err, id)
}

// Ping checks that the remote server is ready.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/readyz", nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, reader)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &core.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &core.TransportError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func statusError(op string, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(data))
	var eb errorBody
	if json.Unmarshal(data, &eb) == nil && eb.Detail != "" {
		msg = eb.Detail
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	var cause error
	switch resp.StatusCode {
	case http.StatusServiceUnavailable:
		cause = fmt.Errorf("%w: %s", core.ErrStoreUnavailable, msg)
	case http.StatusUnprocessableEntity:
		cause = &core.ValidationError{Problems: []error{errors.New(msg)}}
	case http.StatusBadRequest:
		cause = fmt.Errorf("%w: %s", core.ErrInvalidMonth, msg)
	default:
		cause = errors.New(msg)
	}
	return &core.TransportError{Op: op, StatusCode: resp.StatusCode, Err: cause}
}

func notFound(err error, id int64) error {
	var te *core.TransportError
	if errors.As(err, &te) && te.StatusCode == http.StatusNotFound {
		return &core.NotFoundError{ID: id}
	}
	return err
}

func dreamPath(id int64) string {
	return "/api/dreams/" + strconv.FormatInt(id, 10)
}

func nonNil(in []core.DreamRecord) []core.DreamRecord {
	if in == nil {
		return []core.DreamRecord{}
	}
	return in
}

// cloneRecords gives each singleflight caller its own slices.
func cloneRecords(in []core.DreamRecord) []core.DreamRecord {
	out := make([]core.DreamRecord, len(in))
	for i, r := range in {
		if r.Emotions == nil {
			r.Emotions = []string{}
		} else {
			r.Emotions = append([]string{}, r.Emotions...)
		}
		out[i] = r
	}
	return out
}
