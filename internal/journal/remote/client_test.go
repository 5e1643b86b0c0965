package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dreams/internal/core"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", time.Second)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClientListMonth(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dreams" || r.URL.Query().Get("year") != "2024" || r.URL.Query().Get("month") != "2" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.Write([]byte(`[{"id":5,"name":"Flying","description":"","dream_date":"2024-02-10","lucidity":false,"sleep_duration":null,"recurring":false,"room_temp":null,"stress_before_sleep":null,"emotions":null}]`))
	}))

	records, err := c.ListMonth(context.Background(), 2024, 2)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(records) != 1 || records[0].ID != 5 || *records[0].DreamDate != "2024-02-10" {
		t.Fatalf("records = %+v", records)
	}
	if records[0].Emotions == nil {
		t.Fatal("null emotions should become an empty list")
	}

	if _, err := c.ListMonth(context.Background(), 2024, 13); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("month 13: %v", err)
	}
}

func TestClientCoalescesMonthRequests(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		<-release
		w.Write([]byte(`[]`))
	}))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.ListMonth(context.Background(), 2024, 1); err != nil {
				t.Errorf("ListMonth: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server saw %d requests, want 1", n)
	}
}

func TestClientSharedMonthSurvivesCancelledCaller(t *testing.T) {
	var calls int32
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		started <- struct{}{}
		<-release
		w.Write([]byte(`[{"id":1,"name":"a","dream_date":"2024-01-05","emotions":["joy"]}]`))
	}))

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.ListMonth(firstCtx, 2024, 1)
		firstErr <- err
	}()
	<-started

	type result struct {
		records []core.DreamRecord
		err     error
	}
	second := make(chan result, 1)
	go func() {
		records, err := c.ListMonth(context.Background(), 2024, 1)
		second <- result{records, err}
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller: got %v, want context.Canceled", err)
	}

	close(release)
	got := <-second
	if got.err != nil {
		t.Fatalf("live caller failed: %v", got.err)
	}
	if len(got.records) != 1 || got.records[0].ID != 1 {
		t.Fatalf("records = %+v", got.records)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server saw %d requests, want 1", n)
	}
}

func TestClientErrors(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/dreams/404":
			writeJSON(w, http.StatusNotFound, errorBody{Detail: "Dream not found"})
		case "/api/dreams/503":
			writeJSON(w, http.StatusServiceUnavailable, errorBody{Detail: "database is locked"})
		case "/api/dreams/422":
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: "invalid dream: empty name"})
		case "/api/dreams/by-emotion/none":
			writeJSON(w, http.StatusNotFound, errorBody{Detail: "No dreams found"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	ctx := context.Background()

	_, err := c.GetDream(ctx, 404)
	var nf *core.NotFoundError
	if !errors.As(err, &nf) || nf.ID != 404 {
		t.Fatalf("404: got %v", err)
	}

	_, err = c.DeleteDream(ctx, 503)
	var te *core.TransportError
	if !errors.As(err, &te) || te.StatusCode != 503 || !errors.Is(err, core.ErrStoreUnavailable) {
		t.Fatalf("503: got %v", err)
	}

	_, err = c.UpdateDream(ctx, 422, core.DreamPayload{})
	var ve *core.ValidationError
	if !errors.As(err, &ve) || !strings.Contains(ve.Error(), "empty name") {
		t.Fatalf("422: got %v", err)
	}

	records, err := c.ListByEmotion(ctx, "none")
	if err != nil || records == nil || len(records) != 0 {
		t.Fatalf("by-emotion 404 should be an empty list, got %v, %v", records, err)
	}

	_, err = c.GetDream(ctx, 1)
	if !errors.As(err, &te) || te.StatusCode != 500 {
		t.Fatalf("500: got %v", err)
	}
}

func TestClientWrites(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p core.DreamPayload
		if r.Method != http.MethodDelete {
			if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("content type = %q", r.Header.Get("Content-Type"))
			}
		}
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/dreams":
			writeJSON(w, http.StatusCreated, p.WithID(10))
		case r.Method == http.MethodPut && r.URL.Path == "/api/dreams/10":
			writeJSON(w, http.StatusOK, p.WithID(10))
		case r.Method == http.MethodDelete && r.URL.Path == "/api/dreams/10":
			d := "2024-01-01"
			writeJSON(w, http.StatusOK, core.DreamRecord{ID: 10, Name: "gone", DreamDate: &d})
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}))
	ctx := context.Background()
	d := "2024-01-01"

	created, err := c.CreateDream(ctx, core.DreamPayload{Name: "new", DreamDate: &d, Emotions: []string{"joy"}})
	if err != nil || created.ID != 10 || created.Emotions[0] != "joy" {
		t.Fatalf("create = %+v, %v", created, err)
	}
	updated, err := c.UpdateDream(ctx, 10, core.DreamPayload{Name: "renamed", DreamDate: &d})
	if err != nil || updated.Name != "renamed" {
		t.Fatalf("update = %+v, %v", updated, err)
	}
	deleted, err := c.DeleteDream(ctx, 10)
	if err != nil || deleted.Name != "gone" {
		t.Fatalf("delete = %+v, %v", deleted, err)
	}
}

func TestClientTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	_, err = c.GetDream(context.Background(), 1)
	var te *core.TransportError
	if !errors.As(err, &te) || te.StatusCode != 0 {
		t.Fatalf("got %v, want TransportError without status", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("ftp://example.com", time.Second); err == nil {
		t.Fatal("expected error for ftp scheme")
	}
}
