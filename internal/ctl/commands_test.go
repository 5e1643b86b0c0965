package ctl

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dreams/internal/core"
	"dreams/internal/journal/memory"
)

func seed() []core.DreamRecord {
	return []core.DreamRecord{
		{ID: 1, Name: "Flying", DreamDate: strPtr("2024-02-10"), Emotions: []string{"joy"}},
		{ID: 2, Name: "Falling", DreamDate: strPtr("2024-02-20"), Emotions: []string{"fear"}},
		{ID: 3, Name: "Spring", DreamDate: strPtr("2024-03-01"), Emotions: []string{"joy"}},
	}
}

func run(t *testing.T, store *memory.Store, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := NewRootCommand(Options{Store: store, Out: &buf, Now: func() time.Time { return fixedNow }})
	cmd.SetArgs(append(args, "--color", "never"))
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestCalendarCommand(t *testing.T) {
	store := memory.New(seed())

	out, err := run(t, store, "calendar", "--year", "2024", "--month", "2")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "February 2024") || !strings.Contains(out, "2 dreams") {
		t.Fatalf("output:\n%s", out)
	}

	out, err = run(t, store, "cal")
	if err != nil || !strings.Contains(out, "February 2024") {
		t.Fatalf("default month: %v\n%s", err, out)
	}

	if _, err := run(t, store, "calendar", "--month", "13"); !errors.Is(err, core.ErrInvalidMonth) {
		t.Fatalf("err = %v", err)
	}
}

func TestEmotionsAndFind(t *testing.T) {
	store := memory.New(seed())

	out, err := run(t, store, "emotions", "--year", "2024", "--month", "2")
	if err != nil || out != "fear\njoy\n" {
		t.Fatalf("emotions = %q, %v", out, err)
	}

	out, err = run(t, store, "find", "joy")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Flying") || !strings.Contains(out, "Spring") || strings.Contains(out, "Falling") {
		t.Fatalf("find output:\n%s", out)
	}

	if _, err := run(t, store, "find", "rage"); err == nil {
		t.Fatal("expected error for an unknown emotion")
	}
}

func TestShowCommand(t *testing.T) {
	store := memory.New(seed())

	out, err := run(t, store, "show", "1")
	if err != nil || !strings.Contains(out, "#1 Flying") {
		t.Fatalf("show = %q, %v", out, err)
	}
	if _, err := run(t, store, "show", "99"); !core.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
	if _, err := run(t, store, "show", "abc"); err == nil {
		t.Fatal("expected error for a bad id")
	}
}

func TestAddCommand(t *testing.T) {
	store := memory.New(seed())

	out, err := run(t, store, "add", "--name", "Sea", "--emotions", "calm, awe", "--sleep", "6", "--lucid")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Created dream 4") {
		t.Fatalf("output:\n%s", out)
	}
	rec, err := store.GetDream(context.Background(), 4)
	if err != nil {
		t.Fatal(err)
	}
	if *rec.DreamDate != "2024-02-14" || !rec.Lucidity || *rec.SleepDuration != 6 || len(rec.Emotions) != 2 {
		t.Fatalf("stored = %+v", rec)
	}

	var numErr *core.InvalidNumberError
	if _, err := run(t, store, "add", "--name", "x", "--sleep", "abc"); !errors.As(err, &numErr) {
		t.Fatalf("err = %v", err)
	}
	if _, err := run(t, store, "add", "--date", "2024-02-01"); err == nil {
		t.Fatal("name is required")
	}
	if store.Len() != 4 {
		t.Fatalf("failed adds stored dreams: %d", store.Len())
	}
}

func TestEditCommand(t *testing.T) {
	store := memory.New(seed())

	if _, err := run(t, store, "edit", "1", "--stress", "4"); err != nil {
		t.Fatal(err)
	}
	rec, _ := store.GetDream(context.Background(), 1)
	if rec.Name != "Flying" || rec.StressBeforeSleep == nil || *rec.StressBeforeSleep != 4 {
		t.Fatalf("edited = %+v", rec)
	}
	if len(rec.Emotions) != 1 || rec.Emotions[0] != "joy" {
		t.Fatalf("unset flags must keep their value: %v", rec.Emotions)
	}

	if _, err := run(t, store, "edit", "1", "--emotions", ""); err != nil {
		t.Fatal(err)
	}
	rec, _ = store.GetDream(context.Background(), 1)
	if len(rec.Emotions) != 0 {
		t.Fatalf("emotions should be cleared: %v", rec.Emotions)
	}

	if _, err := run(t, store, "edit", "1", "--stress", "11"); !errors.Is(err, core.ErrStressOutOfRange) {
		t.Fatalf("err = %v", err)
	}
	if _, err := run(t, store, "edit", "42", "--name", "x"); !core.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteCommand(t *testing.T) {
	store := memory.New(seed())

	out, err := run(t, store, "delete", "2")
	if err != nil || !strings.Contains(out, "Deleted dream 2 (Falling)") {
		t.Fatalf("delete = %q, %v", out, err)
	}
	if store.Len() != 2 {
		t.Fatalf("len = %d", store.Len())
	}
	if _, err := run(t, store, "rm", "2"); !core.IsNotFound(err) {
		t.Fatalf("err = %v", err)
	}
}

func TestRemoteStore(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/dreams" || r.URL.Query().Get("month") != "2" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":7,"name":"Remote","dream_date":"2024-02-03","emotions":["awe"]}]`))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	cmd := NewRootCommand(Options{Out: &buf, Now: func() time.Time { return fixedNow }})
	cmd.SetArgs([]string{"emotions", "--api", srv.URL, "--year", "2024", "--month", "2", "--color", "never"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "awe\n" {
		t.Fatalf("output = %q", buf.String())
	}
}

func TestInvalidColorFlag(t *testing.T) {
	cmd := NewRootCommand(Options{Store: memory.New(nil), Out: &bytes.Buffer{}})
	cmd.SetArgs([]string{"emotions", "--color", "sometimes"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error")
	}
}
