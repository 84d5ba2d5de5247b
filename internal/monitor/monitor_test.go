package monitor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/me/nanokern/internal/kernel"
	"github.com/me/nanokern/internal/logging"
	"github.com/me/nanokern/internal/store"
	"github.com/me/nanokern/pkg/model"
)

func testLogger() *slog.Logger {
	return logging.NewLoggerWithWriter(slog.LevelError, "text", io.Discard)
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, model.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp model.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response for %s: %v (body %q)", path, err, rec.Body.String())
	}
	return rec, resp
}

func TestHealthz(t *testing.T) {
	// Health must answer even when the kernel has not booted: neither the
	// access log nor the handler may wait on the interrupt mask.
	k := kernel.New(kernel.DefaultConfig(), testLogger())
	m := New(k, testLogger(), WithVersion("1.2.3"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		m.ServeHTTP(rec, req)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("healthz blocked on an unbooted kernel")
	}

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var resp model.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	if resp.Status != "ok" {
		t.Errorf("envelope status %q", resp.Status)
	}
	if resp.RequestID == "" {
		t.Errorf("missing request id")
	}
	data := resp.Data.(map[string]any)
	if data["version"] != "1.2.3" {
		t.Errorf("version: %v", data["version"])
	}
	if data["store"] != "disabled" {
		t.Errorf("store: %v", data["store"])
	}
	if data["tick"] != float64(0) {
		t.Errorf("tick before boot: %v", data["tick"])
	}
}

func TestThreadsEndpoint(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig(), testLogger())
	m := New(k, testLogger())

	err := k.Run(func() {
		if _, err := k.Create("sleeper", kernel.PriDefault, func() {
			k.SleepUntil(1000)
		}); err != nil {
			t.Errorf("Create: %v", err)
		}
		k.Yield()

		rec, resp := get(t, m, "/api/v1/threads")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		threads := resp.Data.([]any)
		names := make(map[string]bool)
		for _, ti := range threads {
			names[ti.(map[string]any)["name"].(string)] = true
		}
		for _, want := range []string{"main", "idle", "sleeper"} {
			if !names[want] {
				t.Errorf("thread %q missing from %v", want, names)
			}
		}

		k.InInterrupt(func() { k.Wakeup(1000) })
		k.Quiesce(nil)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestStatsEndpoint(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig(), testLogger())
	m := New(k, testLogger())

	err := k.Run(func() {
		k.InInterrupt(func() { k.ClockTick() })

		rec, resp := get(t, m, "/api/v1/stats")
		if rec.Code != http.StatusOK {
			t.Fatalf("status %d", rec.Code)
		}
		data := resp.Data.(map[string]any)
		if data["ticks"] != "1" {
			t.Errorf("ticks after one interrupt: %v", data["ticks"])
		}
		if data["idle_share"] == "" {
			t.Errorf("idle share missing")
		}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunsWithoutStore(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig(), testLogger())
	m := New(k, testLogger())

	rec, resp := get(t, m, "/api/v1/runs")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "store_disabled" {
		t.Errorf("error envelope: %+v", resp.Error)
	}
}

func TestRunsEndpoints(t *testing.T) {
	st, err := store.NewSQLiteStore(":memory:", testLogger())
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	ctx := context.Background()
	if err := st.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	run := &model.Run{ID: "run_mon1", Scenario: "demo", StartedAt: time.Now().UTC()}
	if err := st.CreateRun(ctx, run); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := st.AppendEvents(ctx, run.ID, []model.Event{
		{Seq: 1, Tick: 0, Kind: model.EventCreated, ThreadID: 3, Thread: "w"},
	}); err != nil {
		t.Fatalf("AppendEvents: %v", err)
	}

	k := kernel.New(kernel.DefaultConfig(), testLogger())
	m := New(k, testLogger(), WithStore(st))

	rec, resp := get(t, m, "/api/v1/runs")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status %d", rec.Code)
	}
	if runs := resp.Data.([]any); len(runs) != 1 {
		t.Errorf("expected 1 run, got %d", len(runs))
	}

	rec, resp = get(t, m, "/api/v1/runs/run_mon1")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status %d", rec.Code)
	}
	if resp.Data.(map[string]any)["scenario"] != "demo" {
		t.Errorf("run payload: %+v", resp.Data)
	}

	rec, resp = get(t, m, "/api/v1/runs/run_mon1/events")
	if rec.Code != http.StatusOK {
		t.Fatalf("events status %d", rec.Code)
	}
	if events := resp.Data.([]any); len(events) != 1 {
		t.Errorf("expected 1 event, got %d", len(events))
	}

	rec, resp = get(t, m, "/api/v1/runs/run_missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing run status %d", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "not_found" {
		t.Errorf("missing run error: %+v", resp.Error)
	}
}
