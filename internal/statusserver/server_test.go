package statusserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/kingrea/glue-runner/internal/config"
	"github.com/kingrea/glue-runner/internal/eventlog"
	"github.com/kingrea/glue-runner/internal/job"
)

func TestSettingsFromConfigHonorsEnv(t *testing.T) {
	t.Setenv("GLUE_RUNNER_STATUS_PORT", "9001")
	t.Setenv("GLUE_RUNNER_STATUS_HOST", "0.0.0.0")
	t.Setenv("GLUE_RUNNER_STATUS_ENABLED", "true")
	settings := SettingsFromConfig(&config.Config{})
	if settings.Port != 9001 {
		t.Fatalf("expected port 9001, got %d", settings.Port)
	}
	if settings.Host != "0.0.0.0" {
		t.Fatalf("expected host override, got %s", settings.Host)
	}
	if !settings.Enabled {
		t.Fatalf("expected enabled=true from env override")
	}
}

func TestSettingsFromConfigDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte("status:\n  enabled: true\n  port: 9100\n"), ".")
	if err != nil {
		t.Fatal(err)
	}
	settings := SettingsFromConfig(cfg)
	if !settings.Enabled || settings.Port != 9100 || settings.Host != config.DefaultStatusHost {
		t.Fatalf("unexpected settings %+v", settings)
	}
	if settings.ReadTimeout != DefaultReadTimeout {
		t.Fatalf("expected default read timeout")
	}
}

func seededSnapshot() *eventlog.Snapshot {
	snap := eventlog.NewSnapshot()
	now := time.Unix(1730000000, 0).UTC()
	spec := job.Spec{Name: "ingest", WorkerType: "G.1X", NumberOfWorkers: 2}
	snap.Record(eventlog.Event{Time: now, RunID: "run-1", Kind: eventlog.KindRunStarted})
	snap.Record(eventlog.Event{Time: now, RunID: "run-1", Kind: eventlog.KindTierStarted})
	submitted := eventlog.ForJob(eventlog.KindJobSubmitted, spec)
	submitted.Time = now
	submitted.Handle = "jr_1"
	snap.Record(submitted)
	progress := eventlog.ForJob(eventlog.KindJobProgress, spec)
	progress.Time = now
	progress.State = job.StateRunning
	snap.Record(progress)
	return snap
}

func TestServerServesSnapshot(t *testing.T) {
	t.Parallel()
	fixed := time.Unix(1730000000, 0).UTC()
	settings := Settings{Enabled: true, Host: "127.0.0.1", Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second, IdleTimeout: time.Second}
	srv := NewServer(settings, seededSnapshot(), WithClock(func() time.Time { return fixed }))
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
	})
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("start server: %v", err)
	}
	if srv.Status() != StatusReady {
		t.Fatalf("expected ready status, got %s", srv.Status())
	}
	resp, err := http.Get(srv.BaseURL() + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || health.Status != string(StatusReady) || health.Run.RunID != "run-1" {
		t.Fatalf("unexpected health %d %+v", resp.StatusCode, health)
	}

	resp, err = http.Get(srv.BaseURL() + "/jobs")
	if err != nil {
		t.Fatalf("jobs request failed: %v", err)
	}
	defer resp.Body.Close()
	var jobs jobsResponse
	if err := json.NewDecoder(resp.Body).Decode(&jobs); err != nil {
		t.Fatalf("decode jobs: %v", err)
	}
	if len(jobs.Jobs) != 1 || jobs.Jobs[0].Job != "ingest" || jobs.Jobs[0].State != job.StateRunning {
		t.Fatalf("unexpected jobs payload %+v", jobs)
	}
	if jobs.Run.Phase != eventlog.PhaseRunning {
		t.Fatalf("expected running phase, got %s", jobs.Run.Phase)
	}
}

func TestServerDisabled(t *testing.T) {
	srv := NewServer(Settings{}, nil)
	if err := srv.Start(context.Background()); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestHandlerJobLookup(t *testing.T) {
	handler := NewServer(Settings{}, seededSnapshot()).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/ingest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status eventlog.JobStatus
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Handle != "jr_1" || status.Polls != 1 {
		t.Fatalf("unexpected job status %+v", status)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandlerLogTail(t *testing.T) {
	book, err := eventlog.NewLogbook(filepath.Join(t.TempDir(), "runner.log"))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		book.Record(eventlog.Event{Time: time.Now(), RunID: "run-1", Kind: eventlog.KindTierStarted, Tier: i})
	}
	handler := NewServer(Settings{}, nil, WithLogSource(book)).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log?lines=2", nil))
	var payload map[string][]string
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || len(payload["lines"]) != 2 {
		t.Fatalf("expected 2 lines, got %d %v", rec.Code, payload)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log?lines=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewServer(Settings{}, nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a logbook, got %d", rec.Code)
	}
}
