package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kingrea/glue-runner/internal/dispatch"
	"github.com/kingrea/glue-runner/internal/monitor"
)

const sampleYAML = `
aws:
  region: eu-west-1
  aws_access_key_id: AKIDEXAMPLE
  aws_secret_access_key: secret
defaults:
  worker_type: G.1X
  number_of_workers: 4
  from_date: "2024-01-01"
  to_date: "2024-01-31"
  arguments:
    "--env": prod
jobs:
  transform:
    priority: 1
    worker_type: G.2X
  ingest:
    priority: 0
  export:
runner:
  max_parallel: 3
poll:
  interval: 10s
  max_interval: 1m
  multiplier: 2
  jitter: 0.2
  max_wait: 2h
log:
  file: logs/runner.log
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "glue-config.yml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(body)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadParsesYaml(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	entries := cfg.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(entries))
	}
	order := []string{entries[0].Name, entries[1].Name, entries[2].Name}
	if strings.Join(order, ",") != "transform,ingest,export" {
		t.Fatalf("expected file order, got %v", order)
	}
	if got := *entries[0].Overrides.WorkerType; got != "G.2X" {
		t.Fatalf("expected override worker type, got %s", got)
	}
	if entries[2].Overrides.Priority != nil {
		t.Fatalf("expected empty job entry to carry no overrides")
	}
	if *cfg.Defaults().NumberOfWorkers != 4 || cfg.Defaults().Arguments["--env"] != "prod" {
		t.Fatalf("unexpected defaults %+v", cfg.Defaults())
	}
	if cfg.File.Runner.MaxParallel != 3 {
		t.Fatalf("expected max parallel 3, got %d", cfg.File.Runner.MaxParallel)
	}
	want := monitor.Policy{Interval: 10 * time.Second, MaxInterval: time.Minute, Multiplier: 2, Jitter: 0.2, MaxWait: 2 * time.Hour}
	if got := cfg.MonitorPolicy(); got != want {
		t.Fatalf("unexpected policy %+v", got)
	}
	if creds := cfg.Credentials(); creds.Region != "eu-west-1" || creds.AccessKeyID != "AKIDEXAMPLE" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if !strings.HasPrefix(cfg.File.Log.File, filepath.Dir(path)) {
		t.Fatalf("expected log path resolved against config dir, got %s", cfg.File.Log.File)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "jobs:\n  only:\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.File.Status.Port != DefaultStatusPort || cfg.File.Status.Host != DefaultStatusHost {
		t.Fatalf("unexpected status defaults %+v", cfg.File.Status)
	}
	if cfg.File.Status.Enabled {
		t.Fatalf("status server must be disabled by default")
	}
	policy := cfg.MonitorPolicy()
	if policy.Interval != monitor.DefaultInterval || policy.Multiplier != 1 {
		t.Fatalf("unexpected poll defaults %+v", policy)
	}
}

func TestLoadAcceptsEmptyJobs(t *testing.T) {
	cfg, err := Load(writeConfig(t, "jobs:\n"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Entries()) != 0 {
		t.Fatalf("expected no jobs")
	}
}

func TestLoadRejectsDuplicateJobs(t *testing.T) {
	_, err := Load(writeConfig(t, "jobs:\n  ingest: {priority: 0}\n  ingest: {priority: 1}\n"))
	if !errors.Is(err, dispatch.ErrDuplicateJob) {
		t.Fatalf("expected duplicate job error, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]string{
		"workers":  "jobs:\n  a: {number_of_workers: 0}\n",
		"too many": "defaults:\n  number_of_workers: 2147483648\n",
		"parallel": "runner:\n  max_parallel: -1\n",
		"jitter":   "poll:\n  jitter: 2\n",
		"duration": "poll:\n  interval: soon\n",
		"jobs":     "jobs:\n  - a\n",
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestDurationAcceptsSeconds(t *testing.T) {
	cfg, err := Parse([]byte("poll:\n  interval: 45\n"), ".")
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cfg.MonitorPolicy().Interval != 45*time.Second {
		t.Fatalf("expected 45s, got %s", cfg.MonitorPolicy().Interval)
	}
}

func TestApplySet(t *testing.T) {
	cfg, err := Parse([]byte("jobs:\n  a:\n"), ".")
	if err != nil {
		t.Fatal(err)
	}
	for _, assignment := range []string{"worker_type=G.4X", "number_of_workers=10", "from_date=2024-02-01", "--region=eu", "priority=3"} {
		if err := cfg.ApplySet(assignment); err != nil {
			t.Fatalf("ApplySet(%q): %v", assignment, err)
		}
	}
	d := cfg.Defaults()
	if *d.WorkerType != "G.4X" || *d.NumberOfWorkers != 10 || *d.FromDate != "2024-02-01" || *d.Priority != 3 {
		t.Fatalf("unexpected defaults %+v", d)
	}
	if d.Arguments["--region"] != "eu" {
		t.Fatalf("expected argument override, got %v", d.Arguments)
	}
	for _, bad := range []string{"novalue", "number_of_workers=x", "number_of_workers=0", "number_of_workers=2147483648", "colour=blue"} {
		if err := cfg.ApplySet(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
