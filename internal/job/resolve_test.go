package job

import "testing"

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestResolveUsesDefaultWhenOverrideMissing(t *testing.T) {
	spec := Resolve("ingest", Overrides{}, Defaults{WorkerType: strPtr("G.1X")})
	if spec.WorkerType != "G.1X" {
		t.Fatalf("expected default worker type G.1X, got %s", spec.WorkerType)
	}
}

func TestResolvePrefersOverride(t *testing.T) {
	spec := Resolve("ingest", Overrides{WorkerType: strPtr("G.2X")}, Defaults{WorkerType: strPtr("G.1X")})
	if spec.WorkerType != "G.2X" {
		t.Fatalf("expected override worker type G.2X, got %s", spec.WorkerType)
	}
}

func TestResolveFallsBackToBuiltins(t *testing.T) {
	spec := Resolve("ingest", Overrides{}, Defaults{})
	if spec.Name != "ingest" {
		t.Fatalf("unexpected name %q", spec.Name)
	}
	if spec.WorkerType != FallbackWorkerType {
		t.Fatalf("expected fallback worker type, got %s", spec.WorkerType)
	}
	if spec.NumberOfWorkers != FallbackNumberOfWorkers {
		t.Fatalf("expected fallback worker count, got %d", spec.NumberOfWorkers)
	}
	if spec.FromDate != FallbackFromDate || spec.ToDate != FallbackToDate {
		t.Fatalf("expected sentinel date range, got %s", spec.DateRange())
	}
	if spec.Priority != FallbackPriority {
		t.Fatalf("expected tier 0, got %d", spec.Priority)
	}
}

func TestResolveMergesArguments(t *testing.T) {
	defaults := Defaults{
		FromDate:  strPtr("2024-01-01"),
		ToDate:    strPtr("2024-01-31"),
		Arguments: map[string]string{"--env": "prod", "--mode": "full"},
	}
	overrides := Overrides{
		ToDate:    strPtr("2024-01-15"),
		Arguments: map[string]string{"--mode": "delta", FromDateArgument: "ignored"},
	}
	spec := Resolve("transform", overrides, defaults)
	if spec.Arguments["--env"] != "prod" {
		t.Fatalf("expected default argument to survive, got %+v", spec.Arguments)
	}
	if spec.Arguments["--mode"] != "delta" {
		t.Fatalf("expected override argument to win, got %+v", spec.Arguments)
	}
	if spec.Arguments[FromDateArgument] != "2024-01-01" || spec.Arguments[ToDateArgument] != "2024-01-15" {
		t.Fatalf("expected resolved date range in arguments, got %+v", spec.Arguments)
	}
	if got := spec.SortedArgumentKeys(); len(got) != 4 || got[0] != "--env" {
		t.Fatalf("unexpected argument keys %v", got)
	}
}

func TestResolveDoesNotAliasInputs(t *testing.T) {
	defaults := Defaults{Arguments: map[string]string{"--env": "prod"}}
	spec := Resolve("a", Overrides{}, defaults)
	spec.Arguments["--env"] = "dev"
	if defaults.Arguments["--env"] != "prod" {
		t.Fatalf("resolved spec must not share the defaults map")
	}
}

func TestPriorityChain(t *testing.T) {
	if got := Priority(Overrides{}, Defaults{}); got != 0 {
		t.Fatalf("expected tier 0, got %d", got)
	}
	if got := Priority(Overrides{}, Defaults{Priority: intPtr(3)}); got != 3 {
		t.Fatalf("expected default tier 3, got %d", got)
	}
	if got := Priority(Overrides{Priority: intPtr(5)}, Defaults{Priority: intPtr(3)}); got != 5 {
		t.Fatalf("expected override tier 5, got %d", got)
	}
}

func TestOutcomeMapping(t *testing.T) {
	if !OutcomeFor(StateSucceeded).OK() {
		t.Fatalf("succeeded must be ok")
	}
	if OutcomeFor(StateTimedOut) != OutcomeTimedOut {
		t.Fatalf("timed out must map to timed-out outcome")
	}
	if OutcomeFor(StateFailed).OK() {
		t.Fatalf("failed must not be ok")
	}
	if StateRunning.Terminal() {
		t.Fatalf("running must not be terminal")
	}
}
