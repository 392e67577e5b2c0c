package nop

import (
	"context"
	"strings"
	"testing"

	"github.com/kingrea/glue-runner/internal/job"
)

func TestDryRunSucceedsImmediately(t *testing.T) {
	client := New()
	handle, err := client.Start(context.Background(), job.Spec{Name: "ingest"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !strings.HasPrefix(string(handle), "dry_") {
		t.Fatalf("unexpected handle %q", handle)
	}
	state, err := client.Poll(context.Background(), handle)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if state != job.StateSucceeded {
		t.Fatalf("expected succeeded, got %s", state)
	}
	if client.Submitted() != 1 {
		t.Fatalf("expected 1 submission, got %d", client.Submitted())
	}
}

func TestDryRunRejectsUnknownHandle(t *testing.T) {
	if _, err := New().Poll(context.Background(), "dry_unknown"); err == nil {
		t.Fatalf("expected unknown handle error")
	}
}
