package history

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRecordAndRecentRuns(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	first := RunRecord{
		ID:               "run-1",
		Start:            time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		Duration:         1250 * time.Millisecond,
		Outcome:          "success",
		FilesSeen:        12,
		FilesTransformed: 8,
		FilesCopied:      3,
		FilesSkipped:     1,
		Pages:            20,
		ConfigWritten:    true,
	}
	second := RunRecord{
		ID:          "run-2",
		Start:       time.Date(2026, 2, 1, 10, 5, 0, 0, time.UTC),
		Duration:    900 * time.Millisecond,
		Outcome:     "failed",
		FilesSeen:   12,
		FilesFailed: 2,
		BrokenLinks: 1,
		Warnings:    2,
		Error:       "load base document: not found",
	}

	if err := store.RecordRun(ctx, first); err != nil {
		t.Fatalf("failed to record run: %v", err)
	}
	if err := store.RecordRun(ctx, second); err != nil {
		t.Fatalf("failed to record run: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("failed to query runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}

	// Most recent first.
	if runs[0].ID != "run-2" || runs[1].ID != "run-1" {
		t.Errorf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}

	got := runs[1]
	if !got.Start.Equal(first.Start) {
		t.Errorf("start: got %v, want %v", got.Start, first.Start)
	}
	if got.Duration != first.Duration {
		t.Errorf("duration: got %v, want %v", got.Duration, first.Duration)
	}
	if got.Outcome != "success" {
		t.Errorf("outcome: got %s", got.Outcome)
	}
	if got.FilesTransformed != 8 || got.FilesCopied != 3 || got.FilesSkipped != 1 {
		t.Errorf("file counts not preserved: %+v", got)
	}
	if !got.ConfigWritten {
		t.Error("expected config_written to round-trip")
	}
	if runs[0].ConfigWritten {
		t.Error("expected config_written false for second run")
	}
	if runs[0].BrokenLinks != 1 || runs[0].Warnings != 2 {
		t.Errorf("warning counts not preserved: %+v", runs[0])
	}
	if runs[0].Error != "load base document: not found" {
		t.Errorf("error text not preserved: %q", runs[0].Error)
	}
	if got.Error != "" {
		t.Errorf("expected empty error for successful run, got %q", got.Error)
	}
}

func TestRecentRunsLimit(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := t.Context()
	for i := 0; i < 5; i++ {
		rec := RunRecord{ID: "run", Start: time.Now(), Outcome: "success"}
		if err := store.RecordRun(ctx, rec); err != nil {
			t.Fatalf("failed to record run: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 3)
	if err != nil {
		t.Fatalf("failed to query runs: %v", err)
	}
	if len(runs) != 3 {
		t.Errorf("expected 3 runs with limit, got %d", len(runs))
	}
}

func TestOpenPersistsAcrossReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), FileName)

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	rec := RunRecord{ID: "run-persist", Start: time.Now(), Outcome: "failed"}
	if err := store.RecordRun(t.Context(), rec); err != nil {
		t.Fatalf("failed to record run: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	runs, err := reopened.RecentRuns(t.Context(), 1)
	if err != nil {
		t.Fatalf("failed to query runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-persist" {
		t.Fatalf("expected persisted run, got %+v", runs)
	}
}
