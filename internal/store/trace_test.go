package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeTrace(t *testing.T, baseDir, runID string, append bool, entries ...TraceEntry) {
	t.Helper()

	writer, err := NewTraceWriter(baseDir, runID, append)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	for _, entry := range entries {
		if err := writer.Write(entry); err != nil {
			t.Fatalf("Failed to write entry: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}
}

func TestTraceWriter_WriteAndRead(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-123"

	entries := []TraceEntry{
		{Iteration: 1, Objective: 24.2, Best: 24.2},
		{Iteration: 2, Objective: 4.1, Best: 4.1},
		{Iteration: 3, Objective: 4.5, Best: 4.1, Params: []float64{0.5, 0.25}},
	}
	writeTrace(t, tmpDir, runID, false, entries...)

	path := filepath.Join(tmpDir, "runs", runID, "trace.jsonl")
	if TracePath(tmpDir, runID) != path {
		t.Errorf("TracePath() = %s, want %s", TracePath(tmpDir, runID), path)
	}

	got, err := ReadTrace(tmpDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Expected %d entries, got %d", len(entries), len(got))
	}
	for i, entry := range got {
		if entry.Iteration != entries[i].Iteration || entry.Objective != entries[i].Objective || entry.Best != entries[i].Best {
			t.Errorf("Entry %d = %+v, want %+v", i, entry, entries[i])
		}
		if len(entry.Params) != len(entries[i].Params) {
			t.Errorf("Entry %d: expected %d params, got %d", i, len(entries[i].Params), len(entry.Params))
		}
		if entry.Timestamp.IsZero() {
			t.Errorf("Entry %d: timestamp should be filled in", i)
		}
	}
}

func TestTraceWriter_AppendAndTruncate(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-append"

	writeTrace(t, tmpDir, runID, false, TraceEntry{Iteration: 1}, TraceEntry{Iteration: 2})
	writeTrace(t, tmpDir, runID, true, TraceEntry{Iteration: 3})

	got, err := ReadTrace(tmpDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 3 || got[2].Iteration != 3 {
		t.Fatalf("Expected three entries ending at iteration 3, got %+v", got)
	}

	writeTrace(t, tmpDir, runID, false, TraceEntry{Iteration: 1})
	got, err = ReadTrace(tmpDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("A fresh trace should replace the old one, got %d entries", len(got))
	}
}

func TestTraceWriter_Flush(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-flush"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}
	defer writer.Close()

	if err := writer.Write(TraceEntry{Iteration: 1, Objective: 0.5}); err != nil {
		t.Fatalf("Failed to write entry: %v", err)
	}

	info, err := os.Stat(writer.Path())
	if err != nil {
		t.Fatalf("Failed to stat trace: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("Entries should be buffered until Flush, file has %d bytes", info.Size())
	}

	if err := writer.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	info, err = os.Stat(writer.Path())
	if err != nil {
		t.Fatalf("Failed to stat trace: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Trace file is empty after Flush")
	}
}

func TestTraceReader_ReadIteratively(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-iter"
	writeTrace(t, tmpDir, runID, false, TraceEntry{Iteration: 1}, TraceEntry{Iteration: 2})

	reader, err := NewTraceReader(tmpDir, runID)
	if err != nil {
		t.Fatalf("Failed to create trace reader: %v", err)
	}
	defer reader.Close()

	for want := 1; want <= 2; want++ {
		entry, err := reader.Read()
		if err != nil {
			t.Fatalf("Read %d failed: %v", want, err)
		}
		if entry.Iteration != want {
			t.Errorf("Iteration = %d, want %d", entry.Iteration, want)
		}
	}
	if _, err := reader.Read(); err != io.EOF {
		t.Errorf("Expected io.EOF, got %v", err)
	}
}

func TestTraceReader_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := NewTraceReader(tmpDir, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	runID := "run-corrupt"
	if err := os.MkdirAll(RunDir(tmpDir, runID), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(TracePath(tmpDir, runID), []byte("{\"iteration\":1}\nnot json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTrace(tmpDir, runID); err == nil {
		t.Error("Expected error for corrupt trace line")
	}
}

func TestDeleteTrace(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-delete"
	writeTrace(t, tmpDir, runID, false, TraceEntry{Iteration: 1})

	if err := DeleteTrace(tmpDir, runID); err != nil {
		t.Fatalf("DeleteTrace failed: %v", err)
	}
	if _, err := os.Stat(TracePath(tmpDir, runID)); !os.IsNotExist(err) {
		t.Error("Trace file should be deleted")
	}

	if err := DeleteTrace(tmpDir, runID); err != nil {
		t.Errorf("Deleting a missing trace should succeed, got %v", err)
	}
}

func TestTraceWriter_ConcurrentWrites(t *testing.T) {
	tmpDir := t.TempDir()
	runID := "run-concurrent"

	writer, err := NewTraceWriter(tmpDir, runID, false)
	if err != nil {
		t.Fatalf("Failed to create trace writer: %v", err)
	}

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				entry := TraceEntry{Iteration: w*perWriter + i, Params: []float64{float64(w), float64(i)}}
				if err := writer.Write(entry); err != nil {
					t.Errorf("writer %d: %v", w, err)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	got, err := ReadTrace(tmpDir, runID)
	if err != nil {
		t.Fatalf("ReadTrace failed: %v", err)
	}
	if len(got) != writers*perWriter {
		t.Fatalf("Expected %d entries, got %d", writers*perWriter, len(got))
	}

	seen := make(map[int]bool)
	for _, entry := range got {
		seen[entry.Iteration] = true
	}
	if len(seen) != writers*perWriter {
		t.Errorf("Expected %d distinct iterations, got %d", writers*perWriter, len(seen))
	}
}
