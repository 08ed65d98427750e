package taskstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hazyhaar/docmd/convert"
	"github.com/hazyhaar/docmd/dbopen"
)

func testResult(id string, created time.Time) *convert.Result {
	return &convert.Result{
		TaskID:    id,
		Status:    convert.StatusCompleted,
		InputFile: id + ".docx",
		Steps: []convert.Step{
			{Name: "docx_to_html", Success: true, DurationMS: 12},
			{Name: "html_to_markdown", Success: true, DurationMS: 3},
		},
		Stats:     convert.Statistics{Tables: 2, Images: 1, TotalDurationMS: 15},
		CreatedAt: created,
	}
}

func testBatch(id string, created time.Time) *convert.BatchResult {
	return &convert.BatchResult{
		BatchID:    id,
		TotalFiles: 3,
		Completed:  2,
		Failed:     1,
		Status:     convert.StatusCompleted,
		CreatedAt:  created,
	}
}

func runStoreTests(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if _, err := store.GetResult(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetResult(missing) = %v, want ErrNotFound", err)
	}
	if _, err := store.GetBatch(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBatch(missing) = %v, want ErrNotFound", err)
	}

	for i, id := range []string{"t1", "t2", "t3"} {
		if err := store.PutResult(ctx, testResult(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("PutResult(%s): %v", id, err)
		}
	}

	got, err := store.GetResult(ctx, "t2")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.InputFile != "t2.docx" || len(got.Steps) != 2 || got.Stats.TotalDurationMS != 15 {
		t.Errorf("round-trip mismatch: %+v", got)
	}

	// upsert changes status in place
	upd := testResult("t2", base.Add(time.Minute))
	upd.Status = convert.StatusFailed
	upd.Error = "pandoc failed"
	if err := store.PutResult(ctx, upd); err != nil {
		t.Fatalf("PutResult upsert: %v", err)
	}
	got, err = store.GetResult(ctx, "t2")
	if err != nil {
		t.Fatalf("GetResult after upsert: %v", err)
	}
	if got.Status != convert.StatusFailed || got.Error != "pandoc failed" {
		t.Errorf("upsert not applied: %+v", got)
	}

	list, err := store.ListResults(ctx, 0)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListResults len = %d", len(list))
	}
	if list[0].TaskID != "t3" {
		t.Errorf("newest first: got %s", list[0].TaskID)
	}

	list, err = store.ListResults(ctx, 2)
	if err != nil {
		t.Fatalf("ListResults limit: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("limit ignored: len = %d", len(list))
	}

	for i, id := range []string{"b1", "b2"} {
		if err := store.PutBatch(ctx, testBatch(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("PutBatch(%s): %v", id, err)
		}
	}
	batch, err := store.GetBatch(ctx, "b1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if batch.TotalFiles != 3 || batch.Completed != 2 || batch.Failed != 1 {
		t.Errorf("batch round-trip mismatch: %+v", batch)
	}

	batches, err := store.ListBatches(ctx, 0)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	if len(batches) != 2 || batches[0].BatchID != "b2" {
		t.Errorf("batches = %+v", batches)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemory()
	defer store.Close()
	runStoreTests(t, store)
}

func TestSQLiteStore(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	store := NewSQLite(db)
	runStoreTests(t, store)
}

func TestOpenSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tasks.db")
	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.PutResult(ctx, testResult("t1", time.Now().UTC())); err != nil {
		t.Fatalf("PutResult: %v", err)
	}
	got, err := store.GetResult(ctx, "t1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.TaskID != "t1" {
		t.Errorf("task id = %q", got.TaskID)
	}
}
