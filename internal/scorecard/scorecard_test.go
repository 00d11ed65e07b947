package scorecard

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scorecard.sqlite")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertScoreThenGet(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	s := Score{Source: "1234.5678", Outcome: "success", PDF: "main.pdf", NrPages: 12, Status: 0, Success: true}
	if err := db.UpsertScore(ctx, s); err != nil {
		t.Fatalf("UpsertScore: %v", err)
	}

	got, err := db.GetScore(ctx, "1234.5678")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if got == nil || got.PDF != "main.pdf" || !got.Success {
		t.Fatalf("got %+v", got)
	}
}

func TestUpsertScoreOverwritesExistingRow(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_ = db.UpsertScore(ctx, Score{Source: "src", Outcome: "fail", Status: 1, Success: false})
	_ = db.UpsertScore(ctx, Score{Source: "src", Outcome: "success", Status: 0, Success: true})

	got, err := db.GetScore(ctx, "src")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if got.Outcome != "success" || !got.Success {
		t.Fatalf("expected upsert to overwrite, got %+v", got)
	}
}

func TestGetScoreMissingReturnsNil(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetScore(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("expected nil,nil, got %v, %v", got, err)
	}
}

func TestTouchedRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if touched, err := db.IsTouched(ctx, "a.tex"); err != nil || touched {
		t.Fatalf("expected not touched, got %v, %v", touched, err)
	}
	if err := db.MarkTouched(ctx, "a.tex"); err != nil {
		t.Fatalf("MarkTouched: %v", err)
	}
	if touched, err := db.IsTouched(ctx, "a.tex"); err != nil || !touched {
		t.Fatalf("expected touched, got %v, %v", touched, err)
	}
}

func TestPurgeFailedRemovesOnlyUnsuccessful(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_ = db.UpsertScore(ctx, Score{Source: "good", Success: true})
	_ = db.UpsertScore(ctx, Score{Source: "bad", Success: false})

	n, err := db.PurgeFailed(ctx)
	if err != nil {
		t.Fatalf("PurgeFailed: %v", err)
	}
	if n != 1 {
		t.Fatalf("purged %d rows, want 1", n)
	}
	if got, _ := db.GetScore(ctx, "bad"); got != nil {
		t.Fatal("expected bad to be purged")
	}
	if got, _ := db.GetScore(ctx, "good"); got == nil {
		t.Fatal("expected good to remain")
	}
}
