package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"burnloop/internal/history"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession(id string, started time.Time) history.Session {
	return history.Session{
		ID:            id,
		StartedAt:     started,
		TriggerDevice: "/dev/ttyUSB0",
		Copies:        2,
		Lines:         [3]string{"SN-100 0126", "batch 7", ""},
		ArtifactCount: 2,
	}
}

func TestBeginAndGet(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Millisecond)
	if err := store.Begin(ctx, sampleSession("sess-1", started)); err != nil {
		t.Fatalf("begin: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Active() {
		t.Fatal("fresh session reported as ended")
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("started_at = %v, want %v", got.StartedAt, started)
	}
	if got.Lines[0] != "SN-100 0126" || got.Copies != 2 || got.ArtifactCount != 2 {
		t.Fatalf("session = %+v", got)
	}
}

func TestFinishRecordsOutcome(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if err := store.Begin(ctx, sampleSession("sess-1", time.Now())); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.Finish(ctx, "sess-1", history.OutcomeStopped, "", 14); err != nil {
		t.Fatalf("finish: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Active() {
		t.Fatal("finished session reported as active")
	}
	if got.Outcome != history.OutcomeStopped || got.LayersCompleted != 14 {
		t.Fatalf("session = %+v", got)
	}
}

func TestFinishUnknownSession(t *testing.T) {
	store := openStore(t)
	err := store.Finish(context.Background(), "ghost", history.OutcomeFailed, "boom", 0)
	if !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Begin(ctx, sampleSession(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("begin %s: %v", id, err)
		}
	}

	sessions, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("len = %d, want 2", len(sessions))
	}
	if sessions[0].ID != "new" || sessions[1].ID != "mid" {
		t.Fatalf("order = [%s, %s], want [new, mid]", sessions[0].ID, sessions[1].ID)
	}
}

func TestPruneKeepsActiveSessions(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	if err := store.Begin(ctx, sampleSession("ended-old", old)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := store.Finish(ctx, "ended-old", history.OutcomeStopped, "", 3); err != nil {
		t.Fatalf("finish: %v", err)
	}
	if err := store.Begin(ctx, sampleSession("active-old", old)); err != nil {
		t.Fatalf("begin: %v", err)
	}

	pruned, err := store.Prune(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if pruned != 1 {
		t.Fatalf("pruned = %d, want 1", pruned)
	}
	if _, err := store.Get(ctx, "active-old"); err != nil {
		t.Fatalf("active session pruned: %v", err)
	}
	if _, err := store.Get(ctx, "ended-old"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("ended session survived prune: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")

	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Begin(context.Background(), sampleSession("sess-1", time.Now())); err != nil {
		t.Fatalf("begin: %v", err)
	}
	store.Close()

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, err := reopened.Get(context.Background(), "sess-1"); err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
}
