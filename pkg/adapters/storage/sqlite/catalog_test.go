package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/promptmotion/manimatic/internal/domain"
	"go.uber.org/zap"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog(filepath.Join(t.TempDir(), "catalog.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRecordAndGet(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	done := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	gen := &domain.Generation{
		ID:          "gen-1",
		Prompt:      "sine wave morphing into a circle",
		Model:       domain.ModelClaude,
		Status:      domain.StatusCompleted,
		VideoPath:   "outputs/gen-1.mp4",
		SubmittedAt: time.Now().UTC().Truncate(time.Second),
		CompletedAt: &done,
	}
	if err := c.Record(ctx, gen); err != nil {
		t.Fatalf("Record: %v", err)
	}

	got, err := c.Get(ctx, "gen-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Prompt != gen.Prompt || got.Status != domain.StatusCompleted {
		t.Fatalf("unexpected entry: %+v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Fatalf("completed_at = %v, want %v", got.CompletedAt, done)
	}
}

func TestRecordReplacesExisting(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	gen := &domain.Generation{
		ID:          "gen-2",
		Prompt:      "bouncing ball",
		Model:       domain.ModelGroq,
		Status:      domain.StatusFailed,
		Error:       "render failed",
		SubmittedAt: time.Now().UTC(),
	}
	if err := c.Record(ctx, gen); err != nil {
		t.Fatalf("Record: %v", err)
	}

	gen.Status = domain.StatusCompleted
	gen.Error = ""
	if err := c.Record(ctx, gen); err != nil {
		t.Fatalf("Record (update): %v", err)
	}

	got, err := c.Get(ctx, "gen-2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.Error != "" {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestGetUnknown(t *testing.T) {
	c := newTestCatalog(t)

	_, err := c.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"old", "mid", "new"} {
		gen := &domain.Generation{
			ID:          id,
			Prompt:      "p",
			Model:       domain.ModelClaude,
			Status:      domain.StatusCompleted,
			SubmittedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := c.Record(ctx, gen); err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}

	gens, err := c.List(ctx, 2, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(gens) != 2 || gens[0].ID != "new" || gens[1].ID != "mid" {
		t.Fatalf("unexpected order: %+v", gens)
	}

	rest, err := c.List(ctx, 2, 2)
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest) != 1 || rest[0].ID != "old" {
		t.Fatalf("unexpected page: %+v", rest)
	}
}
