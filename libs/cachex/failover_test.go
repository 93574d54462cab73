package cachex

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type brokenCache struct{}

var errBackend = errors.New("backend unreachable")

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errBackend
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error { return errBackend }
func (brokenCache) Delete(context.Context, ...string) error                  { return errBackend }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFailoverFallsBackOnPrimaryError(t *testing.T) {
	ctx := context.Background()
	c := NewFailover(brokenCache{}, NewMemory(), discardLogger())

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set should succeed via fallback: %v", err)
	}
	val, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("expected fallback hit, got ok=%v val=%q err=%v", ok, val, err)
	}
}

func TestFailoverPrefersPrimary(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	secondary := NewMemory()
	c := NewFailover(primary, secondary, discardLogger())

	if err := c.Set(ctx, "k", []byte("shared"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := primary.Get(ctx, "k"); !ok {
		t.Fatal("expected value in primary")
	}
	if _, ok, _ := secondary.Get(ctx, "k"); ok {
		t.Fatal("value should not be duplicated into secondary when primary is healthy")
	}
}

func TestFailoverDeleteClearsBothLayers(t *testing.T) {
	ctx := context.Background()
	primary := NewMemory()
	secondary := NewMemory()
	c := NewFailover(primary, secondary, discardLogger())

	_ = primary.Set(ctx, "k", []byte("a"), 0)
	_ = secondary.Set(ctx, "k", []byte("b"), 0)

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := primary.Get(ctx, "k"); ok {
		t.Fatal("expected primary entry removed")
	}
	if _, ok, _ := secondary.Get(ctx, "k"); ok {
		t.Fatal("expected secondary entry removed")
	}
}
