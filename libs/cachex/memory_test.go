package cachex

import (
	"context"
	"testing"
	"time"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}

	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("expected hit with \"v\", got ok=%v val=%q err=%v", ok, val, err)
	}

	if err := c.Delete(ctx, "k", "missing"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before expiry")
	}
	time.Sleep(20 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Fatal("expected miss after expiry")
	}
}

func TestMemoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	src := []byte("abc")
	if err := c.Set(ctx, "k", src, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	src[0] = 'x'

	val, ok, _ := c.Get(ctx, "k")
	if !ok || string(val) != "abc" {
		t.Fatalf("expected cached value unaffected by caller mutation, got %q", val)
	}
}
