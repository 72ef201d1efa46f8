package cache

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/gogpu/midgard/isa"
	"github.com/gogpu/midgard/mir"
)

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func program(name string, tag isa.Tag) *mir.Program {
	return &mir.Program{
		Name:  name,
		Stage: mir.StageFragment,
		Bundles: []*mir.Bundle{{
			Tag:          tag,
			Instructions: []*mir.Instruction{{Kind: mir.KindALU, Unit: isa.UnitSADD, Mask: 1}},
		}},
	}
}

func TestKey(t *testing.T) {
	k1, err := Key(program("a", isa.TagALU4))
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}
	if len(k1) != 32 {
		t.Errorf("key length = %d, want 32 hex digits", len(k1))
	}

	k2, _ := Key(program("a", isa.TagALU4))
	if k1 != k2 {
		t.Error("equal programs have different keys")
	}

	k3, _ := Key(program("a", isa.TagALU8))
	if k1 == k3 {
		t.Error("different programs share a key")
	}
}

func TestGetPut(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)

	key, err := Key(program("shader", isa.TagALU4))
	if err != nil {
		t.Fatalf("Key failed: %v", err)
	}

	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get on empty cache = ok %v, err %v", ok, err)
	}

	code := []byte{0x18, 0x00, 0x48, 0x00}
	if err := c.Put(ctx, key, "shader", code); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("Get after Put = ok %v, err %v", ok, err)
	}
	if !bytes.Equal(got, code) {
		t.Errorf("Get = % x, want % x", got, code)
	}

	replacement := []byte{0xAA}
	if err := c.Put(ctx, key, "shader", replacement); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, _, _ = c.Get(ctx, key)
	if !bytes.Equal(got, replacement) {
		t.Errorf("Get after replace = % x, want % x", got, replacement)
	}

	if n, err := c.Len(ctx); err != nil || n != 1 {
		t.Errorf("Len = %d, %v; want 1", n, err)
	}
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := c.Put(ctx, "k", "n", []byte{1, 2, 3}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	c, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c.Close()

	got, ok, err := c.Get(ctx, "k")
	if err != nil || !ok || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("Get after reopen = % x, ok %v, err %v", got, ok, err)
	}
	if c.Path() != path {
		t.Errorf("Path = %q, want %q", c.Path(), path)
	}
}

func TestClosed(t *testing.T) {
	ctx := context.Background()
	c := openTemp(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}

	if _, _, err := c.Get(ctx, "k"); !errors.Is(err, ErrClosed) {
		t.Errorf("Get error = %v, want ErrClosed", err)
	}
	if err := c.Put(ctx, "k", "n", nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Put error = %v, want ErrClosed", err)
	}
	if _, err := c.Len(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Len error = %v, want ErrClosed", err)
	}
}
