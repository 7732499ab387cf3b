package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRemote_GetMiss(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()

	_, found, err := m.Get(ctx, "missing")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if found {
		t.Fatal("expected miss")
	}
}

func TestMemoryRemote_ExecBatch(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()

	b := &Batch{}
	b.Set("k1", "v1", time.Hour)
	b.Set("k2", "v2", time.Hour)
	b.SAdd("members", time.Hour, "a", "b")
	if err := m.Exec(ctx, b); err != nil {
		t.Fatalf("exec: %v", err)
	}

	v, found, err := m.Get(ctx, "k1")
	if err != nil || !found || v != "v1" {
		t.Fatalf("expected k1=v1, got %q found=%v err=%v", v, found, err)
	}

	got, err := m.MGet(ctx, []string{"k1", "gone", "k2"})
	if err != nil {
		t.Fatalf("mget: %v", err)
	}
	if len(got) != 2 || got["k1"] != "v1" || got["k2"] != "v2" {
		t.Fatalf("unexpected mget result: %v", got)
	}

	members, err := m.SMembers(ctx, "members")
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Fatalf("unexpected members: %v", members)
	}
}

func TestMemoryRemote_SAddIdempotent(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b := &Batch{}
		b.SAdd("members", time.Hour, "a")
		if err := m.Exec(ctx, b); err != nil {
			t.Fatalf("exec %d: %v", i, err)
		}
	}

	members, err := m.SMembers(ctx, "members")
	if err != nil {
		t.Fatalf("smembers: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected exactly one member, got %v", members)
	}
}

func TestMemoryRemote_Exists(t *testing.T) {
	m := NewMemoryRemote()
	ctx := context.Background()

	ok, err := m.Exists(ctx, "marker")
	if err != nil || ok {
		t.Fatalf("expected absent marker, got ok=%v err=%v", ok, err)
	}

	b := &Batch{}
	b.Set("marker", "1", time.Hour)
	if err := m.Exec(ctx, b); err != nil {
		t.Fatalf("exec: %v", err)
	}

	ok, err = m.Exists(ctx, "marker")
	if err != nil || !ok {
		t.Fatalf("expected marker present, got ok=%v err=%v", ok, err)
	}
}

func TestRemoteInterface(t *testing.T) {
	var _ Remote = (*MemoryRemote)(nil)
	var _ Remote = (*RedisRemote)(nil)
}
