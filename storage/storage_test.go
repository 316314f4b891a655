package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/baseportal/baseportal-go-sdk/api"
)

func TestKey(t *testing.T) {
	if got := Key("tok123", ""); got != "bp_chat_tok123" {
		t.Errorf("anonymous key = %q", got)
	}
	if got := Key("tok123", "a@b.com"); got != "bp_chat_tok123_a@b.com" {
		t.Errorf("identified key = %q", got)
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(StoreTypeMemory, t.Name())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	id, err := store.ConversationID(ctx)
	if err != nil {
		t.Fatalf("ConversationID: %v", err)
	}
	if id != "" {
		t.Errorf("fresh store has id %q", id)
	}

	if err := store.SetConversationID(ctx, "c1"); err != nil {
		t.Fatalf("SetConversationID: %v", err)
	}
	if err := store.SetVisitor(ctx, &api.VisitorData{Name: "Ana", Email: "ana@x.com"}); err != nil {
		t.Fatalf("SetVisitor: %v", err)
	}

	id, _ = store.ConversationID(ctx)
	if id != "c1" {
		t.Errorf("id = %q", id)
	}
	v, err := store.Visitor(ctx)
	if err != nil {
		t.Fatalf("Visitor: %v", err)
	}
	if v == nil || v.Name != "Ana" || v.Email != "ana@x.com" {
		t.Errorf("visitor = %+v", v)
	}
}

func TestMemoryStoreWritesMerge(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(StoreTypeMemory, t.Name())
	defer store.Close()

	store.SetVisitor(ctx, &api.VisitorData{Name: "Ana"})
	store.SetConversationID(ctx, "c1")

	// Setting one field leaves the other intact.
	v, _ := store.Visitor(ctx)
	if v == nil || v.Name != "Ana" {
		t.Fatalf("visitor lost after SetConversationID: %+v", v)
	}
	id, _ := store.ConversationID(ctx)
	if id != "c1" {
		t.Fatalf("id lost: %q", id)
	}
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(StoreTypeMemory, t.Name())
	defer store.Close()

	store.SetConversationID(ctx, "c1")
	store.SetVisitor(ctx, &api.VisitorData{Name: "Ana"})

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	id, _ := store.ConversationID(ctx)
	v, _ := store.Visitor(ctx)
	if id != "" || v != nil {
		t.Errorf("state after Clear: id=%q visitor=%+v", id, v)
	}
}

func TestMemoryStoreCopiesVisitor(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStore(StoreTypeMemory, t.Name())
	defer store.Close()

	in := &api.VisitorData{Name: "Ana"}
	store.SetVisitor(ctx, in)
	in.Name = "mutated"

	v, _ := store.Visitor(ctx)
	if v.Name != "Ana" {
		t.Errorf("stored visitor aliased caller memory: %q", v.Name)
	}

	v.Name = "mutated again"
	v2, _ := store.Visitor(ctx)
	if v2.Name != "Ana" {
		t.Errorf("returned visitor aliased store memory: %q", v2.Name)
	}
}

func TestMemoryStatePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	key := t.Name()

	first, _ := NewStore(StoreTypeMemory, key)
	first.SetConversationID(ctx, "c1")
	first.SetVisitor(ctx, &api.VisitorData{Name: "Ana"})
	first.Close()

	// A new store under the same scope resumes the persisted state.
	second, _ := NewStore(StoreTypeMemory, key)
	defer second.Close()
	if id, _ := second.ConversationID(ctx); id != "c1" {
		t.Errorf("id = %q", id)
	}
	v, _ := second.Visitor(ctx)
	if v == nil || v.Name != "Ana" {
		t.Errorf("visitor = %+v", v)
	}
}

func TestStoresAreIndependent(t *testing.T) {
	ctx := context.Background()
	anon, _ := NewStore(StoreTypeMemory, Key(t.Name(), ""))
	ident, _ := NewStore(StoreTypeMemory, Key(t.Name(), "a@b.com"))
	defer anon.Close()
	defer ident.Close()

	anon.SetConversationID(ctx, "c-anon")
	ident.SetConversationID(ctx, "c-ident")

	if id, _ := anon.ConversationID(ctx); id != "c-anon" {
		t.Errorf("anon id = %q", id)
	}
	if id, _ := ident.ConversationID(ctx); id != "c-ident" {
		t.Errorf("ident id = %q", id)
	}

	anon.Clear(ctx)
	if id, _ := ident.ConversationID(ctx); id != "c-ident" {
		t.Errorf("clearing one scope touched another: %q", id)
	}
}

func TestNewStoreErrors(t *testing.T) {
	if _, err := NewStore(StoreTypeRedis, "k"); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("redis without client: %v", err)
	}
	if _, err := NewStore("bogus", "k"); !errors.Is(err, ErrInvalidStoreType) {
		t.Errorf("unknown type: %v", err)
	}
	if _, err := NewStore("", "k"); err != nil {
		t.Errorf("empty type should default to memory: %v", err)
	}
}
