package storage

import (
	"context"
	"sync"

	"github.com/baseportal/baseportal-go-sdk/api"
)

// memRegistry holds all memory-driver state for the process, keyed by the
// scope key. It mirrors browser-local storage: the state outlives any one
// store instance, so a remount under the same scope resumes where it
// left off.
var memRegistry = struct {
	sync.Mutex
	m map[string]*State
}{m: make(map[string]*State)}

// memoryStore is the default driver. It never fails, matching the
// best-effort semantics of browser storage.
type memoryStore struct {
	key string
}

func newMemoryStore(key string) *memoryStore {
	return &memoryStore{key: key}
}

func (s *memoryStore) ConversationID(ctx context.Context) (string, error) {
	memRegistry.Lock()
	defer memRegistry.Unlock()
	if st := memRegistry.m[s.key]; st != nil {
		return st.ConversationID, nil
	}
	return "", nil
}

func (s *memoryStore) SetConversationID(ctx context.Context, id string) error {
	memRegistry.Lock()
	defer memRegistry.Unlock()
	s.state().ConversationID = id
	return nil
}

func (s *memoryStore) Visitor(ctx context.Context) (*api.VisitorData, error) {
	memRegistry.Lock()
	defer memRegistry.Unlock()
	st := memRegistry.m[s.key]
	if st == nil || st.Visitor == nil {
		return nil, nil
	}
	v := *st.Visitor
	return &v, nil
}

func (s *memoryStore) SetVisitor(ctx context.Context, v *api.VisitorData) error {
	memRegistry.Lock()
	defer memRegistry.Unlock()
	if v == nil {
		s.state().Visitor = nil
		return nil
	}
	cp := *v
	s.state().Visitor = &cp
	return nil
}

func (s *memoryStore) Clear(ctx context.Context) error {
	memRegistry.Lock()
	defer memRegistry.Unlock()
	delete(memRegistry.m, s.key)
	return nil
}

func (s *memoryStore) Close() error {
	return nil
}

// state returns the scope's entry, creating it if needed. Callers must
// hold the registry lock.
func (s *memoryStore) state() *State {
	st := memRegistry.m[s.key]
	if st == nil {
		st = &State{}
		memRegistry.m[s.key] = st
	}
	return st
}
