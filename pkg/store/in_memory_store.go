package store

import (
	"context"

	"livesync/pkg/common_errors"
	"livesync/pkg/utils"
	"livesync/pkg/utils/syncutils"

	"4d63.com/optional"
)

// InMemoryStore is the reference store: named row tables keyed by
// primary-key tuple. Every mutation publishes a row-scoped change
// event to the attached publisher, so live engines bound to it see
// updates without the caller emitting events by hand. A nil publisher
// turns the store into a silent one (callers publish themselves).
type InMemoryStore struct {
	pub    ChangePublisher
	tables map[string]*TableHandle
	mux    syncutils.RWMutex
	name   string
}

var _ = Store(&InMemoryStore{})

func NewInMemoryStore(name string, pub ChangePublisher) *InMemoryStore {
	return &InMemoryStore{
		name:   name,
		pub:    pub,
		tables: make(map[string]*TableHandle),
	}
}

func (s *InMemoryStore) Name() string {
	return s.name
}

// Table returns the named table, creating it on first use.
func (s *InMemoryStore) Table(name string) *TableHandle {
	s.mux.RLock()
	t, ok := s.tables[name]
	s.mux.RUnlock()
	if ok {
		return t
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	if t, ok = s.tables[name]; ok {
		return t
	}
	t = &TableHandle{
		store: s,
		name:  name,
		rows:  NewInMemoryBTreeTable[string, rowEntry](name, StringLess),
	}
	s.tables[name] = t
	return t
}

func (s *InMemoryStore) ExistingTable(name string) (*TableHandle, error) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	t, ok := s.tables[name]
	if !ok {
		return nil, common_errors.ErrTableNotFound
	}
	return t, nil
}

func (s *InMemoryStore) publish(table string, key PrimaryKeyValues) {
	if s.pub != nil {
		s.pub.Publish(s, table, optional.Of(key))
	}
}

type rowEntry struct {
	value interface{}
	key   PrimaryKeyValues
}

// TableHandle is one named row table inside an InMemoryStore.
type TableHandle struct {
	store *InMemoryStore
	rows  *InMemoryBTreeTable[string, rowEntry]
	name  string
}

func (t *TableHandle) Name() string {
	return t.name
}

func (t *TableHandle) Put(ctx context.Context, key PrimaryKeyValues, value interface{}) error {
	if len(key) == 0 {
		return common_errors.ErrEmptyPrimaryKey
	}
	var err error
	if utils.IsNil(value) {
		err = t.rows.Delete(ctx, key.canonical())
	} else {
		err = t.rows.Put(ctx, key.canonical(), rowEntry{key: key, value: value})
	}
	if err != nil {
		return err
	}
	t.store.publish(t.name, key)
	return nil
}

func (t *TableHandle) Get(ctx context.Context, key PrimaryKeyValues) (interface{}, bool, error) {
	entry, found, err := t.rows.Get(ctx, key.canonical())
	if err != nil || !found {
		return nil, false, err
	}
	return entry.value, true, nil
}

func (t *TableHandle) Delete(ctx context.Context, key PrimaryKeyValues) error {
	if len(key) == 0 {
		return common_errors.ErrEmptyPrimaryKey
	}
	if err := t.rows.Delete(ctx, key.canonical()); err != nil {
		return err
	}
	t.store.publish(t.name, key)
	return nil
}

// Scan visits every row in canonical key order.
func (t *TableHandle) Scan(ctx context.Context, iterFunc func(PrimaryKeyValues, interface{}) error) error {
	return t.rows.Range(ctx, optional.Empty[string](), optional.Empty[string](),
		func(_ string, entry rowEntry) error {
			return iterFunc(entry.key, entry.value)
		})
}

func (t *TableHandle) ApproximateNumEntries() (uint64, error) {
	return t.rows.ApproximateNumEntries()
}
