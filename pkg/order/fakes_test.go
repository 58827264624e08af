package order

import (
	"context"
	"sync"

	"github.com/example/cleanshop/pkg/repository"
	"go.mongodb.org/mongo-driver/bson"
)

// recordingStore wraps the memory store, counts calls per table and can be
// told to fail inserts or deletes on a given table.
type recordingStore struct {
	*repository.MemoryRecordStore

	mu           sync.Mutex
	insertCalls  map[string]int
	insertedRows map[string]int
	deleteCalls  map[string]int
	failInsert   map[string]error
	failDelete   map[string]error

	// beforeInsert runs before each insert reaches the memory store.
	beforeInsert func(table string)
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		MemoryRecordStore: repository.NewMemoryRecordStore(),
		insertCalls:       map[string]int{},
		insertedRows:      map[string]int{},
		deleteCalls:       map[string]int{},
		failInsert:        map[string]error{},
		failDelete:        map[string]error{},
	}
}

func (s *recordingStore) Insert(ctx context.Context, table string, records ...repository.Record) ([]repository.Record, error) {
	s.mu.Lock()
	s.insertCalls[table]++
	err := s.failInsert[table]
	hook := s.beforeInsert
	s.mu.Unlock()
	if hook != nil {
		hook(table)
	}
	if err != nil {
		return nil, err
	}
	out, err := s.MemoryRecordStore.Insert(ctx, table, records...)
	s.mu.Lock()
	s.insertedRows[table] += len(out)
	s.mu.Unlock()
	return out, err
}

func (s *recordingStore) Delete(ctx context.Context, table string, filter repository.Filter) error {
	s.mu.Lock()
	s.deleteCalls[table]++
	err := s.failDelete[table]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryRecordStore.Delete(ctx, table, filter)
}

type capturingNotifier struct {
	mu     sync.Mutex
	placed []Placement
}

func (n *capturingNotifier) OrderPlaced(p Placement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.placed = append(n.placed, p)
}

type capturingAuditor struct {
	events []string
}

func (a *capturingAuditor) RecordOrderEvent(_ context.Context, orderID, action string, _ bson.M) error {
	a.events = append(a.events, orderID+":"+action)
	return nil
}
