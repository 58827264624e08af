package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// MemoryRecordStore implements RecordStore in process memory. It backs the
// "memory" driver for local runs and the package tests.
type MemoryRecordStore struct {
	mu     sync.RWMutex
	tables map[string][]Record
	now    func() time.Time
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		tables: make(map[string][]Record),
		now:    time.Now,
	}
}

func (s *MemoryRecordStore) Insert(_ context.Context, table string, records ...Record) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Record, 0, len(records))
	for _, r := range records {
		c := r.clone()
		if c.ID() == "" {
			c["id"] = uuid.NewString()
		}
		if _, ok := c["created_at"]; !ok {
			c["created_at"] = s.now()
		}
		s.tables[table] = append(s.tables[table], c)
		out = append(out, c.clone())
	}
	return out, nil
}

func (s *MemoryRecordStore) Select(_ context.Context, table string, filter Filter, order *Sort) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, r := range s.tables[table] {
		if matches(r, filter) {
			out = append(out, r.clone())
		}
	}

	if order != nil {
		sort.SliceStable(out, func(i, j int) bool {
			c := compare(out[i][order.Column], out[j][order.Column])
			if order.Desc {
				return c > 0
			}
			return c < 0
		})
	}
	return out, nil
}

func (s *MemoryRecordStore) Update(_ context.Context, table string, patch Record, filter Filter) error {
	if len(filter) == 0 {
		return ErrMissingFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.tables[table] {
		if !matches(r, filter) {
			continue
		}
		for k, v := range patch {
			r[k] = v
		}
	}
	return nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, table string, filter Filter) error {
	if len(filter) == 0 {
		return ErrMissingFilter
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.tables[table][:0]
	for _, r := range s.tables[table] {
		if !matches(r, filter) {
			kept = append(kept, r)
		}
	}
	s.tables[table] = kept
	return nil
}

// Count returns how many rows a table holds.
func (s *MemoryRecordStore) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

func matches(r Record, filter Filter) bool {
	for k, want := range filter {
		got, ok := r[k]
		if !ok || cast.ToString(got) != cast.ToString(want) {
			return false
		}
	}
	return true
}

func compare(a, b interface{}) int {
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	sa, sb := cast.ToString(a), cast.ToString(b)
	switch {
	case sa < sb:
		return -1
	case sa > sb:
		return 1
	}
	return 0
}
