package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yono-dev/craftmind/internal/domain"
)

type memoryLibraryStore struct {
	mu        sync.Mutex
	snapshots map[int64][]domain.ImageRecord
	loadErr   error
	saves     int
}

func newMemoryLibraryStore() *memoryLibraryStore {
	return &memoryLibraryStore{snapshots: make(map[int64][]domain.ImageRecord)}
}

func (s *memoryLibraryStore) Load(_ context.Context, userID int64) ([]domain.ImageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return s.snapshots[userID], nil
}

func (s *memoryLibraryStore) SaveSnapshot(_ context.Context, userID int64, records []domain.ImageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.ImageRecord, len(records))
	copy(cp, records)
	s.snapshots[userID] = cp
	s.saves++
	return nil
}

func (s *memoryLibraryStore) saved(userID int64) []domain.ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots[userID]
}

func TestLibraryServiceAddAssignsIdentity(t *testing.T) {
	svc := NewLibraryService(newMemoryLibraryStore(), 50)
	svc.LoadUser(context.Background(), 1)

	rec := svc.Add(1, domain.ImageRecord{Prompt: "a castle", ImageURL: "https://x/1.png"})
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, 1, svc.Len(1))
}

func TestLibraryServiceEvictsOldestAtCap(t *testing.T) {
	svc := NewLibraryService(newMemoryLibraryStore(), 3)
	svc.LoadUser(context.Background(), 1)

	for i := 0; i < 5; i++ {
		svc.Add(1, domain.ImageRecord{Prompt: fmt.Sprintf("p%d", i)})
	}

	records := svc.List(1)
	require.Len(t, records, 3)
	assert.Equal(t, "p2", records[0].Prompt)
	assert.Equal(t, "p4", records[2].Prompt)
}

func TestLibraryServiceGetIsOneBased(t *testing.T) {
	svc := NewLibraryService(newMemoryLibraryStore(), 50)
	svc.LoadUser(context.Background(), 1)
	svc.Add(1, domain.ImageRecord{Prompt: "first"})
	svc.Add(1, domain.ImageRecord{Prompt: "second"})

	rec, ok := svc.Get(1, 1)
	require.True(t, ok)
	assert.Equal(t, "first", rec.Prompt)

	rec, ok = svc.Get(1, 2)
	require.True(t, ok)
	assert.Equal(t, "second", rec.Prompt)

	_, ok = svc.Get(1, 0)
	assert.False(t, ok)
	_, ok = svc.Get(1, 3)
	assert.False(t, ok)
}

func TestLibraryServiceLoadFailureDegradesToEmpty(t *testing.T) {
	store := newMemoryLibraryStore()
	store.loadErr = errors.New("db down")
	svc := NewLibraryService(store, 50)

	svc.LoadUser(context.Background(), 1)
	assert.Zero(t, svc.Len(1))

	// The user can still collect new images.
	svc.Add(1, domain.ImageRecord{Prompt: "fresh"})
	assert.Equal(t, 1, svc.Len(1))
}

func TestLibraryServiceUnloadPersistsAndDropsCache(t *testing.T) {
	store := newMemoryLibraryStore()
	svc := NewLibraryService(store, 50)
	svc.LoadUser(context.Background(), 1)
	svc.Add(1, domain.ImageRecord{Prompt: "keep me"})

	svc.UnloadUser(context.Background(), 1)

	assert.Zero(t, svc.Len(1))
	saved := store.saved(1)
	require.Len(t, saved, 1)
	assert.Equal(t, "keep me", saved[0].Prompt)

	// Reconnecting restores the persisted records.
	svc.LoadUser(context.Background(), 1)
	assert.Equal(t, 1, svc.Len(1))
}

func TestLibraryServiceFlushWaitsForAsyncSaves(t *testing.T) {
	store := newMemoryLibraryStore()
	svc := NewLibraryService(store, 50)
	svc.LoadUser(context.Background(), 1)
	svc.LoadUser(context.Background(), 2)
	svc.Add(1, domain.ImageRecord{Prompt: "one"})
	svc.Add(2, domain.ImageRecord{Prompt: "two"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	svc.Flush(ctx)

	require.Len(t, store.saved(1), 1)
	require.Len(t, store.saved(2), 1)
}
