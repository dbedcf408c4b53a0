package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/yono-dev/craftmind/internal/domain"
)

// LibraryStore persists per-user image library snapshots.
type LibraryStore interface {
	Load(ctx context.Context, userID int64) ([]domain.ImageRecord, error)
	SaveSnapshot(ctx context.Context, userID int64, records []domain.ImageRecord) error
}

// LibraryService keeps each connected user's image library in memory and
// writes snapshots back to the store after every mutation. Reads inside a
// session never touch the store; the cache is the source of truth until
// the user disconnects.
type LibraryService struct {
	mu        sync.Mutex
	store     LibraryStore
	maxSize   int
	libraries map[int64][]domain.ImageRecord
	wg        sync.WaitGroup
}

func NewLibraryService(store LibraryStore, maxSize int) *LibraryService {
	return &LibraryService{
		store:     store,
		maxSize:   maxSize,
		libraries: make(map[int64][]domain.ImageRecord),
	}
}

// LoadUser pulls the user's stored library into the cache. Called on
// connect; a store failure leaves the user with an empty library rather
// than blocking the session.
func (s *LibraryService) LoadUser(ctx context.Context, userID int64) {
	records, err := s.store.Load(ctx, userID)
	if err != nil {
		slog.Error("failed to load image library", "user_id", userID, "error", err)
		records = nil
	}

	s.mu.Lock()
	s.libraries[userID] = records
	s.mu.Unlock()
}

// Add appends a record, evicting the oldest when the library is full, and
// schedules an async snapshot save. The record's ID and CreatedAt are
// filled in here.
func (s *LibraryService) Add(userID int64, record domain.ImageRecord) domain.ImageRecord {
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	lib := append(s.libraries[userID], record)
	if over := len(lib) - s.maxSize; over > 0 {
		lib = lib[over:]
	}
	s.libraries[userID] = lib
	snapshot := make([]domain.ImageRecord, len(lib))
	copy(snapshot, lib)
	s.mu.Unlock()

	s.saveAsync(userID, snapshot)
	return record
}

// Get returns the record at the given 1-based position, newest last.
func (s *LibraryService) Get(userID int64, index int) (domain.ImageRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib := s.libraries[userID]
	if index < 1 || index > len(lib) {
		return domain.ImageRecord{}, false
	}
	return lib[index-1], true
}

// List returns a copy of the user's full library, oldest first.
func (s *LibraryService) List(userID int64) []domain.ImageRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	lib := s.libraries[userID]
	out := make([]domain.ImageRecord, len(lib))
	copy(out, lib)
	return out
}

func (s *LibraryService) Len(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.libraries[userID])
}

// UnloadUser writes a final snapshot and drops the user's cache entry.
// Called on disconnect.
func (s *LibraryService) UnloadUser(ctx context.Context, userID int64) {
	s.mu.Lock()
	lib, ok := s.libraries[userID]
	delete(s.libraries, userID)
	s.mu.Unlock()
	if !ok {
		return
	}

	if err := s.store.SaveSnapshot(ctx, userID, lib); err != nil {
		slog.Error("failed to save image library", "user_id", userID, "error", err)
	}
}

// Flush waits for in-flight async saves, then snapshots every cached
// library synchronously. Called on shutdown.
func (s *LibraryService) Flush(ctx context.Context) {
	s.wg.Wait()

	s.mu.Lock()
	snapshot := make(map[int64][]domain.ImageRecord, len(s.libraries))
	for userID, lib := range s.libraries {
		cp := make([]domain.ImageRecord, len(lib))
		copy(cp, lib)
		snapshot[userID] = cp
	}
	s.mu.Unlock()

	for userID, lib := range snapshot {
		if err := s.store.SaveSnapshot(ctx, userID, lib); err != nil {
			slog.Error("failed to save image library", "user_id", userID, "error", err)
		}
	}
}

func (s *LibraryService) saveAsync(userID int64, records []domain.ImageRecord) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.store.SaveSnapshot(ctx, userID, records); err != nil {
			slog.Error("failed to save image library", "user_id", userID, "error", err)
		}
	}()
}
