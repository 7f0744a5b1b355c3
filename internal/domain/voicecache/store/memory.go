package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tutor-voice-server/internal/domain/voicecache/model"
)

type memoryStore struct {
	items       map[string]*model.Artifact
	mutex       sync.RWMutex
	cleanupFreq time.Duration
	now         clock
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewMemory builds an in-memory store. Entries live as clones so callers
// never share backing arrays with the map.
func NewMemory(cfg Config) Store {
	return newMemory(cfg, utcNow)
}

func newMemory(cfg Config, now clock) *memoryStore {
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]*model.Artifact),
		cleanupFreq: cleanup,
		now:         now,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) Driver() string { return DriverMemory }

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_, _ = s.PurgeExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Get(_ context.Context, key string) (*model.Artifact, error) {
	now := s.now()
	s.mutex.RLock()
	item, ok := s.items[key]
	s.mutex.RUnlock()
	if !ok || item.Expired(now) {
		return nil, ErrNotFound
	}
	return item.Clone(), nil
}

func (s *memoryStore) Put(_ context.Context, artifact *model.Artifact) error {
	if artifact == nil || artifact.Key == "" {
		return fmt.Errorf("artifact key required")
	}
	now := s.now()
	next := artifact.Prepared(now)
	if next.Expired(now) {
		return nil
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	if prev, ok := s.items[next.Key]; ok && !prev.Expired(now) {
		next.TimesUsed = prev.TimesUsed
		next.LastUsedAt = prev.LastUsedAt
		next.CreatedAt = prev.CreatedAt
	}
	s.items[next.Key] = next
	return nil
}

func (s *memoryStore) Touch(_ context.Context, key string) (*model.Artifact, error) {
	now := s.now()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item, ok := s.items[key]
	if !ok || item.Expired(now) {
		return nil, ErrNotFound
	}
	item.TimesUsed++
	item.LastUsedAt = now
	return item.Clone(), nil
}

func (s *memoryStore) Count(_ context.Context) (int64, error) {
	now := s.now()
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var n int64
	for _, item := range s.items {
		if !item.Expired(now) {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) PurgeExpired(_ context.Context) (int64, error) {
	now := s.now()
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var n int64
	for key, item := range s.items {
		if item.Expired(now) {
			delete(s.items, key)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Ping(context.Context) error { return nil }

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	return nil
}
