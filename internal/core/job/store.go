package job

import (
	"context"
	"sync"
	"time"

	"recipe-extractor/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 任務儲存介面，Get 在任務不存在時回傳 (nil, nil)
type Store interface {
	// Get 讀取任務
	Get(ctx context.Context, key string) (*Job, error)
	// Upsert 以讀取、合併、寫回的方式套用部分更新，回傳更新後的任務
	Upsert(ctx context.Context, key string, p Patch) (*Job, error)
	// Delete 移除任務
	Delete(ctx context.Context, key string) error
	// Ping 檢查儲存是否可用
	Ping(ctx context.Context) error
	// Close 釋放資源
	Close() error
}

// memoryEntry 記憶體儲存條目
type memoryEntry struct {
	doc       *Job
	expiresAt time.Time
}

// MemoryStore 記憶體任務儲存，未設定 Redis 時使用
type MemoryStore struct {
	mu          sync.RWMutex
	store       map[string]memoryEntry
	ttl         time.Duration
	stopCleanup chan struct{}
}

// NewMemoryStore 建立記憶體任務儲存，ttl 為 0 表示永不過期
func NewMemoryStore(ttl, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		store:       make(map[string]memoryEntry),
		ttl:         ttl,
		stopCleanup: make(chan struct{}),
	}

	// 啟動清理過期任務的協程
	if ttl > 0 && cleanupInterval > 0 {
		go s.startCleanup(cleanupInterval)
	}

	common.LogInfo("記憶體任務儲存已初始化",
		zap.Duration("存活時間", ttl),
	)
	return s
}

// Get 讀取任務，過期視同不存在
func (s *MemoryStore) Get(ctx context.Context, key string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.store[key]
	if !exists {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.doc.Clone(), nil
}

// Upsert 套用部分更新
func (s *MemoryStore) Upsert(ctx context.Context, key string, p Patch) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current *Job
	if entry, exists := s.store[key]; exists {
		if entry.expiresAt.IsZero() || time.Now().Before(entry.expiresAt) {
			current = entry.doc
		}
	}

	next := Apply(current, key, p, time.Now().UTC())
	entry := memoryEntry{doc: next}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.store[key] = entry
	return next.Clone(), nil
}

// Delete 移除任務
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.store, key)
	return nil
}

// Ping 記憶體儲存恆為可用
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// startCleanup 啟動清理過期任務的協程
func (s *MemoryStore) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanup 清理過期的任務
func (s *MemoryStore) cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	count := 0
	for key, entry := range s.store {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.store, key)
			count++
		}
	}

	if count > 0 {
		common.LogInfo("已清理過期任務",
			zap.Int("數量", count),
			zap.Int("剩餘數量", len(s.store)),
		)
	}
	return count
}

// Close 關閉記憶體任務儲存
func (s *MemoryStore) Close() error {
	close(s.stopCleanup)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = make(map[string]memoryEntry)
	return nil
}
