package cache

import (
	"context"
	"sync"

	"TraffixSync/internal/interfaces"
)

// MemoryStore 进程内缓存后端（测试与单机调试用）
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

var _ interfaces.CacheStore = (*MemoryStore)(nil)

// Get 读取键值，键不存在返回 (nil, nil)
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set 写入单个键
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}

// SetAll 一次替换一组键
func (s *MemoryStore) SetAll(_ context.Context, entries map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range entries {
		s.data[key] = append([]byte(nil), value...)
	}
	return nil
}

// Ping 探活（总是成功）
func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// Len 当前键数量（仅测试用）
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
