package tokenstore

import (
	"sync"

	"master-o-quizz/internal/domain/auth"
)

// Memory 僅存在記憶體，程序結束即消失；供測試與一次性指令使用。
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemory 建立空的記憶體 Store。
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	put(m.values, key, value)
	return nil
}

func (m *Memory) SetPair(access, refresh string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	put(m.values, auth.KeyAccessToken, access)
	put(m.values, auth.KeyRefreshToken, refresh)
	return nil
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range sessionKeys {
		delete(m.values, k)
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func put(values map[string]string, key, value string) {
	if value == "" {
		delete(values, key)
		return
	}
	values[key] = value
}
