package tokenstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"master-o-quizz/internal/domain/auth"

	"gopkg.in/yaml.v3"
)

// File 將 token 寫入 YAML 檔；每次寫入先寫暫存檔再 rename，避免留下半份內容。
type File struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

// OpenFile 載入既有檔案；檔案不存在時視為空。
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("token file path required")
	}
	f := &File{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return f, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}
	if err := yaml.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("parse token file: %w", err)
	}
	if f.values == nil {
		f.values = make(map[string]string)
	}
	return f, nil
}

func (f *File) Get(key string) (string, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.values[key]
	return v, ok
}

func (f *File) Set(key, value string) error {
	return f.update(func(next map[string]string) {
		put(next, key, value)
	})
}

func (f *File) SetPair(access, refresh string) error {
	return f.update(func(next map[string]string) {
		put(next, auth.KeyAccessToken, access)
		put(next, auth.KeyRefreshToken, refresh)
	})
}

func (f *File) Clear() error {
	return f.update(func(next map[string]string) {
		for _, k := range sessionKeys {
			delete(next, k)
		}
	})
}

func (f *File) Close() error { return nil }

// update 在副本上套用變更，落盤成功後才替換記憶體中的內容。
func (f *File) update(apply func(next map[string]string)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string]string, len(f.values)+2)
	for k, v := range f.values {
		next[k] = v
	}
	apply(next)

	if err := writeAtomic(f.path, next); err != nil {
		return err
	}
	f.values = next
	return nil
}

func writeAtomic(path string, values map[string]string) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode token file: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp token file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}
