// Package tokenstore 持久化客戶端的 access/refresh token。
//
// 所有實作都是同步的字串鍵值儲存，不檢查 token 內容。寫入空字串等同刪除該鍵，
// 讀取不存在的鍵回傳 ("", false)。
package tokenstore

import (
	"fmt"

	"master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/infrastructure/config"
)

// Store 為 token 的持久化介面。
type Store interface {
	Get(key string) (string, bool)
	// Set 覆寫單一鍵，呼叫端看不到寫到一半的狀態。
	Set(key, value string) error
	// SetPair 一次寫入 access 與 refresh token，不會只留下其中一個。
	SetPair(access, refresh string) error
	// Clear 移除所有 session 相關的鍵。
	Clear() error
	Close() error
}

// sessionKeys Clear 時要移除的鍵。
var sessionKeys = []string{auth.KeyAccessToken, auth.KeyRefreshToken}

// Open 依設定建立對應的 Store。
func Open(cfg config.TokenStoreConfig) (Store, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemory(), nil
	case "file", "":
		return OpenFile(cfg.Path)
	case "sqlite":
		return OpenSQLite(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown token store driver %q", cfg.Driver)
	}
}

// Pair 讀出目前保存的 token 組。
func Pair(s Store) auth.TokenPair {
	access, _ := s.Get(auth.KeyAccessToken)
	refresh, _ := s.Get(auth.KeyRefreshToken)
	return auth.TokenPair{AccessToken: access, RefreshToken: refresh}
}
