package auth

import "time"

// 客戶端持久化使用的鍵名，與瀏覽器版 localStorage 相同。
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
)

// TokenPair 封裝 access/refresh token。
type TokenPair struct {
	AccessToken   string
	RefreshToken  string
	AccessExpiry  time.Time
	RefreshExpiry time.Time
}

// Empty 是否完全沒有憑證。
func (p TokenPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
