package apiclient

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// credentialJar 可整批丟棄的 cookie jar，登出後不再帶著後端設定的 refresh_token cookie。
type credentialJar struct {
	mu  sync.RWMutex
	jar http.CookieJar
}

func newCredentialJar() *credentialJar {
	j := &credentialJar{}
	j.reset()
	return j
}

func (j *credentialJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	j.jar.SetCookies(u, cookies)
}

func (j *credentialJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.jar.Cookies(u)
}

func (j *credentialJar) reset() {
	// cookiejar.New 只在 PublicSuffixList 設定錯誤時失敗，這裡不帶選項。
	jar, _ := cookiejar.New(nil)
	j.mu.Lock()
	j.jar = jar
	j.mu.Unlock()
}
