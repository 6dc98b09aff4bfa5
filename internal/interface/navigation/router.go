package navigation

import (
	"log/slog"
	"sync"

	"master-o-quizz/internal/application/session"
	"master-o-quizz/internal/infrastructure/apiclient"
)

// SessionReader 讀取目前的 session。
type SessionReader interface {
	View() session.View
}

// Navigator 切換頁面。
type Navigator interface {
	Navigate(path string) string
}

// Router 記錄目前頁面，每次切換都經過 Guard。
type Router struct {
	session SessionReader
	logger  *slog.Logger

	mu      sync.Mutex
	current string
	from    string
	history []string
}

// NewRouter 建立從首頁開始的路由器。
func NewRouter(s SessionReader, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{session: s, logger: logger, current: PathHome}
}

// Navigate 前往 path，回傳守衛處理後實際抵達的頁面。
// 未知路徑視為公開的 not-found 頁。
func (r *Router) Navigate(path string) string {
	target := path
	if route, ok := Lookup(path); ok {
		if d := Guard(route, r.session.View().User); !d.Allow {
			target = d.Redirect
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if target == PathLogin && path != PathLogin {
		r.from = path
	}
	r.current = target
	r.history = append(r.history, target)
	if target != path {
		r.logger.Info("navigation redirected", "requested", path, "target", target)
	}
	return target
}

// AfterLogin 登入成功回到原本要去的頁面；帳號不存在時改到註冊頁；其他錯誤停留在登入頁。
func (r *Router) AfterLogin(err error) string {
	switch {
	case err == nil:
		r.mu.Lock()
		next := r.from
		r.from = ""
		r.mu.Unlock()
		if next == "" {
			next = PathHome
		}
		return r.Navigate(next)
	case session.AccountMissing(err):
		return r.Navigate(PathSignup)
	default:
		return r.Current()
	}
}

// Current 目前頁面。
func (r *Router) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// History 依序列出曾抵達的頁面。
func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// SessionRefreshed 換發成功不需要換頁。
func (r *Router) SessionRefreshed(apiclient.AuthResult) {}

// SessionExpired 憑證失效，導向登入頁。
func (r *Router) SessionExpired(error) {
	r.Navigate(PathLogin)
}
