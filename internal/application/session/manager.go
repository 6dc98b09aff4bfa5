// Package session 持有客戶端目前的登入狀態。
//
// Manager 是唯一可以改變 session 的地方：Signup、Login、Refresh、Logout，
// 以及 apiclient 攔截器透過 SessionRefreshed / SessionExpired 回報的變化。
// 狀態只在網路呼叫完成後於鎖內套用，鎖不會跨越 I/O。
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/infrastructure/apiclient"
	"master-o-quizz/internal/infrastructure/tokenstore"
)

// Status session 狀態。
type Status string

const (
	StatusAnonymous      Status = "anonymous"
	StatusAuthenticating Status = "authenticating"
	StatusAuthenticated  Status = "authenticated"
	StatusRefreshFailed  Status = "refresh-failed"
)

// 各操作失敗且後端沒有提供訊息時使用的文字。
const (
	msgSignupFailed   = "Signup failed"
	msgLoginFailed    = "Login failed"
	msgSessionExpired = "Session expired"
	msgNoRefreshToken = "No refresh token found"

	// MsgAccountMissing 後端在帳號不存在時回傳的訊息。
	MsgAccountMissing = "Invalid email or password"
)

// ErrNoRefreshToken 本機沒有 refresh token 可用。
var ErrNoRefreshToken = apiclient.ErrNoRefreshToken

// Backend session 需要的認證端點，由 *apiclient.Client 實作。
type Backend interface {
	Signup(ctx context.Context, in apiclient.SignupInput) (apiclient.AuthResult, error)
	Login(ctx context.Context, in apiclient.LoginInput) (apiclient.AuthResult, error)
	// RefreshSession 與攔截器共用同一次 refresh，成功時已把 token 寫回 tokenstore。
	RefreshSession(ctx context.Context) (apiclient.AuthResult, error)
}

// View session 的唯讀快照。
type View struct {
	User    *auth.User
	Loading bool
	Error   *apiclient.Error
	Status  Status
}

// Authenticated 是否已登入。
func (v View) Authenticated() bool { return v.User != nil }

// Option 調整 Manager。
type Option func(*Manager)

// WithLogger 設定 logger。
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithCredentialReset 登出或 session 失效時一併呼叫，例如丟棄 HTTP 客戶端的 cookie。
func WithCredentialReset(fn func()) Option {
	return func(m *Manager) { m.resetCredentials = fn }
}

// Manager 管理單一 session 的生命週期。
type Manager struct {
	api              Backend
	tokens           tokenstore.Store
	logger           *slog.Logger
	resetCredentials func()

	mu           sync.Mutex
	status       Status
	user         *auth.User
	accessToken  string
	refreshToken string
	lastError    *apiclient.Error
	inflight     int

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(View)
}

// NewManager 建立 Manager，並從 tokenstore 載入既有 token。
func NewManager(api Backend, tokens tokenstore.Store, opts ...Option) *Manager {
	pair := tokenstore.Pair(tokens)
	m := &Manager{
		api:          api,
		tokens:       tokens,
		logger:       slog.New(slog.DiscardHandler),
		status:       StatusAnonymous,
		accessToken:  pair.AccessToken,
		refreshToken: pair.RefreshToken,
		subs:         make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start 程式啟動時以保存的 refresh token 還原 session；沒有 token 時維持匿名。
func (m *Manager) Start(ctx context.Context) error {
	if token, ok := m.tokens.Get(auth.KeyRefreshToken); !ok || token == "" {
		return nil
	}
	return m.Refresh(ctx)
}

// Signup 註冊並登入。
func (m *Manager) Signup(ctx context.Context, fullName, email, password string) error {
	in := apiclient.SignupInput{FullName: fullName, Email: email, Password: password}
	if err := ValidateSignup(in); err != nil {
		return err
	}
	m.begin(true)
	res, err := m.api.Signup(ctx, in)
	return m.finishAuth(res, err, msgSignupFailed)
}

// Login 先在本機檢查欄位，通過後才呼叫後端。
func (m *Manager) Login(ctx context.Context, email, password string) error {
	in := apiclient.LoginInput{Email: email, Password: password}
	if err := ValidateLogin(in); err != nil {
		return err
	}
	m.begin(true)
	res, err := m.api.Login(ctx, in)
	return m.finishAuth(res, err, msgLoginFailed)
}

// Refresh 以保存的 refresh token 換發 access token；失敗時清空所有憑證。
func (m *Manager) Refresh(ctx context.Context) error {
	if token, _ := m.tokens.Get(auth.KeyRefreshToken); token == "" {
		err := &apiclient.Error{Kind: apiclient.KindValidation, Message: msgNoRefreshToken, Err: ErrNoRefreshToken}
		m.expire(err)
		return err
	}

	m.begin(false)
	res, err := m.api.RefreshSession(ctx)
	if err == nil && res.AccessToken == "" {
		err = &apiclient.Error{Kind: apiclient.KindBackend, Message: msgSessionExpired}
	}
	if err != nil {
		apiErr := apiclient.Normalize(err, msgSessionExpired)
		apiErr.Expired = true
		m.end()
		m.expire(apiErr)
		return apiErr
	}

	// tokenstore 由 RefreshSession 寫入，可能已被更新的 refresh 覆蓋，以它為準。
	pair := tokenstore.Pair(m.tokens)
	m.mu.Lock()
	m.inflight--
	res.AccessToken = pair.AccessToken
	m.applyRefreshLocked(res, pair.RefreshToken)
	m.mu.Unlock()
	m.publish()
	return nil
}

// Logout 同步清除 session、本機儲存與 refresh cookie，重複呼叫沒有副作用。
func (m *Manager) Logout() {
	m.clearCredentials()
	m.mu.Lock()
	m.user = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.lastError = nil
	m.status = StatusAnonymous
	m.mu.Unlock()
	m.publish()
}

// View 回傳目前狀態的快照。
func (m *Manager) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

// AccessToken 目前記憶體中的 access token。
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accessToken
}

// Subscribe 註冊狀態變化通知，回傳取消函式。
func (m *Manager) Subscribe(fn func(View)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

// SessionRefreshed 攔截器換發 token 成功。
func (m *Manager) SessionRefreshed(res apiclient.AuthResult) {
	m.mu.Lock()
	next := m.refreshToken
	if res.RefreshToken != "" {
		next = res.RefreshToken
	}
	m.applyRefreshLocked(res, next)
	m.mu.Unlock()
	m.publish()
}

// SessionExpired 攔截器換發 token 失敗，tokenstore 已被清空。
func (m *Manager) SessionExpired(err error) {
	m.expire(apiclient.Normalize(err, msgSessionExpired))
}

// AccountMissing 登入失敗是否代表帳號不存在，呼叫端應改導向註冊頁。
func AccountMissing(err error) bool {
	var apiErr *apiclient.Error
	return errors.As(err, &apiErr) && apiErr.Message == MsgAccountMissing
}

func (m *Manager) begin(clearError bool) {
	m.mu.Lock()
	m.inflight++
	if clearError {
		m.lastError = nil
	}
	m.mu.Unlock()
	m.publish()
}

func (m *Manager) end() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
}

// finishAuth 套用 signup/login 的結果。
func (m *Manager) finishAuth(res apiclient.AuthResult, err error, fallback string) error {
	if err == nil && (res.User == nil || res.AccessToken == "") {
		err = &apiclient.Error{Kind: apiclient.KindBackend, Message: fallback}
	}
	if err == nil {
		if serr := m.tokens.SetPair(res.AccessToken, res.RefreshToken); serr != nil {
			err = apiclient.PersistError(serr)
		}
	}

	m.mu.Lock()
	m.inflight--
	if err != nil {
		apiErr := apiclient.Normalize(err, fallback)
		m.lastError = apiErr
		m.mu.Unlock()
		m.logger.Info("authentication failed", "error", apiErr.Message, "status", apiErr.StatusCode)
		m.publish()
		return apiErr
	}
	user := *res.User
	m.user = &user
	m.accessToken = res.AccessToken
	m.refreshToken = res.RefreshToken
	m.lastError = nil
	m.status = StatusAuthenticated
	m.mu.Unlock()
	m.logger.Info("authenticated", "user_id", user.ID, "role", user.Role)
	m.publish()
	return nil
}

func (m *Manager) applyRefreshLocked(res apiclient.AuthResult, refreshToken string) {
	m.accessToken = res.AccessToken
	m.refreshToken = refreshToken
	if res.User != nil {
		user := *res.User
		m.user = &user
	}
	if m.user != nil {
		m.status = StatusAuthenticated
		m.lastError = nil
	}
}

// expire 清空憑證並進入 refresh-failed。
func (m *Manager) expire(err *apiclient.Error) {
	m.clearCredentials()
	m.mu.Lock()
	m.user = nil
	m.accessToken = ""
	m.refreshToken = ""
	m.lastError = err
	m.status = StatusRefreshFailed
	m.mu.Unlock()
	m.logger.Warn("session expired", "error", err.Message)
	m.publish()
}

func (m *Manager) clearCredentials() {
	if err := m.tokens.Clear(); err != nil {
		m.logger.Error("clear token store", "error", err)
	}
	if m.resetCredentials != nil {
		m.resetCredentials()
	}
}

func (m *Manager) viewLocked() View {
	v := View{
		Loading: m.inflight > 0,
		Error:   m.lastError,
		Status:  m.status,
	}
	if m.user != nil {
		u := *m.user
		v.User = &u
	}
	if v.Loading && v.User == nil {
		v.Status = StatusAuthenticating
	}
	return v
}

func (m *Manager) publish() {
	v := m.View()
	m.subMu.Lock()
	subs := make([]func(View), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()
	for _, fn := range subs {
		fn(v)
	}
}
