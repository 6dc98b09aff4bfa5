// Package apiclient 是呼叫測驗平台後端的 HTTP 客戶端。
//
// 每個請求送出前從 tokenstore 讀取 access token 並放進 Authorization header。
// 第一次收到 401 時，以不經過攔截流程的方式呼叫 /api/auth/me 換發 token，
// 成功就用新 token 重送原請求一次；失敗則清空 token、通知觀察者並把錯誤交回呼叫端。
// 已重送過的請求再收到 401 直接回傳，不會無限重試。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/infrastructure/tokenstore"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

const (
	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 4 << 20
	refreshPath    = "/api/auth/me"
)

// SessionObserver 接收攔截器對 session 造成的變化。
type SessionObserver interface {
	SessionRefreshed(res AuthResult)
	SessionExpired(err error)
}

// Option 調整 Client 設定。
type Option func(*Client)

// WithHTTPClient 替換底層 http.Client；未設定 Jar 時會補上 cookie jar。
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout 設定單次請求逾時。
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger 設定 structured logger。
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRegisterer 將 metrics 註冊到指定 registry。
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.reg = reg }
}

// WithRefreshCoalescing 控制並行的 401 是否共用同一次 refresh（預設開啟）。
func WithRefreshCoalescing(on bool) Option {
	return func(c *Client) { c.coalesce = on }
}

// Client 後端 API 客戶端。
type Client struct {
	baseURL  string
	http     *http.Client
	timeout  time.Duration
	tokens   tokenstore.Store
	logger   *slog.Logger
	reg      prometheus.Registerer
	metrics  *metrics
	coalesce bool
	group    singleflight.Group
	jar      *credentialJar

	mu        sync.RWMutex
	observers []SessionObserver
}

// New 建立客戶端。baseURL 未帶 scheme 時補上 http://。
func New(baseURL string, tokens tokenstore.Store, opts ...Option) *Client {
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		tokens:   tokens,
		timeout:  defaultTimeout,
		logger:   slog.New(slog.DiscardHandler),
		coalesce: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	if c.http.Jar == nil {
		// refresh 也可以靠後端設定的 refresh_token cookie。
		c.jar = newCredentialJar()
		c.http.Jar = c.jar
	}
	c.metrics = newMetrics(c.reg)
	return c
}

// BaseURL 回傳後端位址。
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Observe 註冊 session 觀察者。
func (c *Client) Observe(o SessionObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// ResetCredentials 丟棄後端設定的 cookie；只作用於客戶端自己建立的 jar。
func (c *Client) ResetCredentials() {
	if c.jar != nil {
		c.jar.reset()
	}
}

// Get 送出 GET 請求。
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, NewRequest(http.MethodGet, path).WithQuery(query), out)
}

// Post 送出帶 JSON body 的 POST 請求。
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, NewRequest(http.MethodPost, path).WithBody(body), out)
}

// Do 送出請求並把成功回應解到 out。
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	token, _ := c.tokens.Get(auth.KeyAccessToken)
	res, err := c.send(ctx, req, token)
	if err != nil {
		return err
	}

	if res.status == http.StatusUnauthorized && !req.Retried() {
		retry := req.asRetry()
		c.logger.Info("access token rejected, refreshing session", "request_id", req.ID, "path", req.Path)
		refreshed, err := c.refreshAccessToken(ctx)
		if err != nil {
			return err
		}
		c.metrics.retries.Inc()
		res, err = c.send(ctx, retry, refreshed.AccessToken)
		if err != nil {
			return err
		}
	}
	return res.decode(out)
}

// RefreshSession 以保存的 refresh token 換發 token，並與攔截器共用同一次進行中的 refresh。
// 成功時新 token 已寫回 tokenstore；失敗時 tokenstore 已清空且觀察者已收到通知。
func (c *Client) RefreshSession(ctx context.Context) (AuthResult, error) {
	return c.refreshAccessToken(ctx)
}

func (c *Client) refreshAccessToken(ctx context.Context) (AuthResult, error) {
	if !c.coalesce {
		return c.refreshSession(ctx)
	}
	// 共用的 refresh 不應因第一個呼叫端取消而讓其他人一起失敗。
	v, err, _ := c.group.Do(refreshPath, func() (any, error) {
		return c.refreshSession(context.WithoutCancel(ctx))
	})
	if err != nil {
		return AuthResult{}, err
	}
	return v.(AuthResult), nil
}

// refreshSession 換發 access token 並寫回 tokenstore；失敗時清空所有憑證。
// 沒有保存的 refresh token、也沒有 refresh cookie 時不送出請求。
func (c *Client) refreshSession(ctx context.Context) (AuthResult, error) {
	refreshToken, _ := c.tokens.Get(auth.KeyRefreshToken)
	var (
		res AuthResult
		err error
	)
	if refreshToken == "" && !c.hasRefreshCookie() {
		err = &Error{Kind: KindValidation, Message: msgNoRefreshToken, Err: ErrNoRefreshToken}
	} else {
		res, err = c.Refresh(ctx, refreshToken)
	}
	if err == nil && res.AccessToken == "" {
		err = &Error{Kind: KindBackend, Message: "refresh response missing access token"}
	}
	if err == nil {
		next := refreshToken
		if res.RefreshToken != "" {
			next = res.RefreshToken
		}
		if serr := c.tokens.SetPair(res.AccessToken, next); serr != nil {
			err = PersistError(serr)
		}
	}

	if err != nil {
		c.metrics.refreshes.WithLabelValues("failed").Inc()
		expired := Normalize(err, "Session expired")
		expired.Expired = true
		if cerr := c.tokens.Clear(); cerr != nil {
			c.logger.Error("clear token store", "error", cerr)
		}
		c.logger.Warn("session refresh failed", "status", expired.StatusCode, "error", expired.Message)
		c.notify(func(o SessionObserver) { o.SessionExpired(expired) })
		return AuthResult{}, expired
	}

	c.metrics.refreshes.WithLabelValues("ok").Inc()
	c.notify(func(o SessionObserver) { o.SessionRefreshed(res) })
	return res, nil
}

// hasRefreshCookie jar 內是否有後端設定的 refresh_token cookie。
func (c *Client) hasRefreshCookie() bool {
	if c.http.Jar == nil {
		return false
	}
	u, err := url.Parse(c.baseURL + refreshPath)
	if err != nil {
		return false
	}
	for _, ck := range c.http.Jar.Cookies(u) {
		if ck.Name == RefreshCookieName && ck.Value != "" {
			return true
		}
	}
	return false
}

func (c *Client) notify(fn func(o SessionObserver)) {
	c.mu.RLock()
	observers := append([]SessionObserver(nil), c.observers...)
	c.mu.RUnlock()
	for _, o := range observers {
		fn(o)
	}
}

type response struct {
	status int
	body   []byte
}

// send 只負責送出與讀取回應，不處理 401。
func (c *Client) send(ctx context.Context, req Request, token string) (response, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return response{}, &Error{Kind: KindValidation, Message: "encode request body: " + err.Error(), Err: err}
		}
		body = bytes.NewReader(data)
	}

	target := c.baseURL + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method(), target, body)
	if err != nil {
		return response{}, &Error{Kind: KindValidation, Message: "build request: " + err.Error(), Err: err}
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", req.ID)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("api request failed", "request_id", req.ID, "path", req.Path, "error", err)
		return response{}, networkError(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return response{}, networkError(err)
	}
	c.metrics.observeStatus(resp.StatusCode)
	c.logger.Debug("api response",
		"request_id", req.ID,
		"method", req.method(),
		"path", req.Path,
		"status", resp.StatusCode,
		"retried", req.Retried(),
	)
	return response{status: resp.StatusCode, body: data}, nil
}

func (r response) decode(out any) error {
	if r.status < 200 || r.status >= 300 {
		return fromResponse(r.status, r.body)
	}
	if err := decodePayload(r.body, out); err != nil {
		return &Error{
			Kind:       KindBackend,
			Message:    "decode response: " + err.Error(),
			StatusCode: r.status,
			RawBody:    r.body,
			Err:        err,
		}
	}
	return nil
}

// decodePayload 後端回應可能包在 {"data": ...} 中，存在時先拆開。
func decodePayload(body []byte, out any) error {
	body = bytes.TrimSpace(body)
	if out == nil || len(body) == 0 {
		return nil
	}
	if body[0] == '{' {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if json.Unmarshal(body, &env) == nil && len(env.Data) > 0 && string(env.Data) != "null" {
			body = env.Data
		}
	}
	return json.Unmarshal(body, out)
}
