package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/infrastructure/tokenstore"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu        sync.Mutex
	refreshed []AuthResult
	expired   []error
}

func (o *recordingObserver) SessionRefreshed(res AuthResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshed = append(o.refreshed, res)
}

func (o *recordingObserver) SessionExpired(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.expired = append(o.expired, err)
}

// fakeBackend 受保護資源只接受 validToken；refresh 依 refreshStatus 回應。
type fakeBackend struct {
	t             *testing.T
	validToken    string
	refreshStatus int
	refreshBody   string
	refreshDelay  time.Duration
	alwaysDeny    bool

	resourceHits atomic.Int32
	refreshHits  atomic.Int32

	mu            sync.Mutex
	authHeads     []string
	requestIDs    []string
	refreshReq    []string
	refreshCookie []string
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/resource", func(w http.ResponseWriter, r *http.Request) {
		f.resourceHits.Add(1)
		f.mu.Lock()
		f.authHeads = append(f.authHeads, r.Header.Get("Authorization"))
		f.requestIDs = append(f.requestIDs, r.Header.Get("X-Request-ID"))
		f.mu.Unlock()
		if f.alwaysDeny || r.Header.Get("Authorization") != "Bearer "+f.validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"success":false,"message":"token expired"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"value":"P"}}`))
	})
	mux.HandleFunc(RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		f.refreshHits.Add(1)
		if r.Header.Get("Authorization") != "" {
			f.t.Errorf("refresh call must not carry a bearer token")
		}
		var body refreshInput
		_ = json.NewDecoder(r.Body).Decode(&body)
		var cookie string
		if ck, err := r.Cookie(RefreshCookieName); err == nil {
			cookie = ck.Value
		}
		f.mu.Lock()
		f.refreshReq = append(f.refreshReq, body.RefreshToken)
		f.refreshCookie = append(f.refreshCookie, cookie)
		f.mu.Unlock()
		if f.refreshDelay > 0 {
			time.Sleep(f.refreshDelay)
		}
		w.WriteHeader(f.refreshStatus)
		_, _ = w.Write([]byte(f.refreshBody))
	})
	// 模擬登入成功時後端設定的 HttpOnly refresh cookie。
	mux.HandleFunc("/api/cookie", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: RefreshCookieName, Value: "C1", Path: "/", HttpOnly: true})
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	mux.HandleFunc("/api/boom", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"database unavailable"}`))
	})
	return mux
}

type payload struct {
	Value string `json:"value"`
}

func newTestClient(t *testing.T, fb *fakeBackend, opts ...Option) (*Client, *tokenstore.Memory, *recordingObserver) {
	t.Helper()
	fb.t = t
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemory()
	require.NoError(t, store.SetPair("T1", "R1"))
	c := New(srv.URL, store, opts...)
	obs := &recordingObserver{}
	c.Observe(obs)
	return c, store, obs
}

func TestClient_AttachesBearer(t *testing.T) {
	fb := &fakeBackend{validToken: "T1", refreshStatus: http.StatusOK}
	c, _, _ := newTestClient(t, fb)

	var out payload
	require.NoError(t, c.Get(context.Background(), "/api/resource", nil, &out))
	assert.Equal(t, "P", out.Value)
	assert.Equal(t, []string{"Bearer T1"}, fb.authHeads)
	assert.EqualValues(t, 0, fb.refreshHits.Load())
}

func TestClient_RefreshAndRetryOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	fb := &fakeBackend{
		validToken:    "T2",
		refreshStatus: http.StatusOK,
		refreshBody:   `{"accessToken":"T2"}`,
	}
	c, store, obs := newTestClient(t, fb, WithRegisterer(reg))

	var out payload
	require.NoError(t, c.Get(context.Background(), "/api/resource", nil, &out))

	assert.Equal(t, "P", out.Value, "caller receives the retried response")
	assert.EqualValues(t, 1, fb.refreshHits.Load(), "exactly one refresh")
	assert.EqualValues(t, 2, fb.resourceHits.Load(), "original plus exactly one retry")
	assert.Equal(t, []string{"Bearer T1", "Bearer T2"}, fb.authHeads)
	assert.Equal(t, fb.requestIDs[0], fb.requestIDs[1], "retry keeps the request identity")
	assert.Equal(t, []string{"R1"}, fb.refreshReq)

	assert.Equal(t, auth.TokenPair{AccessToken: "T2", RefreshToken: "R1"}, tokenstore.Pair(store),
		"refresh token untouched when backend does not rotate it")
	require.Len(t, obs.refreshed, 1)
	assert.Empty(t, obs.expired)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.retries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.refreshes.WithLabelValues("ok")))
}

func TestClient_RefreshRotatesPair(t *testing.T) {
	fb := &fakeBackend{
		validToken:    "T2",
		refreshStatus: http.StatusOK,
		refreshBody:   `{"success":true,"data":{"accessToken":"T2","refreshToken":"R2","user":{"id":1,"name":"U","email":"u@x.com","role":"user"}}}`,
	}
	c, store, obs := newTestClient(t, fb)

	require.NoError(t, c.Get(context.Background(), "/api/resource", nil, nil))
	assert.Equal(t, auth.TokenPair{AccessToken: "T2", RefreshToken: "R2"}, tokenstore.Pair(store))
	require.Len(t, obs.refreshed, 1)
	require.NotNil(t, obs.refreshed[0].User)
	assert.Equal(t, auth.ID("1"), obs.refreshed[0].User.ID)
}

func TestClient_SecondUnauthorizedPropagates(t *testing.T) {
	fb := &fakeBackend{
		alwaysDeny:    true,
		refreshStatus: http.StatusOK,
		refreshBody:   `{"accessToken":"T2"}`,
	}
	c, store, obs := newTestClient(t, fb)

	err := c.Get(context.Background(), "/api/resource", nil, nil)
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindAuthorization, apiErr.Kind)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "token expired", apiErr.Message)
	assert.False(t, errors.Is(err, ErrSessionExpired))

	assert.EqualValues(t, 1, fb.refreshHits.Load(), "no refresh for an already retried request")
	assert.EqualValues(t, 2, fb.resourceHits.Load())
	assert.Equal(t, "T2", tokenstore.Pair(store).AccessToken)
	assert.Empty(t, obs.expired)
}

func TestClient_RetriedRequestIsNotRefreshedAgain(t *testing.T) {
	fb := &fakeBackend{alwaysDeny: true, refreshStatus: http.StatusOK, refreshBody: `{"accessToken":"T2"}`}
	c, _, _ := newTestClient(t, fb)

	req := NewRequest(http.MethodGet, "/api/resource").asRetry()
	err := c.Do(context.Background(), req, nil)
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.EqualValues(t, 0, fb.refreshHits.Load())
	assert.EqualValues(t, 1, fb.resourceHits.Load())
}

func TestClient_RefreshFailureExpiresSession(t *testing.T) {
	fb := &fakeBackend{
		validToken:    "T2",
		refreshStatus: http.StatusUnauthorized,
		refreshBody:   `{"success":false,"message":"invalid refresh token"}`,
	}
	c, store, obs := newTestClient(t, fb)

	err := c.Get(context.Background(), "/api/resource", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.Equal(t, "invalid refresh token", err.Error())

	assert.True(t, tokenstore.Pair(store).Empty(), "token store must be wiped")
	assert.EqualValues(t, 1, fb.resourceHits.Load(), "original request is not retried")
	require.Len(t, obs.expired, 1)
	assert.Empty(t, obs.refreshed)
}

func TestClient_RefreshWithoutAccessTokenFails(t *testing.T) {
	fb := &fakeBackend{validToken: "T2", refreshStatus: http.StatusOK, refreshBody: `{}`}
	c, store, obs := newTestClient(t, fb)

	err := c.Get(context.Background(), "/api/resource", nil, nil)
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.True(t, tokenstore.Pair(store).Empty())
	assert.Len(t, obs.expired, 1)
}

func TestClient_OtherErrorsPropagateUnchanged(t *testing.T) {
	fb := &fakeBackend{refreshStatus: http.StatusOK}
	c, store, _ := newTestClient(t, fb)

	err := c.Get(context.Background(), "/api/boom", nil, nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindBackend, apiErr.Kind)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "database unavailable", apiErr.Message)
	assert.Contains(t, string(apiErr.RawBody), "database unavailable")
	assert.EqualValues(t, 0, fb.refreshHits.Load())
	assert.Equal(t, "T1", tokenstore.Pair(store).AccessToken)
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, tokenstore.NewMemory())
	err := c.Get(context.Background(), "/api/resource", nil, nil)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, "Network Error", err.Error())
}

func TestClient_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	for _, tc := range []struct {
		name     string
		coalesce bool
		want     int32
	}{
		{"Coalesced", true, 1},
		{"Independent", false, 5},
	} {
		t.Run(tc.name, func(t *testing.T) {
			const n = 5
			var arrived sync.WaitGroup
			arrived.Add(n)
			release := make(chan struct{})
			var once sync.Once

			fb := &fakeBackend{
				validToken:    "T2",
				refreshStatus: http.StatusOK,
				refreshBody:   `{"accessToken":"T2"}`,
				refreshDelay:  150 * time.Millisecond,
			}
			fb.t = t
			inner := fb.handler()
			// 讓 n 個舊 token 請求同時拿到 401。
			gate := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/api/resource" && r.Header.Get("Authorization") == "Bearer T1" {
					arrived.Done()
					once.Do(func() {
						go func() {
							arrived.Wait()
							close(release)
						}()
					})
					select {
					case <-release:
					case <-time.After(2 * time.Second):
					}
				}
				inner.ServeHTTP(w, r)
			})
			srv := httptest.NewServer(gate)
			defer srv.Close()

			store := tokenstore.NewMemory()
			require.NoError(t, store.SetPair("T1", "R1"))
			c := New(srv.URL, store, WithRefreshCoalescing(tc.coalesce))

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					var out payload
					errs <- c.Get(context.Background(), "/api/resource", nil, &out)
				}()
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, fb.refreshHits.Load())
		})
	}
}

func TestClient_RefreshWithCookieOnly(t *testing.T) {
	fb := &fakeBackend{validToken: "T2", refreshStatus: http.StatusOK, refreshBody: `{"accessToken":"T2"}`}
	c, store, _ := newTestClient(t, fb)
	require.NoError(t, c.Get(context.Background(), "/api/cookie", nil, nil))
	require.NoError(t, store.Set(auth.KeyRefreshToken, ""))

	require.NoError(t, c.Get(context.Background(), "/api/resource", nil, nil))
	assert.EqualValues(t, 1, fb.refreshHits.Load())
	assert.Equal(t, []string{""}, fb.refreshReq)
	assert.Equal(t, []string{"C1"}, fb.refreshCookie)
	assert.Equal(t, "T2", tokenstore.Pair(store).AccessToken)
}

func TestClient_ResetCredentialsDropsRefreshCookie(t *testing.T) {
	fb := &fakeBackend{validToken: "T2", refreshStatus: http.StatusOK, refreshBody: `{"accessToken":"T2"}`}
	c, store, obs := newTestClient(t, fb)
	require.NoError(t, c.Get(context.Background(), "/api/cookie", nil, nil))

	// 登出：清空 tokenstore 並丟棄 cookie。
	require.NoError(t, store.Clear())
	c.ResetCredentials()

	err := c.Get(context.Background(), "/api/resource", nil, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRefreshToken))
	assert.True(t, errors.Is(err, ErrSessionExpired))
	assert.EqualValues(t, 0, fb.refreshHits.Load(), "no refresh request without credentials")
	assert.EqualValues(t, 1, fb.resourceHits.Load())
	assert.True(t, tokenstore.Pair(store).Empty())
	require.Len(t, obs.expired, 1)
	assert.Empty(t, obs.refreshed)
}

func TestClient_RefreshSessionSharesInterceptorRefresh(t *testing.T) {
	fb := &fakeBackend{
		validToken:    "T2",
		refreshStatus: http.StatusOK,
		refreshBody:   `{"accessToken":"T2","refreshToken":"R2"}`,
		refreshDelay:  200 * time.Millisecond,
	}
	c, store, _ := newTestClient(t, fb)

	started := make(chan AuthResult, 1)
	go func() {
		res, err := c.RefreshSession(context.Background())
		assert.NoError(t, err)
		started <- res
	}()
	require.Eventually(t, func() bool { return fb.refreshHits.Load() == 1 }, time.Second, 5*time.Millisecond)

	var out payload
	require.NoError(t, c.Get(context.Background(), "/api/resource", nil, &out))
	assert.Equal(t, "P", out.Value)

	res := <-started
	assert.Equal(t, "T2", res.AccessToken)
	assert.EqualValues(t, 1, fb.refreshHits.Load(), "explicit refresh and interceptor share one call")
	assert.Equal(t, []string{"R1"}, fb.refreshReq, "rotated token is never replayed")
	assert.Equal(t, auth.TokenPair{AccessToken: "T2", RefreshToken: "R2"}, tokenstore.Pair(store))
}

func TestAuthCalls_DoNotTriggerRefresh(t *testing.T) {
	var refreshHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid email or password"}`))
	})
	mux.HandleFunc(RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		refreshHits.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, tokenstore.NewMemory())
	_, err := c.Login(context.Background(), LoginInput{Email: "a@b.com", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.EqualValues(t, 0, refreshHits.Load())
}

func TestAuthCalls_DecodeWrappedAndBare(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(SignupPath, func(w http.ResponseWriter, r *http.Request) {
		var in SignupInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		_, _ = w.Write([]byte(`{"user":{"id":"u-7","name":"` + in.FullName + `","email":"` + in.Email + `","role":"user"},"accessToken":"A","refreshToken":"R"}`))
	})
	mux.HandleFunc(LoginPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"user":{"id":1,"name":"U","email":"u@x.com","role":"admin"},"accessToken":"T1"}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	c := New(srv.URL, tokenstore.NewMemory())

	res, err := c.Signup(context.Background(), SignupInput{FullName: "New User", Email: "n@x.com", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "New User", res.User.Name)
	assert.Equal(t, "R", res.RefreshToken)

	res, err = c.Login(context.Background(), LoginInput{Email: "u@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, auth.ID("1"), res.User.ID)
	assert.Equal(t, auth.RoleAdmin, res.User.Role)
	assert.Equal(t, "T1", res.AccessToken)
	assert.Empty(t, res.RefreshToken)
}

func TestNew_NormalizesBaseURL(t *testing.T) {
	c := New("localhost:8080/", tokenstore.NewMemory())
	assert.Equal(t, "http://localhost:8080", c.BaseURL())
}
