// Package app 組裝客戶端：設定、token 儲存、API 客戶端、session 與導覽。
package app

import (
	"context"
	"fmt"
	"log/slog"

	"master-o-quizz/internal/application/quizclient"
	"master-o-quizz/internal/application/session"
	"master-o-quizz/internal/infrastructure/apiclient"
	"master-o-quizz/internal/infrastructure/config"
	"master-o-quizz/internal/infrastructure/tokenstore"
	"master-o-quizz/internal/interface/navigation"

	"github.com/prometheus/client_golang/prometheus"
)

// App 客戶端所有元件，由 New 建立後唯讀。
type App struct {
	Tokens    tokenstore.Store
	API       *apiclient.Client
	Session   *session.Manager
	Router    *navigation.Router
	Navbar    *navigation.Navbar
	Skills    *quizclient.SkillService
	Questions *quizclient.QuestionService
	Reports   *quizclient.ReportService
}

type options struct {
	logger *slog.Logger
	reg    prometheus.Registerer
	tokens tokenstore.Store
}

// Option 調整組裝方式。
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.reg = reg }
}

// WithTokenStore 使用既有的 Store 而不是依設定開啟。
func WithTokenStore(s tokenstore.Store) Option {
	return func(o *options) { o.tokens = s }
}

// New 依設定建立 App。
func New(cfg config.ClientConfig, opts ...Option) (*App, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	tokens := o.tokens
	if tokens == nil {
		var err error
		tokens, err = tokenstore.Open(cfg.TokenStore)
		if err != nil {
			return nil, fmt.Errorf("open token store: %w", err)
		}
	}

	api := apiclient.New(cfg.BaseURL, tokens,
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithLogger(o.logger.With("component", "apiclient")),
		apiclient.WithRegisterer(o.reg),
		apiclient.WithRefreshCoalescing(cfg.ShouldCoalesceRefresh()),
	)
	sess := session.NewManager(api, tokens,
		session.WithLogger(o.logger.With("component", "session")),
		session.WithCredentialReset(api.ResetCredentials),
	)
	router := navigation.NewRouter(sess, o.logger.With("component", "router"))

	// session 先更新，再由 router 導向登入頁。
	api.Observe(sess)
	api.Observe(router)

	return &App{
		Tokens:    tokens,
		API:       api,
		Session:   sess,
		Router:    router,
		Navbar:    navigation.NewNavbar(sess, router),
		Skills:    quizclient.NewSkillService(api),
		Questions: quizclient.NewQuestionService(api, sess),
		Reports:   quizclient.NewReportService(api),
	}, nil
}

// Start 嘗試以保存的 refresh token 還原登入狀態。
func (a *App) Start(ctx context.Context) error {
	return a.Session.Start(ctx)
}

// Close 關閉 token 儲存。
func (a *App) Close() error {
	return a.Tokens.Close()
}
