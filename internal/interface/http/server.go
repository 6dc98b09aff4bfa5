package httpapi

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"master-o-quizz/internal/application/auth"
	quizapp "master-o-quizz/internal/application/quiz"
	"master-o-quizz/internal/application/reports"
	authDomain "master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/infra/memory"
	authinfra "master-o-quizz/internal/infrastructure/auth"
	"master-o-quizz/internal/infrastructure/config"
	"master-o-quizz/internal/infrastructure/persistence/postgres"
)

const seedTimeout = 5 * time.Second

const (
	errCodeBadRequest         = "BAD_REQUEST"
	errCodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	errCodeUnauthorized       = "AUTH_UNAUTHORIZED"
	errCodeForbidden          = "AUTH_FORBIDDEN"
	errCodeConflict           = "CONFLICT"
	errCodeNotFound           = "NOT_FOUND"
	errCodeInternal           = "INTERNAL_ERROR"
	refreshCookieName         = "refresh_token"
	accessCookieName          = "access_token"
)

// Repository 後端所需的全部資料存取。
type Repository interface {
	auth.UserRepository
	auth.SessionPurger
	authDomain.SessionStore
	reports.UserReader
	reports.QuestionReader
	reports.AttemptReader
	quizapp.SkillRepository
	quizapp.QuestionRepository
	quizapp.AttemptRepository
}

// postgresRepo 組合 AuthRepo 與 QuizRepo。
type postgresRepo struct {
	*postgres.AuthRepo
	*postgres.QuizRepo
}

// Server 封裝 HTTP 路由與依賴。
type Server struct {
	db         *sql.DB
	repo       Repository
	tokenSvc   *authinfra.JWTIssuer
	signupUC   *auth.SignupUseCase
	loginUC    *auth.LoginUseCase
	refreshUC  *auth.RefreshUseCase
	logoutUC   *auth.LogoutUseCase
	authz      *auth.Authorizer
	sweeper    *auth.SessionSweeper
	quizUC     *quizapp.UseCase
	reportUC   *reports.UseCase
	registry   *prometheus.Registry
	metrics    *httpMetrics
	tokenTTL   time.Duration
	refreshTTL time.Duration
}

// NewServer 建立 API 伺服器；db 為 nil 時使用記憶體資料並建立預設帳號與示範題目。
func NewServer(cfg config.Config, db *sql.DB) *Server {
	var repo Repository
	if db != nil {
		authRepo := postgres.NewAuthRepo(db)
		repo = postgresRepo{AuthRepo: authRepo, QuizRepo: postgres.NewQuizRepo(db)}
		if cfg.Auth.SeedUsers {
			ctx, cancel := context.WithTimeout(context.Background(), seedTimeout)
			if err := authRepo.SeedDefaults(ctx); err != nil {
				log.Printf("[Auth] seed default users failed: %v", err)
			}
			cancel()
		}
	} else {
		store := memory.NewStore()
		store.SeedUsers()
		store.SeedQuiz()
		repo = store
	}
	return newServer(cfg, db, repo)
}

// NewServerWithRepository 使用指定的資料存取建立伺服器，主要供測試使用。
func NewServerWithRepository(cfg config.Config, repo Repository) *Server {
	return newServer(cfg, nil, repo)
}

func newServer(cfg config.Config, db *sql.DB, repo Repository) *Server {
	ttl := cfg.Auth.TokenTTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}
	refreshTTL := cfg.Auth.RefreshTTL
	if refreshTTL == 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	tokenSvc := authinfra.NewJWTIssuer(cfg.Auth.Secret, ttl, refreshTTL, repo, repo)
	hasher := authinfra.BcryptHasher{}
	reg := prometheus.NewRegistry()

	return &Server{
		db:         db,
		repo:       repo,
		tokenSvc:   tokenSvc,
		signupUC:   auth.NewSignupUseCase(repo, hasher, tokenSvc),
		loginUC:    auth.NewLoginUseCase(repo, hasher, tokenSvc),
		refreshUC:  auth.NewRefreshUseCase(tokenSvc),
		logoutUC:   auth.NewLogoutUseCase(tokenSvc),
		authz:      auth.NewAuthorizer(repo),
		sweeper:    auth.NewSessionSweeper(repo, cfg.Auth.SweepInterval),
		quizUC:     quizapp.NewUseCase(repo, repo, repo),
		reportUC:   reports.NewUseCase(repo, repo, repo, repo),
		registry:   reg,
		metrics:    newHTTPMetrics(reg),
		tokenTTL:   ttl,
		refreshTTL: refreshTTL,
	}
}

// Registry 回傳伺服器使用的 prometheus registry。
func (s *Server) Registry() *prometheus.Registry {
	return s.registry
}

// StartBackground 啟動 session 清理。
func (s *Server) StartBackground() {
	s.sweeper.Start()
}

// Close 停止背景工作。
func (s *Server) Close() {
	s.sweeper.Stop()
}
