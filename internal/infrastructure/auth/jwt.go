package authinfra

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"master-o-quizz/internal/domain/auth"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuerName 寫入 access token 的 iss，解析時必須相符。
const TokenIssuerName = "master-o-quizz"

var (
	// ErrSessionInactive refresh token 已過期或被撤銷。
	ErrSessionInactive = errors.New("session expired or revoked")
	// ErrAccountDisabled refresh 時帳號已停用，不再簽發新 token。
	ErrAccountDisabled = errors.New("user disabled")
)

// JWTIssuer 簽發題庫 API 的 access token，並以 SessionStore 保存可輪替的 refresh session。
type JWTIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessions   auth.SessionStore
	users      UserFinder
	now        func() time.Time
}

func NewJWTIssuer(secret string, accessTTL, refreshTTL time.Duration, sessions auth.SessionStore, users UserFinder) *JWTIssuer {
	return &JWTIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessions:   sessions,
		users:      users,
		now:        time.Now,
	}
}

// Claims access token 的 payload；role 只供顯示，權限仍以 Authorizer 查詢為準。
type Claims struct {
	UserID auth.ID   `json:"uid"`
	Role   auth.Role `json:"role"`
	jwt.RegisteredClaims
}

// UserFinder refresh 時重新讀取使用者，角色或狀態的變更會反映在新 token。
type UserFinder interface {
	FindByID(ctx context.Context, id auth.ID) (auth.User, error)
}

// Issue 登入或註冊成功後簽發 token 組。
func (j *JWTIssuer) Issue(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error) {
	return j.issueWithSession(ctx, user, meta)
}

// Refresh 以 refresh token 換發新 token 組；舊 session 立即作廢，客戶端必須改用新的 refresh token。
func (j *JWTIssuer) Refresh(ctx context.Context, token string) (auth.User, auth.TokenPair, error) {
	sess, err := j.consumeSession(ctx, token)
	if err != nil {
		return auth.User{}, auth.TokenPair{}, err
	}

	user, err := j.users.FindByID(ctx, sess.UserID)
	if err != nil {
		return auth.User{}, auth.TokenPair{}, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return auth.User{}, auth.TokenPair{}, ErrAccountDisabled
	}
	pair, err := j.issueWithSession(ctx, user, auth.TokenMeta{UserAgent: sess.UserAgent, IP: sess.IPAddress})
	if err != nil {
		return auth.User{}, auth.TokenPair{}, err
	}
	return user, pair, nil
}

// consumeSession 取出仍有效的 session 並作廢它。
func (j *JWTIssuer) consumeSession(ctx context.Context, token string) (auth.Session, error) {
	if strings.TrimSpace(token) == "" {
		return auth.Session{}, errors.New("refresh token required")
	}
	if j.sessions == nil {
		return auth.Session{}, errors.New("session store not configured")
	}
	sess, err := j.sessions.GetSession(ctx, token)
	if err != nil {
		return auth.Session{}, fmt.Errorf("get session: %w", err)
	}
	if !sess.Active(j.now()) {
		return auth.Session{}, ErrSessionInactive
	}
	if err := j.sessions.RevokeSession(ctx, token); err != nil {
		return auth.Session{}, fmt.Errorf("revoke session: %w", err)
	}
	return sess, nil
}

// RevokeRefresh 作廢 refresh token；空字串視為已登出。
func (j *JWTIssuer) RevokeRefresh(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" || j.sessions == nil {
		return nil
	}
	return j.sessions.RevokeSession(ctx, token)
}

// ParseAccessToken 驗證簽章、簽發者與到期時間。
func (j *JWTIssuer) ParseAccessToken(token string) (Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuerName),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, err
	}
	if claims.UserID == "" {
		return Claims{}, errors.New("token missing user id")
	}
	return claims, nil
}

func (j *JWTIssuer) issueWithSession(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error) {
	now := j.now()
	access, accessExp, err := j.signAccess(user, now)
	if err != nil {
		return auth.TokenPair{}, err
	}

	refreshToken, err := randomToken()
	if err != nil {
		return auth.TokenPair{}, err
	}
	refreshExp := now.Add(j.refreshTTL)
	if j.sessions != nil {
		if err := j.sessions.SaveSession(ctx, auth.Session{
			Token:     refreshToken,
			UserID:    user.ID,
			ExpiresAt: refreshExp,
			UserAgent: meta.UserAgent,
			IPAddress: meta.IP,
			CreatedAt: now,
		}); err != nil {
			return auth.TokenPair{}, err
		}
	}

	return auth.TokenPair{
		AccessToken:   access,
		RefreshToken:  refreshToken,
		AccessExpiry:  accessExp,
		RefreshExpiry: refreshExp,
	}, nil
}

func (j *JWTIssuer) signAccess(user auth.User, now time.Time) (string, time.Time, error) {
	exp := now.Add(j.accessTTL)
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuerName,
			Subject:   user.ID.String(),
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	return signed, exp, err
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
