package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"master-o-quizz/internal/application/auth"
	authDomain "master-o-quizz/internal/domain/auth"
)

// authPayload signup/login/refresh 共用的 data 內容。
type authPayload struct {
	User         authDomain.User `json:"user"`
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	TokenType    string          `json:"tokenType"`
	ExpiresIn    int             `json:"expiresIn"`
}

func newAuthPayload(res auth.AuthResult) authPayload {
	return authPayload{
		User:         res.User,
		AccessToken:  res.Token.AccessToken,
		RefreshToken: res.Token.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(time.Until(res.Token.AccessExpiry).Seconds()),
	}
}

func tokenMeta(c *gin.Context) authDomain.TokenMeta {
	return authDomain.TokenMeta{
		UserAgent: c.GetHeader("User-Agent"),
		IP:        c.ClientIP(),
	}
}

func (s *Server) handleSignup(c *gin.Context) {
	var body struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid request body")
		return
	}

	res, err := s.signupUC.Execute(c.Request.Context(), auth.SignupInput{
		FullName: body.FullName,
		Email:    body.Email,
		Password: body.Password,
		Meta:     tokenMeta(c),
	})
	var ve auth.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, errCodeBadRequest, ve.Message)
		return
	case errors.Is(err, authDomain.ErrEmailTaken):
		respondError(c, http.StatusConflict, errCodeConflict, "Email already registered")
		return
	default:
		log.Printf("[Auth] signup failure for %s: %v", body.Email, err)
		respondError(c, http.StatusInternalServerError, errCodeInternal, "Signup failed")
		return
	}

	log.Printf("[Auth] signup %s (id=%s)", res.User.Email, res.User.ID)
	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)
	respondOK(c, http.StatusCreated, "Signup successful", newAuthPayload(res))
}

func (s *Server) handleLogin(c *gin.Context) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, errCodeBadRequest, "Invalid request body")
		return
	}

	res, err := s.loginUC.Execute(c.Request.Context(), auth.LoginInput{
		Email:    body.Email,
		Password: body.Password,
		Meta:     tokenMeta(c),
	})
	var ve auth.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &ve):
		respondError(c, http.StatusBadRequest, errCodeBadRequest, ve.Message)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		log.Printf("[Auth] login failure for %s: %v", body.Email, err)
		respondError(c, http.StatusUnauthorized, errCodeInvalidCredentials, "Invalid email or password")
		return
	case errors.Is(err, auth.ErrUserDisabled):
		respondError(c, http.StatusForbidden, errCodeForbidden, "Account disabled")
		return
	default:
		log.Printf("[Auth] login error for %s: %v", body.Email, err)
		respondError(c, http.StatusInternalServerError, errCodeInternal, "Login failed")
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)
	respondOK(c, http.StatusOK, "Login successful", newAuthPayload(res))
}

// refreshTokenFrom 先讀 body 的 refreshToken，沒有時改用 cookie。
func refreshTokenFrom(c *gin.Context) string {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if c.Request.ContentLength != 0 {
		_ = c.ShouldBindJSON(&body)
	}
	if token := strings.TrimSpace(body.RefreshToken); token != "" {
		return token
	}
	token, _ := c.Cookie(refreshCookieName)
	return token
}

func (s *Server) handleRefresh(c *gin.Context) {
	refreshToken := refreshTokenFrom(c)
	if refreshToken == "" {
		respondError(c, http.StatusUnauthorized, errCodeUnauthorized, "Refresh token missing")
		return
	}

	res, err := s.refreshUC.Execute(c.Request.Context(), refreshToken)
	if err != nil {
		log.Printf("[Auth] refresh failure: %v", err)
		s.clearRefreshCookie(c)
		respondError(c, http.StatusUnauthorized, errCodeUnauthorized, "Invalid refresh token")
		return
	}

	s.setRefreshCookie(c, res.Token.RefreshToken, res.Token.RefreshExpiry)
	respondOK(c, http.StatusOK, "Token refreshed", newAuthPayload(res))
}

func (s *Server) handleLogout(c *gin.Context) {
	if refreshToken := refreshTokenFrom(c); refreshToken != "" {
		if err := s.logoutUC.Execute(c.Request.Context(), refreshToken); err != nil {
			log.Printf("[Auth] logout revoke failed: %v", err)
		}
	}
	s.clearRefreshCookie(c)
	respondOK(c, http.StatusOK, "Logged out", nil)
}

func (s *Server) setRefreshCookie(c *gin.Context, token string, expiry time.Time) {
	host, _, _ := strings.Cut(c.Request.Host, ":")
	isLocal := host == "localhost" || host == "127.0.0.1"

	c.SetCookie(
		refreshCookieName,
		token,
		int(time.Until(expiry).Seconds()),
		"/",
		"",
		!isLocal, // Secure: only if not local
		true,     // HttpOnly
	)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetCookie(refreshCookieName, "", -1, "/", "", false, true)
}
