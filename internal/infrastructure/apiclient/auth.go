package apiclient

import (
	"context"
	"net/http"

	"master-o-quizz/internal/domain/auth"

	"github.com/google/uuid"
)

// 認證端點。
const (
	SignupPath  = "/api/auth/signup"
	LoginPath   = "/api/auth/login"
	RefreshPath = refreshPath

	// RefreshCookieName 後端存放 refresh token 的 cookie。
	RefreshCookieName = "refresh_token"
)

// AuthResult signup/login/refresh 的成功回應。
type AuthResult struct {
	User         *auth.User `json:"user"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken,omitempty"`
}

// SignupInput 註冊資料。
type SignupInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput 登入資料。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

// Signup 呼叫註冊端點。
func (c *Client) Signup(ctx context.Context, in SignupInput) (AuthResult, error) {
	return c.authCall(ctx, SignupPath, in)
}

// Login 呼叫登入端點；401 代表帳密錯誤，不會觸發 refresh。
func (c *Client) Login(ctx context.Context, in LoginInput) (AuthResult, error) {
	return c.authCall(ctx, LoginPath, in)
}

// Refresh 以 refresh token 換發 access token。
func (c *Client) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	return c.authCall(ctx, RefreshPath, refreshInput{RefreshToken: refreshToken})
}

// authCall 認證端點不帶 bearer，也不經過 401 重試流程。
func (c *Client) authCall(ctx context.Context, path string, body any) (AuthResult, error) {
	req := Request{ID: uuid.NewString(), Method: http.MethodPost, Path: path, Body: body}
	res, err := c.send(ctx, req, "")
	if err != nil {
		return AuthResult{}, err
	}
	var out AuthResult
	if err := res.decode(&out); err != nil {
		return AuthResult{}, err
	}
	return out, nil
}
