package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"master-o-quizz/internal/domain/auth"
)

// 驗證與登入流程的錯誤。
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserDisabled       = errors.New("user disabled or locked")
	ErrRefreshRequired    = errors.New("refresh token required")
)

// MinPasswordLength 註冊密碼最短長度。
const MinPasswordLength = 8

// UserRepository 存取使用者。
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (auth.User, error)
	FindByID(ctx context.Context, id auth.ID) (auth.User, error)
	CreateUser(ctx context.Context, user auth.User) (auth.User, error)
}

// PasswordHasher 驗證/產生密碼雜湊。
type PasswordHasher interface {
	Compare(hashed, plain string) bool
	Hash(plain string) (string, error)
}

// TokenIssuer 簽發/輪替/作廢 token。
type TokenIssuer interface {
	Issue(ctx context.Context, user auth.User, meta auth.TokenMeta) (auth.TokenPair, error)
	Refresh(ctx context.Context, token string) (auth.User, auth.TokenPair, error)
	RevokeRefresh(ctx context.Context, token string) error
}

// Permission 表示功能權限。
type Permission string

const (
	PermSkillRead      Permission = "skill:read"
	PermSkillWrite     Permission = "skill:write"
	PermQuestionWrite  Permission = "question:write"
	PermQuestionAnswer Permission = "question:answer"
	PermReportsRead    Permission = "reports:read"
)

// RolePermissions 角色權限表。
var RolePermissions = map[auth.Role][]Permission{
	auth.RoleAdmin: {
		PermSkillRead,
		PermSkillWrite,
		PermQuestionWrite,
		PermQuestionAnswer,
		PermReportsRead,
	},
	auth.RoleUser: {
		PermSkillRead,
		PermQuestionAnswer,
	},
}

// AuthorizeInput 定義授權需求。
type AuthorizeInput struct {
	UserID   auth.ID
	Required []Permission
}

// AuthorizeResult 回傳授權結果。
type AuthorizeResult struct {
	Allowed bool
	Reason  string
}

// AuthResult signup/login/refresh 共用的回傳。
type AuthResult struct {
	User  auth.User
	Token auth.TokenPair
}

// ValidationError 請求欄位錯誤，訊息可直接回給前端。
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func looksLikeEmail(email string) bool {
	at := strings.Index(email, "@")
	if at <= 0 || strings.ContainsAny(email, " \t") {
		return false
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	return dot > 0 && dot < len(domain)-1 && !strings.Contains(domain, "@")
}

// SignupUseCase 建立帳號並直接登入。
type SignupUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
}

func NewSignupUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *SignupUseCase {
	return &SignupUseCase{users: users, hasher: hasher, tokens: tokens}
}

type SignupInput struct {
	FullName string
	Email    string
	Password string
	Meta     auth.TokenMeta
}

func (in SignupInput) validate() error {
	switch {
	case strings.TrimSpace(in.FullName) == "":
		return ValidationError{Message: "Full name is required"}
	case strings.TrimSpace(in.Email) == "":
		return ValidationError{Message: "Email is required"}
	case !looksLikeEmail(normalizeEmail(in.Email)):
		return ValidationError{Message: "Please enter a valid email address"}
	case len(in.Password) < MinPasswordLength:
		return ValidationError{Message: "Password must be at least 8 characters long"}
	}
	return nil
}

func (uc *SignupUseCase) Execute(ctx context.Context, input SignupInput) (AuthResult, error) {
	var out AuthResult
	if err := input.validate(); err != nil {
		return out, err
	}
	email := normalizeEmail(input.Email)
	if _, err := uc.users.FindByEmail(ctx, email); err == nil {
		return out, auth.ErrEmailTaken
	} else if !errors.Is(err, auth.ErrUserNotFound) {
		return out, fmt.Errorf("find user: %w", err)
	}

	hashed, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return out, fmt.Errorf("hash password: %w", err)
	}
	user, err := uc.users.CreateUser(ctx, auth.User{
		Name:     strings.TrimSpace(input.FullName),
		Email:    email,
		Role:     auth.RoleUser,
		Status:   auth.StatusActive,
		Password: hashed,
	})
	if err != nil {
		return out, fmt.Errorf("create user: %w", err)
	}

	token, err := uc.tokens.Issue(ctx, user, input.Meta)
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}
	out.User = user
	out.Token = token
	return out, nil
}

// LoginUseCase 驗證帳密並簽發 token。
type LoginUseCase struct {
	users  UserRepository
	hasher PasswordHasher
	tokens TokenIssuer
	now    func() time.Time
}

func NewLoginUseCase(users UserRepository, hasher PasswordHasher, tokens TokenIssuer) *LoginUseCase {
	return &LoginUseCase{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		now:    time.Now,
	}
}

type LoginInput struct {
	Email    string
	Password string
	Meta     auth.TokenMeta
}

// Execute 查無帳號與密碼錯誤回傳同一個錯誤。
func (uc *LoginUseCase) Execute(ctx context.Context, input LoginInput) (AuthResult, error) {
	var out AuthResult
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return out, ValidationError{Message: "Email and password are required"}
	}

	user, err := uc.users.FindByEmail(ctx, email)
	if errors.Is(err, auth.ErrUserNotFound) {
		return out, ErrInvalidCredentials
	}
	if err != nil {
		return out, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive() {
		return out, ErrUserDisabled
	}
	if !uc.hasher.Compare(user.Password, input.Password) {
		return out, ErrInvalidCredentials
	}

	token, err := uc.tokens.Issue(ctx, user, input.Meta)
	if err != nil {
		return out, fmt.Errorf("issue token: %w", err)
	}

	out.User = user
	out.Token = token
	return out, nil
}

// RefreshUseCase 以 refresh token 換發新的 token pair。
type RefreshUseCase struct {
	tokens TokenIssuer
}

func NewRefreshUseCase(tokens TokenIssuer) *RefreshUseCase {
	return &RefreshUseCase{tokens: tokens}
}

func (uc *RefreshUseCase) Execute(ctx context.Context, refreshToken string) (AuthResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return AuthResult{}, ErrRefreshRequired
	}
	user, pair, err := uc.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: pair}, nil
}

// LogoutUseCase 處理 refresh token 作廢。
type LogoutUseCase struct {
	tokens TokenIssuer
}

func NewLogoutUseCase(tokens TokenIssuer) *LogoutUseCase {
	return &LogoutUseCase{tokens: tokens}
}

func (uc *LogoutUseCase) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return ErrRefreshRequired
	}
	return uc.tokens.RevokeRefresh(ctx, refreshToken)
}

// Authorizer 檢查角色/權限。
type Authorizer struct {
	users UserRepository
}

func NewAuthorizer(users UserRepository) *Authorizer {
	return &Authorizer{users: users}
}

func (a *Authorizer) HasPermission(role auth.Role, perm Permission) bool {
	perms := RolePermissions[role]
	for _, p := range perms {
		if p == perm {
			return true
		}
	}
	return false
}

// Authorize 檢查使用者是否具備所需權限。
func (a *Authorizer) Authorize(ctx context.Context, input AuthorizeInput) (AuthorizeResult, error) {
	user, err := a.users.FindByID(ctx, input.UserID)
	if err != nil {
		return AuthorizeResult{Allowed: false, Reason: "user not found"}, err
	}
	if !user.IsActive() {
		return AuthorizeResult{Allowed: false, Reason: "user disabled"}, nil
	}

	for _, perm := range input.Required {
		if a.HasPermission(user.Role, perm) {
			continue
		}
		return AuthorizeResult{Allowed: false, Reason: fmt.Sprintf("missing permission %s", perm)}, nil
	}

	return AuthorizeResult{Allowed: true}, nil
}
