package auth

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrUserNotFound 查無使用者。
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken email 已被註冊。
	ErrEmailTaken = errors.New("email already registered")
)

// Role 定義系統角色。
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Status 定義帳號狀態。
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusLocked   Status = "locked"
)

// ID 為使用者識別碼；後端可能以字串或數字回傳。
type ID string

// UnmarshalJSON 同時接受 "u-1" 與 1 兩種寫法。
func (id *ID) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User 基本帳號資料；Password 只存在於後端。
type User struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role"`
	Status   Status `json:"status,omitempty"`
	Password string `json:"-"` // 雜湊後密碼
}

// Validate 基本欄位檢查。
func (u User) Validate() error {
	if u.ID == "" {
		return errors.New("id is required")
	}
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Role == "" {
		return errors.New("role is required")
	}
	if u.Status == "" {
		return errors.New("status is required")
	}
	return nil
}

// IsActive 檢查是否可登入。
func (u User) IsActive() bool {
	return u.Status == StatusActive
}

// IsAdmin 是否為管理者。
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasRole 檢查角色是否在允許清單內；清單為空視為不限制。
func (u User) HasRole(allowed ...Role) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, r := range allowed {
		if u.Role == r {
			return true
		}
	}
	return false
}
