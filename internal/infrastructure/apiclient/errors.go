package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"master-o-quizz/internal/domain/quiz"
)

// Kind 錯誤分類。
type Kind string

const (
	// KindValidation 用戶端檢查失敗，沒有送出請求。
	KindValidation Kind = "validation"
	// KindAuthorization 後端回 401。
	KindAuthorization Kind = "authorization"
	// KindBackend 其他非 2xx 回應或無法解析的內容。
	KindBackend Kind = "backend"
	// KindNetwork 沒有收到回應。
	KindNetwork Kind = "network"
)

// 搭配 errors.Is 使用的分類哨兵。
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthorization  = errors.New("authorization error")
	ErrBackend        = errors.New("backend error")
	ErrNetwork        = errors.New("network error")
	ErrSessionExpired = errors.New("session expired")
	ErrNoRefreshToken = errors.New("no refresh token found")
)

const msgNoRefreshToken = "No refresh token found"

// Error 為 HTTP 邊界輸出的唯一錯誤型別。
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	RawBody    []byte
	// Expired 表示 refresh 失敗、憑證已被清除。
	Expired bool
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind) + " error"
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrAuthorization:
		return e.Kind == KindAuthorization
	case ErrBackend:
		return e.Kind == KindBackend
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrSessionExpired:
		return e.Expired
	}
	return false
}

// PersistError 本機 token 儲存失敗；請求本身已成功，因此不歸類為網路錯誤。
func PersistError(err error) *Error {
	return &Error{Kind: KindBackend, Message: "persist tokens: " + err.Error(), Err: err}
}

// Validation 建立用戶端檢查錯誤。
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Normalize 將任意錯誤轉為 *Error；訊息優先順序為後端訊息、fallback、原始錯誤。
func Normalize(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		out := *apiErr
		if out.Message == "" {
			out.Message = fallback
		}
		return &out
	}
	var ve quiz.ValidationError
	if errors.As(err, &ve) {
		return Validation(ve.Message)
	}
	msg := fallback
	if msg == "" {
		msg = err.Error()
	}
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}

// errorBody 後端錯誤回應可能使用 message 或 error 欄位。
type errorBody struct {
	Message string          `json:"message"`
	Error   json.RawMessage `json:"error"`
}

func fromResponse(status int, body []byte) *Error {
	kind := KindBackend
	if status == http.StatusUnauthorized {
		kind = KindAuthorization
	}
	e := &Error{Kind: kind, StatusCode: status, RawBody: body}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		e.Message = eb.Message
		if e.Message == "" && len(eb.Error) > 0 {
			var s string
			if json.Unmarshal(eb.Error, &s) == nil {
				e.Message = s
			}
		}
	}
	return e
}

func networkError(err error) *Error {
	msg := "Network Error"
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		msg = err.Error()
	}
	return &Error{Kind: KindNetwork, Message: msg, Err: err}
}
