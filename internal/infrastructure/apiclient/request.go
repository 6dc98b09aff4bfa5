package apiclient

import (
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// Request 描述一次邏輯請求。重試時複製出新值，不修改共用物件。
type Request struct {
	ID     string
	Method string
	Path   string
	Query  url.Values
	Body   any

	retried bool
}

// NewRequest 建立帶有唯一 ID 的請求。
func NewRequest(method, path string) Request {
	return Request{ID: uuid.NewString(), Method: method, Path: path}
}

// WithQuery 回傳加上查詢參數的副本。
func (r Request) WithQuery(q url.Values) Request {
	r.Query = q
	return r
}

// WithBody 回傳帶有 JSON body 的副本。
func (r Request) WithBody(body any) Request {
	r.Body = body
	return r
}

// Retried 是否為 refresh 之後的重送。
func (r Request) Retried() bool { return r.retried }

func (r Request) asRetry() Request {
	r.retried = true
	return r
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}
