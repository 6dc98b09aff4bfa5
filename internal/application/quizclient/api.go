// Package quizclient 是技能、題目與報表頁面背後的客戶端服務。
// 每個服務保存最近一次結果與錯誤，所有請求都經過 apiclient 的 token 攔截流程。
package quizclient

import (
	"context"
	"net/url"

	"master-o-quizz/internal/application/session"
)

// 後端端點。
const (
	PathCreateSkill     = "/api/admin/skills/create"
	PathSkills          = "/api/admin/skills/"
	PathCreateQuestion  = "/api/admin/question/create"
	PathQuestions       = "/api/admin/question/"
	PathCheckAnswer     = "/api/admin/question/"
	PathUserPerformance = "/api/admin/report/user-performance"
	PathSkillGap        = "/api/admin/report/skill-gap"
	PathTimeReport      = "/api/admin/report/time-report"
)

// API 由 *apiclient.Client 實作。
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// SessionReader 提供目前登入者。
type SessionReader interface {
	View() session.View
}
