package quiz

import (
	"fmt"
	"time"
)

// FilterType 時間報表的區間粒度。
type FilterType string

const (
	FilterWeek  FilterType = "week"
	FilterMonth FilterType = "month"
)

// ParseFilterType 解析查詢參數，空字串預設 month。
func ParseFilterType(s string) (FilterType, error) {
	switch FilterType(s) {
	case "":
		return FilterMonth, nil
	case FilterWeek, FilterMonth:
		return FilterType(s), nil
	default:
		return "", fmt.Errorf("invalid filterType %q", s)
	}
}

// Period 依粒度產生區間標籤，例如 2025-W07 或 2025-02。
func (f FilterType) Period(t time.Time) string {
	if f == FilterWeek {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week)
	}
	return t.Format("2006-01")
}

// UserPerformance 使用者作答表現。
type UserPerformance struct {
	ID             ID      `json:"id"`
	FullName       string  `json:"fullName"`
	TotalAttempts  int     `json:"totalAttempts"`
	TotalQuestions int     `json:"totalQuestions"`
	TotalCorrect   int     `json:"totalCorrect"`
	AverageScore   float64 `json:"averageScore"`
	LastAttempt    string  `json:"lastAttempt"`
}

// SkillGap 技能答對率；沒有作答時 Accuracy 為 nil。
type SkillGap struct {
	ID             ID       `json:"id"`
	Name           string   `json:"name"`
	TotalAttempts  int      `json:"totalAttempts"`
	CorrectAnswers int      `json:"correctAnswers"`
	Accuracy       *float64 `json:"accuracy"`
}

// TimeReport 區間作答統計。
type TimeReport struct {
	UserID   ID      `json:"userId"`
	Period   string  `json:"period"`
	Attempts int     `json:"attempts"`
	AvgScore float64 `json:"avgScore"`
}
