package quiz

import (
	"errors"
	"strings"
	"time"

	"master-o-quizz/internal/domain/auth"
)

var (
	ErrSkillNotFound    = errors.New("skill not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrSkillExists      = errors.New("skill already exists")
)

// 題目選項數量限制。
const (
	MinOptions = 2
	MaxOptions = 6
)

// ID 與使用者 ID 相同，可接受字串或數字。
type ID = auth.ID

// Skill 技能（題目分類）。
type Skill struct {
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Question 選擇題。
type Question struct {
	ID                 ID        `json:"id"`
	QuestionText       string    `json:"questionText"`
	Options            []string  `json:"options"`
	CorrectOptionIndex int       `json:"correctOptionIndex"`
	SkillIDs           []ID      `json:"skillIds,omitempty"`
	CreatedAt          time.Time `json:"createdAt,omitempty"`
}

// QuestionPage 分頁查詢結果。
type QuestionPage struct {
	Questions   []Question `json:"questions"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
}

// CreateSkillInput 建立技能。
type CreateSkillInput struct {
	Name string `json:"name"`
}

// Validate 技能名稱不可空白。
func (in CreateSkillInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ValidationError{Message: "Skill name is required"}
	}
	return nil
}

// CreateQuestionInput 建立題目的請求內容。
type CreateQuestionInput struct {
	SkillIDs           []ID     `json:"skillIds"`
	QuestionText       string   `json:"questionText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// Validate 與建立題目表單相同的規則。
func (in CreateQuestionInput) Validate() error {
	if len(in.SkillIDs) == 0 || strings.TrimSpace(in.QuestionText) == "" {
		return ValidationError{Message: "Please add at least one skill and enter a question"}
	}
	if len(in.Options) < MinOptions {
		return ValidationError{Message: "At least 2 options required"}
	}
	if len(in.Options) > MaxOptions {
		return ValidationError{Message: "Maximum 6 options allowed"}
	}
	for _, opt := range in.Options {
		if strings.TrimSpace(opt) == "" {
			return ValidationError{Message: "All options must have text"}
		}
	}
	if in.CorrectOptionIndex < 0 || in.CorrectOptionIndex >= len(in.Options) {
		return ValidationError{Message: "Select a valid correct answer"}
	}
	return nil
}

// AnswerInput 作答內容。
type AnswerInput struct {
	UserID              ID  `json:"userId"`
	QuestionID          ID  `json:"questionId"`
	SelectedOptionIndex int `json:"selectedOptionIndex"`
}

// AnswerResult 作答結果。
type AnswerResult struct {
	IsCorrect bool `json:"isCorrect"`
}

// Attempt 後端保存的作答紀錄，報表由此彙總。
type Attempt struct {
	ID                  ID
	UserID              ID
	QuestionID          ID
	SelectedOptionIndex int
	IsCorrect           bool
	CreatedAt           time.Time
}

// Check 判斷選項是否正確。
func (q Question) Check(selected int) bool {
	return selected == q.CorrectOptionIndex
}

// HasSkill 題目是否屬於指定技能。
func (q Question) HasSkill(id ID) bool {
	for _, s := range q.SkillIDs {
		if s == id {
			return true
		}
	}
	return false
}

// ValidationError 表單層級的錯誤，不會送出網路請求。
type ValidationError struct {
	Message string
}

func (e ValidationError) Error() string { return e.Message }
