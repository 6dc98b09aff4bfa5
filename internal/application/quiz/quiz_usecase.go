package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"master-o-quizz/internal/domain/quiz"
)

// 分頁參數限制。
const (
	DefaultPage  = 1
	DefaultLimit = 1
	MaxLimit     = 100
)

// SkillRepository 存取技能。
type SkillRepository interface {
	CreateSkill(ctx context.Context, name string) (quiz.Skill, error)
	ListSkills(ctx context.Context) ([]quiz.Skill, error)
	FindSkill(ctx context.Context, id quiz.ID) (quiz.Skill, error)
}

// QuestionRepository 存取題目。
type QuestionRepository interface {
	CreateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error)
	ListQuestions(ctx context.Context, offset, limit int) ([]quiz.Question, int, error)
	FindQuestion(ctx context.Context, id quiz.ID) (quiz.Question, error)
}

// AttemptRepository 寫入作答紀錄。
type AttemptRepository interface {
	SaveAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error)
}

// UseCase 處理技能、題目與作答。
type UseCase struct {
	skills    SkillRepository
	questions QuestionRepository
	attempts  AttemptRepository
}

func NewUseCase(skills SkillRepository, questions QuestionRepository, attempts AttemptRepository) *UseCase {
	return &UseCase{skills: skills, questions: questions, attempts: attempts}
}

// CreateSkill 建立技能，名稱會去除前後空白。
func (u *UseCase) CreateSkill(ctx context.Context, in quiz.CreateSkillInput) (quiz.Skill, error) {
	if err := in.Validate(); err != nil {
		return quiz.Skill{}, err
	}
	return u.skills.CreateSkill(ctx, strings.TrimSpace(in.Name))
}

func (u *UseCase) ListSkills(ctx context.Context) ([]quiz.Skill, error) {
	return u.skills.ListSkills(ctx)
}

// CreateQuestion 驗證欄位並確認所有技能存在後建立題目。
func (u *UseCase) CreateQuestion(ctx context.Context, in quiz.CreateQuestionInput) (quiz.Question, error) {
	if err := in.Validate(); err != nil {
		return quiz.Question{}, err
	}
	seen := make(map[quiz.ID]bool, len(in.SkillIDs))
	skillIDs := make([]quiz.ID, 0, len(in.SkillIDs))
	for _, id := range in.SkillIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := u.skills.FindSkill(ctx, id); err != nil {
			if errors.Is(err, quiz.ErrSkillNotFound) {
				return quiz.Question{}, quiz.ValidationError{Message: fmt.Sprintf("Unknown skill %s", id)}
			}
			return quiz.Question{}, fmt.Errorf("find skill: %w", err)
		}
		skillIDs = append(skillIDs, id)
	}
	options := make([]string, len(in.Options))
	for i, opt := range in.Options {
		options[i] = strings.TrimSpace(opt)
	}
	return u.questions.CreateQuestion(ctx, quiz.Question{
		QuestionText:       strings.TrimSpace(in.QuestionText),
		Options:            options,
		CorrectOptionIndex: in.CorrectOptionIndex,
		SkillIDs:           skillIDs,
	})
}

// ListQuestions 分頁查詢；page/limit 小於 1 時使用預設值，totalPages 至少為 1。
func (u *UseCase) ListQuestions(ctx context.Context, page, limit int) (quiz.QuestionPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	list, total, err := u.questions.ListQuestions(ctx, (page-1)*limit, limit)
	if err != nil {
		return quiz.QuestionPage{}, err
	}
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	return quiz.QuestionPage{
		Questions:   list,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// CheckAnswer 判斷答案並保存作答紀錄。
func (u *UseCase) CheckAnswer(ctx context.Context, in quiz.AnswerInput) (quiz.AnswerResult, error) {
	if in.UserID == "" || in.QuestionID == "" {
		return quiz.AnswerResult{}, quiz.ValidationError{Message: "userId and questionId are required"}
	}
	q, err := u.questions.FindQuestion(ctx, in.QuestionID)
	if err != nil {
		return quiz.AnswerResult{}, err
	}
	if in.SelectedOptionIndex < 0 || in.SelectedOptionIndex >= len(q.Options) {
		return quiz.AnswerResult{}, quiz.ValidationError{Message: "Selected option is out of range"}
	}
	correct := q.Check(in.SelectedOptionIndex)
	if _, err := u.attempts.SaveAttempt(ctx, quiz.Attempt{
		UserID:              in.UserID,
		QuestionID:          q.ID,
		SelectedOptionIndex: in.SelectedOptionIndex,
		IsCorrect:           correct,
	}); err != nil {
		return quiz.AnswerResult{}, fmt.Errorf("save attempt: %w", err)
	}
	return quiz.AnswerResult{IsCorrect: correct}, nil
}
