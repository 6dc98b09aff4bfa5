package reports

import (
	"context"
	"encoding/csv"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	authDomain "master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/domain/quiz"
)

// UserReader 列出所有使用者。
type UserReader interface {
	ListUsers(ctx context.Context) ([]authDomain.User, error)
}

// SkillReader 列出所有技能。
type SkillReader interface {
	ListSkills(ctx context.Context) ([]quiz.Skill, error)
}

// QuestionReader 列出所有題目（含技能關聯）。
type QuestionReader interface {
	ListAllQuestions(ctx context.Context) ([]quiz.Question, error)
}

// AttemptReader 列出所有作答紀錄。
type AttemptReader interface {
	ListAttempts(ctx context.Context) ([]quiz.Attempt, error)
}

// UseCase 由作答紀錄彙總管理報表。
type UseCase struct {
	users     UserReader
	skills    SkillReader
	questions QuestionReader
	attempts  AttemptReader
}

// NewUseCase 建立報表用例。
func NewUseCase(users UserReader, skills SkillReader, questions QuestionReader, attempts AttemptReader) *UseCase {
	return &UseCase{
		users:     users,
		skills:    skills,
		questions: questions,
		attempts:  attempts,
	}
}

// UserPerformance 每位有作答紀錄的使用者一列，依平均分數高到低排序。
func (u *UseCase) UserPerformance(ctx context.Context) ([]quiz.UserPerformance, error) {
	users, err := u.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	attempts, err := u.attempts.ListAttempts(ctx)
	if err != nil {
		return nil, err
	}

	type agg struct {
		attempts  int
		correct   int
		questions map[quiz.ID]bool
		last      time.Time
	}
	byUser := map[authDomain.ID]*agg{}
	for _, a := range attempts {
		g, ok := byUser[a.UserID]
		if !ok {
			g = &agg{questions: map[quiz.ID]bool{}}
			byUser[a.UserID] = g
		}
		g.attempts++
		if a.IsCorrect {
			g.correct++
		}
		g.questions[a.QuestionID] = true
		if a.CreatedAt.After(g.last) {
			g.last = a.CreatedAt
		}
	}

	out := []quiz.UserPerformance{}
	for _, user := range users {
		g, ok := byUser[user.ID]
		if !ok {
			continue
		}
		out = append(out, quiz.UserPerformance{
			ID:             user.ID,
			FullName:       user.Name,
			TotalAttempts:  g.attempts,
			TotalQuestions: len(g.questions),
			TotalCorrect:   g.correct,
			AverageScore:   percent(g.correct, g.attempts),
			LastAttempt:    g.last.UTC().Format(time.RFC3339),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].AverageScore != out[j].AverageScore {
			return out[i].AverageScore > out[j].AverageScore
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

// SkillGap 每個技能的答對率；答對率低的排前面，沒有作答的排最後。
func (u *UseCase) SkillGap(ctx context.Context) ([]quiz.SkillGap, error) {
	skills, err := u.skills.ListSkills(ctx)
	if err != nil {
		return nil, err
	}
	questions, err := u.questions.ListAllQuestions(ctx)
	if err != nil {
		return nil, err
	}
	attempts, err := u.attempts.ListAttempts(ctx)
	if err != nil {
		return nil, err
	}

	skillsOf := make(map[quiz.ID][]quiz.ID, len(questions))
	for _, q := range questions {
		skillsOf[q.ID] = q.SkillIDs
	}
	total := map[quiz.ID]int{}
	correct := map[quiz.ID]int{}
	for _, a := range attempts {
		for _, sid := range skillsOf[a.QuestionID] {
			total[sid]++
			if a.IsCorrect {
				correct[sid]++
			}
		}
	}

	out := make([]quiz.SkillGap, 0, len(skills))
	for _, sk := range skills {
		gap := quiz.SkillGap{
			ID:             sk.ID,
			Name:           sk.Name,
			TotalAttempts:  total[sk.ID],
			CorrectAnswers: correct[sk.ID],
		}
		if gap.TotalAttempts > 0 {
			acc := percent(gap.CorrectAnswers, gap.TotalAttempts)
			gap.Accuracy = &acc
		}
		out = append(out, gap)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Accuracy, out[j].Accuracy
		switch {
		case a == nil && b == nil:
			return out[i].Name < out[j].Name
		case a == nil:
			return false
		case b == nil:
			return true
		case *a != *b:
			return *a < *b
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// TimeReport 以使用者與區間（週或月）分組統計。
func (u *UseCase) TimeReport(ctx context.Context, filter quiz.FilterType) ([]quiz.TimeReport, error) {
	attempts, err := u.attempts.ListAttempts(ctx)
	if err != nil {
		return nil, err
	}
	type key struct {
		user   quiz.ID
		period string
	}
	type agg struct {
		attempts int
		correct  int
	}
	groups := map[key]*agg{}
	for _, a := range attempts {
		k := key{user: a.UserID, period: filter.Period(a.CreatedAt.UTC())}
		g, ok := groups[k]
		if !ok {
			g = &agg{}
			groups[k] = g
		}
		g.attempts++
		if a.IsCorrect {
			g.correct++
		}
	}

	out := make([]quiz.TimeReport, 0, len(groups))
	for k, g := range groups {
		out = append(out, quiz.TimeReport{
			UserID:   k.user,
			Period:   k.period,
			Attempts: g.attempts,
			AvgScore: percent(g.correct, g.attempts),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// ExportUserPerformanceCSV 匯出使用者表現 CSV。
func (u *UseCase) ExportUserPerformanceCSV(ctx context.Context) (string, error) {
	rows, err := u.UserPerformance(ctx)
	if err != nil {
		return "", err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			string(r.ID),
			r.FullName,
			strconv.Itoa(r.TotalAttempts),
			strconv.Itoa(r.TotalQuestions),
			strconv.Itoa(r.TotalCorrect),
			formatFloat(r.AverageScore),
			r.LastAttempt,
		})
	}
	return writeCSV([]string{"id", "full_name", "total_attempts", "total_questions", "total_correct", "average_score", "last_attempt"}, records)
}

// ExportSkillGapCSV 匯出技能答對率 CSV；沒有作答的 accuracy 為空白。
func (u *UseCase) ExportSkillGapCSV(ctx context.Context) (string, error) {
	rows, err := u.SkillGap(ctx)
	if err != nil {
		return "", err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			string(r.ID),
			r.Name,
			strconv.Itoa(r.TotalAttempts),
			strconv.Itoa(r.CorrectAnswers),
			formatPtr(r.Accuracy),
		})
	}
	return writeCSV([]string{"id", "name", "total_attempts", "correct_answers", "accuracy"}, records)
}

// ExportTimeReportCSV 匯出區間統計 CSV。
func (u *UseCase) ExportTimeReportCSV(ctx context.Context, filter quiz.FilterType) (string, error) {
	rows, err := u.TimeReport(ctx, filter)
	if err != nil {
		return "", err
	}
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			string(r.UserID),
			r.Period,
			strconv.Itoa(r.Attempts),
			formatFloat(r.AvgScore),
		})
	}
	return writeCSV([]string{"user_id", "period", "attempts", "avg_score"}, records)
}

func writeCSV(header []string, records [][]string) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(header); err != nil {
		return "", err
	}
	if err := w.WriteAll(records); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// percent 回傳百分比，取到小數第二位。
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
