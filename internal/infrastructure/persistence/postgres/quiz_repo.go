package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"master-o-quizz/internal/domain/quiz"
)

// QuizRepo 提供技能、題目與作答紀錄的存取。
type QuizRepo struct {
	db    *sql.DB
	newID func() string
	now   func() time.Time
}

// NewQuizRepo 建立 QuizRepo。
func NewQuizRepo(db *sql.DB) *QuizRepo {
	return &QuizRepo{db: db, newID: uuid.NewString, now: time.Now}
}

// CreateSkill 新增技能；名稱重複時回傳 ErrSkillExists。
func (r *QuizRepo) CreateSkill(ctx context.Context, name string) (quiz.Skill, error) {
	const q = `
INSERT INTO skills (id, name, created_at)
VALUES ($1, $2, $3);
`
	sk := quiz.Skill{ID: quiz.ID(r.newID()), Name: name, CreatedAt: r.now()}
	if _, err := r.db.ExecContext(ctx, q, string(sk.ID), sk.Name, sk.CreatedAt); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return quiz.Skill{}, quiz.ErrSkillExists
		}
		return quiz.Skill{}, fmt.Errorf("insert skill: %w", err)
	}
	return sk, nil
}

// ListSkills 依建立時間列出技能。
func (r *QuizRepo) ListSkills(ctx context.Context) ([]quiz.Skill, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM skills ORDER BY created_at, name;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []quiz.Skill{}
	for rows.Next() {
		var sk quiz.Skill
		var id string
		if err := rows.Scan(&id, &sk.Name, &sk.CreatedAt); err != nil {
			return nil, err
		}
		sk.ID = quiz.ID(id)
		out = append(out, sk)
	}
	return out, rows.Err()
}

func (r *QuizRepo) FindSkill(ctx context.Context, id quiz.ID) (quiz.Skill, error) {
	var sk quiz.Skill
	var sid string
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM skills WHERE id = $1;`, string(id)).
		Scan(&sid, &sk.Name, &sk.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Skill{}, quiz.ErrSkillNotFound
	}
	if err != nil {
		return quiz.Skill{}, err
	}
	sk.ID = quiz.ID(sid)
	return sk, nil
}

// CreateQuestion 在同一個交易內寫入題目與技能關聯。
func (r *QuizRepo) CreateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return quiz.Question{}, err
	}
	defer tx.Rollback()

	q.ID = quiz.ID(r.newID())
	q.CreatedAt = r.now()
	const insert = `
INSERT INTO questions (id, question_text, options, correct_option_index, created_at)
VALUES ($1, $2, $3, $4, $5);
`
	if _, err := tx.ExecContext(ctx, insert, string(q.ID), q.QuestionText, pq.Array(q.Options), q.CorrectOptionIndex, q.CreatedAt); err != nil {
		return quiz.Question{}, fmt.Errorf("insert question: %w", err)
	}
	for _, sid := range q.SkillIDs {
		if _, err := tx.ExecContext(ctx, `INSERT INTO question_skills (question_id, skill_id) VALUES ($1, $2);`, string(q.ID), string(sid)); err != nil {
			if isPgError(err, pgForeignKeyViolation) {
				return quiz.Question{}, quiz.ErrSkillNotFound
			}
			return quiz.Question{}, fmt.Errorf("attach skill %s: %w", sid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return quiz.Question{}, err
	}
	return q, nil
}

const questionSelect = `
SELECT q.id, q.question_text, q.options, q.correct_option_index, q.created_at,
       COALESCE(array_agg(qs.skill_id::text) FILTER (WHERE qs.skill_id IS NOT NULL), '{}') AS skill_ids
FROM questions q
LEFT JOIN question_skills qs ON qs.question_id = q.id
`

func scanQuestion(row rowScanner) (quiz.Question, error) {
	var (
		q        quiz.Question
		id       string
		options  []string
		skillIDs []string
	)
	if err := row.Scan(&id, &q.QuestionText, pq.Array(&options), &q.CorrectOptionIndex, &q.CreatedAt, pq.Array(&skillIDs)); err != nil {
		return quiz.Question{}, err
	}
	q.ID = quiz.ID(id)
	q.Options = options
	for _, s := range skillIDs {
		q.SkillIDs = append(q.SkillIDs, quiz.ID(s))
	}
	return q, nil
}

func (r *QuizRepo) queryQuestions(ctx context.Context, query string, args ...any) ([]quiz.Question, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []quiz.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListQuestions 依建立時間分頁，回傳該頁題目與總數。
func (r *QuizRepo) ListQuestions(ctx context.Context, offset, limit int) ([]quiz.Question, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions;`).Scan(&total); err != nil {
		return nil, 0, err
	}
	list, err := r.queryQuestions(ctx, questionSelect+`GROUP BY q.id
ORDER BY q.created_at, q.id
LIMIT $1 OFFSET $2;`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *QuizRepo) ListAllQuestions(ctx context.Context) ([]quiz.Question, error) {
	return r.queryQuestions(ctx, questionSelect+`GROUP BY q.id
ORDER BY q.created_at, q.id;`)
}

func (r *QuizRepo) FindQuestion(ctx context.Context, id quiz.ID) (quiz.Question, error) {
	q, err := scanQuestion(r.db.QueryRowContext(ctx, questionSelect+`WHERE q.id = $1
GROUP BY q.id;`, string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return quiz.Question{}, quiz.ErrQuestionNotFound
	}
	return q, err
}

// SaveAttempt 寫入作答紀錄。
func (r *QuizRepo) SaveAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	const q = `
INSERT INTO attempts (id, user_id, question_id, selected_option_index, is_correct, created_at)
VALUES ($1, $2, $3, $4, $5, $6);
`
	a.ID = quiz.ID(r.newID())
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	if _, err := r.db.ExecContext(ctx, q, string(a.ID), string(a.UserID), string(a.QuestionID), a.SelectedOptionIndex, a.IsCorrect, a.CreatedAt); err != nil {
		return quiz.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}
	return a, nil
}

func (r *QuizRepo) ListAttempts(ctx context.Context) ([]quiz.Attempt, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, question_id, selected_option_index, is_correct, created_at
FROM attempts
ORDER BY created_at;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []quiz.Attempt
	for rows.Next() {
		var a quiz.Attempt
		var id, userID, questionID string
		if err := rows.Scan(&id, &userID, &questionID, &a.SelectedOptionIndex, &a.IsCorrect, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ID, a.UserID, a.QuestionID = quiz.ID(id), quiz.ID(userID), quiz.ID(questionID)
		out = append(out, a)
	}
	return out, rows.Err()
}
