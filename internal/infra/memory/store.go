package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	authDomain "master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/domain/quiz"
	authinfra "master-o-quizz/internal/infrastructure/auth"
)

// Store 為未設定資料庫時使用的記憶體資料庫，併發安全。
type Store struct {
	mu        sync.RWMutex
	users     map[authDomain.ID]authDomain.User
	userOrder []authDomain.ID
	sessions  map[string]sessionRecord
	skills    []quiz.Skill
	questions []quiz.Question
	attempts  []quiz.Attempt
	idSeq     int64
	now       func() time.Time
}

type sessionRecord struct {
	UserID    authDomain.ID
	ExpiresAt time.Time
	RevokedAt *time.Time
	UserAgent string
	IPAddress string
	CreatedAt time.Time
}

// NewStore 建立新的記憶體 Store 實例。
func NewStore() *Store {
	return &Store{
		users:    make(map[authDomain.ID]authDomain.User),
		sessions: make(map[string]sessionRecord),
		now:      time.Now,
	}
}

// nextID 遞增序號，呼叫端需持有寫鎖。
func (s *Store) nextID() authDomain.ID {
	s.idSeq++
	return authDomain.ID(fmt.Sprintf("%d", s.idSeq))
}

// SeedUsers 建立預設帳號供登入測試。
func (s *Store) SeedUsers() {
	hash := func(p string) string {
		h, err := authinfra.HashPassword(p)
		if err != nil {
			return p
		}
		return h
	}
	s.addUser("admin@example.com", hash("password123"), "Admin", authDomain.RoleAdmin)
	s.addUser("user@example.com", hash("password123"), "User", authDomain.RoleUser)
}

func (s *Store) addUser(email, password, name string, role authDomain.Role) {
	_, _ = s.CreateUser(context.Background(), authDomain.User{
		Email:    email,
		Name:     name,
		Role:     role,
		Status:   authDomain.StatusActive,
		Password: password,
	})
}

// SeedQuiz 建立示範技能與題目。
func (s *Store) SeedQuiz() {
	ctx := context.Background()
	goSkill, err := s.CreateSkill(ctx, "Go")
	if err != nil {
		return
	}
	httpSkill, err := s.CreateSkill(ctx, "HTTP")
	if err != nil {
		return
	}
	_, _ = s.CreateQuestion(ctx, quiz.Question{
		QuestionText:       "Which keyword starts a goroutine?",
		Options:            []string{"go", "async", "spawn", "thread"},
		CorrectOptionIndex: 0,
		SkillIDs:           []quiz.ID{goSkill.ID},
	})
	_, _ = s.CreateQuestion(ctx, quiz.Question{
		QuestionText:       "Which status code means the access token is missing or expired?",
		Options:            []string{"400", "401", "403", "404"},
		CorrectOptionIndex: 1,
		SkillIDs:           []quiz.ID{httpSkill.ID},
	})
}

// FindByEmail 依 email 查詢使用者（不分大小寫）。
func (s *Store) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return authDomain.User{}, authDomain.ErrUserNotFound
}

// FindByID 依 ID 查詢使用者。
func (s *Store) FindByID(ctx context.Context, id authDomain.ID) (authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return authDomain.User{}, authDomain.ErrUserNotFound
	}
	return u, nil
}

// CreateUser 新增使用者並配發 ID；email 重複時回傳 ErrEmailTaken。
func (s *Store) CreateUser(ctx context.Context, user authDomain.User) (authDomain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return authDomain.User{}, authDomain.ErrEmailTaken
		}
	}
	user.ID = s.nextID()
	s.users[user.ID] = user
	s.userOrder = append(s.userOrder, user.ID)
	return user, nil
}

// ListUsers 依建立順序列出使用者。
func (s *Store) ListUsers(ctx context.Context) ([]authDomain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]authDomain.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out, nil
}

// SessionStore impl
func (s *Store) SaveSession(ctx context.Context, sess authDomain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Token] = sessionRecord{
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
		RevokedAt: sess.RevokedAt,
		UserAgent: sess.UserAgent,
		IPAddress: sess.IPAddress,
		CreatedAt: sess.CreatedAt,
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, token string) (authDomain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[token]
	if !ok {
		return authDomain.Session{}, authDomain.ErrSessionNotFound
	}
	return authDomain.Session{
		Token:     token,
		UserID:    rec.UserID,
		ExpiresAt: rec.ExpiresAt,
		RevokedAt: rec.RevokedAt,
		UserAgent: rec.UserAgent,
		IPAddress: rec.IPAddress,
		CreatedAt: rec.CreatedAt,
	}, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[token]
	if !ok {
		return authDomain.ErrSessionNotFound
	}
	now := s.now()
	rec.RevokedAt = &now
	s.sessions[token] = rec
	return nil
}

// PurgeSessions 刪除在 before 之前到期或撤銷的 session，回傳刪除筆數。
func (s *Store) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for token, rec := range s.sessions {
		if rec.ExpiresAt.Before(before) || (rec.RevokedAt != nil && rec.RevokedAt.Before(before)) {
			delete(s.sessions, token)
			n++
		}
	}
	return n, nil
}

// CreateSkill 新增技能；名稱不分大小寫不可重複。
func (s *Store) CreateSkill(ctx context.Context, name string) (quiz.Skill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sk := range s.skills {
		if strings.EqualFold(sk.Name, name) {
			return quiz.Skill{}, quiz.ErrSkillExists
		}
	}
	sk := quiz.Skill{ID: s.nextID(), Name: name, CreatedAt: s.now()}
	s.skills = append(s.skills, sk)
	return sk, nil
}

func (s *Store) ListSkills(ctx context.Context) ([]quiz.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]quiz.Skill, len(s.skills))
	copy(out, s.skills)
	return out, nil
}

func (s *Store) FindSkill(ctx context.Context, id quiz.ID) (quiz.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sk := range s.skills {
		if sk.ID == id {
			return sk, nil
		}
	}
	return quiz.Skill{}, quiz.ErrSkillNotFound
}

func (s *Store) CreateQuestion(ctx context.Context, q quiz.Question) (quiz.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q.ID = s.nextID()
	q.CreatedAt = s.now()
	q.Options = append([]string(nil), q.Options...)
	q.SkillIDs = append([]quiz.ID(nil), q.SkillIDs...)
	s.questions = append(s.questions, q)
	return q, nil
}

// ListQuestions 依建立順序分頁，回傳該頁題目與總數。
func (s *Store) ListQuestions(ctx context.Context, offset, limit int) ([]quiz.Question, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.questions)
	if offset >= total {
		return []quiz.Question{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	out := make([]quiz.Question, end-offset)
	copy(out, s.questions[offset:end])
	return out, total, nil
}

func (s *Store) ListAllQuestions(ctx context.Context) ([]quiz.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]quiz.Question, len(s.questions))
	copy(out, s.questions)
	return out, nil
}

func (s *Store) FindQuestion(ctx context.Context, id quiz.ID) (quiz.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, q := range s.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return quiz.Question{}, quiz.ErrQuestionNotFound
}

// SaveAttempt 寫入作答紀錄；CreatedAt 為零值時補上現在時間。
func (s *Store) SaveAttempt(ctx context.Context, a quiz.Attempt) (quiz.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}
	s.attempts = append(s.attempts, a)
	return a, nil
}

func (s *Store) ListAttempts(ctx context.Context) ([]quiz.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]quiz.Attempt, len(s.attempts))
	copy(out, s.attempts)
	return out, nil
}
