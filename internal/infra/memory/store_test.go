package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"master-o-quizz/internal/domain/auth"
	"master-o-quizz/internal/domain/quiz"
)

func TestStore_Users(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	t.Run("CreateAndFind", func(t *testing.T) {
		u, err := s.CreateUser(ctx, auth.User{Email: "test@example.com", Name: "Test"})
		if err != nil {
			t.Fatal(err)
		}
		got, err := s.FindByID(ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got.Email != "test@example.com" {
			t.Errorf("expected email mismatch: %s", got.Email)
		}

		u2, err := s.FindByEmail(ctx, "TEST@example.com")
		if err != nil || u2.ID != u.ID {
			t.Error("FindByEmail failed")
		}
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		_, err := s.CreateUser(ctx, auth.User{Email: "Test@Example.com"})
		if !errors.Is(err, auth.ErrEmailTaken) {
			t.Errorf("expected ErrEmailTaken, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := s.FindByEmail(ctx, "ghost@example.com"); !errors.Is(err, auth.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
		if _, err := s.FindByID(ctx, "999"); !errors.Is(err, auth.ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})

	t.Run("SeedUsers", func(t *testing.T) {
		s.SeedUsers()
		admin, err := s.FindByEmail(ctx, "admin@example.com")
		if err != nil {
			t.Fatal("admin user seed failed")
		}
		if !admin.IsAdmin() || admin.Password == "password123" {
			t.Errorf("unexpected admin %+v", admin)
		}
		users, _ := s.ListUsers(ctx)
		if len(users) != 3 || users[0].Email != "test@example.com" {
			t.Errorf("users should keep creation order: %+v", users)
		}
	})
}

func TestStore_Sessions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	if err := s.SaveSession(ctx, auth.Session{Token: "r1", UserID: "1", ExpiresAt: now.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	sess, err := s.GetSession(ctx, "r1")
	if err != nil || !sess.Active(now) {
		t.Fatalf("expected active session: %+v %v", sess, err)
	}
	if err := s.RevokeSession(ctx, "r1"); err != nil {
		t.Fatal(err)
	}
	sess, _ = s.GetSession(ctx, "r1")
	if sess.Active(now) {
		t.Error("revoked session must be inactive")
	}
	if _, err := s.GetSession(ctx, "missing"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestStore_PurgeSessions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now()

	_ = s.SaveSession(ctx, auth.Session{Token: "live", UserID: "1", ExpiresAt: now.Add(time.Hour)})
	_ = s.SaveSession(ctx, auth.Session{Token: "expired", UserID: "1", ExpiresAt: now.Add(-time.Minute)})
	_ = s.SaveSession(ctx, auth.Session{Token: "revoked", UserID: "1", ExpiresAt: now.Add(time.Hour)})
	if err := s.RevokeSession(ctx, "revoked"); err != nil {
		t.Fatal(err)
	}

	n, err := s.PurgeSessions(ctx, now.Add(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 purged, got %d", n)
	}
	if _, err := s.GetSession(ctx, "live"); err != nil {
		t.Errorf("live session must survive: %v", err)
	}
	if _, err := s.GetSession(ctx, "expired"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Errorf("expired session must be gone, got %v", err)
	}
}

func TestStore_Quiz(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	sk, err := s.CreateSkill(ctx, "Go")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateSkill(ctx, "go"); !errors.Is(err, quiz.ErrSkillExists) {
		t.Errorf("expected ErrSkillExists, got %v", err)
	}
	if _, err := s.FindSkill(ctx, sk.ID); err != nil {
		t.Errorf("FindSkill: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, err := s.CreateQuestion(ctx, quiz.Question{
			QuestionText: "Q",
			Options:      []string{"a", "b"},
			SkillIDs:     []quiz.ID{sk.ID},
		}); err != nil {
			t.Fatal(err)
		}
	}
	page, total, err := s.ListQuestions(ctx, 2, 2)
	if err != nil || total != 3 || len(page) != 1 {
		t.Fatalf("unexpected page %d/%d %v", len(page), total, err)
	}
	empty, total, _ := s.ListQuestions(ctx, 10, 2)
	if len(empty) != 0 || total != 3 {
		t.Errorf("out of range page should be empty")
	}
	if _, err := s.FindQuestion(ctx, "nope"); !errors.Is(err, quiz.ErrQuestionNotFound) {
		t.Errorf("expected ErrQuestionNotFound, got %v", err)
	}

	a, err := s.SaveAttempt(ctx, quiz.Attempt{UserID: "u1", QuestionID: page[0].ID, IsCorrect: true})
	if err != nil || a.ID == "" || a.CreatedAt.IsZero() {
		t.Fatalf("unexpected attempt %+v %v", a, err)
	}
	attempts, _ := s.ListAttempts(ctx)
	if len(attempts) != 1 {
		t.Errorf("expected 1 attempt, got %d", len(attempts))
	}
}

func TestStore_ConcurrentWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.SaveAttempt(ctx, quiz.Attempt{UserID: "u1", QuestionID: "q1"})
		}()
	}
	wg.Wait()
	attempts, _ := s.ListAttempts(ctx)
	if len(attempts) != 20 {
		t.Fatalf("expected 20 attempts, got %d", len(attempts))
	}
	seen := map[quiz.ID]bool{}
	for _, a := range attempts {
		if seen[a.ID] {
			t.Fatalf("duplicate id %s", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestStore_SeedQuiz(t *testing.T) {
	s := NewStore()
	s.SeedQuiz()
	skills, _ := s.ListSkills(context.Background())
	questions, _ := s.ListAllQuestions(context.Background())
	if len(skills) != 2 || len(questions) != 2 {
		t.Fatalf("unexpected seed %d skills %d questions", len(skills), len(questions))
	}
}
