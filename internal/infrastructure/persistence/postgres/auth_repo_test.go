package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	authDomain "master-o-quizz/internal/domain/auth"
)

func newMockAuthRepo(t *testing.T) (*AuthRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock: %s", err)
	}
	t.Cleanup(func() { db.Close() })
	repo := NewAuthRepo(db)
	repo.newID = func() string { return "u-99" }
	return repo, mock
}

func TestAuthRepo_FindByEmail(t *testing.T) {
	repo, mock := newMockAuthRepo(t)

	rows := sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "status", "role_name"}).
		AddRow("u-1", "test@example.com", "Test User", "hash", "active", "admin")

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("test@example.com").
		WillReturnRows(rows)

	u, err := repo.FindByEmail(context.Background(), "test@example.com")
	if err != nil {
		t.Fatalf("FindByEmail failed: %v", err)
	}
	if u.ID != "u-1" || u.Role != authDomain.RoleAdmin || !u.IsActive() {
		t.Errorf("unexpected user: %+v", u)
	}
}

func TestAuthRepo_FindByEmail_NotFound(t *testing.T) {
	repo, mock := newMockAuthRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, authDomain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthRepo_FindByID(t *testing.T) {
	repo, mock := newMockAuthRepo(t)

	rows := sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "status", "role_name"}).
		AddRow("u-1", "test@example.com", "Test User", "hash", "active", "admin")

	mock.ExpectQuery("SELECT (.+) FROM users u LEFT JOIN user_roles ur").
		WithArgs("u-1").
		WillReturnRows(rows)

	u, err := repo.FindByID(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if u.ID != "u-1" {
		t.Errorf("expected u-1, got %s", u.ID)
	}
}

func TestAuthRepo_ListUsers(t *testing.T) {
	repo, mock := newMockAuthRepo(t)
	rows := sqlmock.NewRows([]string{"id", "email", "display_name", "password_hash", "status", "role_name"}).
		AddRow("u-1", "a@example.com", "A", "h", "active", "admin").
		AddRow("u-2", "b@example.com", "B", "h", "active", "user")
	mock.ExpectQuery("SELECT (.+) FROM users (.+) ORDER BY u.created_at").WillReturnRows(rows)

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[1].Role != authDomain.RoleUser {
		t.Errorf("unexpected users: %+v", users)
	}
}

func TestAuthRepo_CreateUser(t *testing.T) {
	repo, mock := newMockAuthRepo(t)
	u := authDomain.User{Email: "new@example.com", Name: "New", Role: authDomain.RoleUser, Password: "pwd"}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").
		WithArgs("u-99", "new@example.com", "New", "pwd", "active").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-99"))
	mock.ExpectQuery("SELECT id FROM roles WHERE name = \\$1").WithArgs("user").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r-1"))
	mock.ExpectExec("INSERT INTO user_roles").WithArgs("u-99", "r-1").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	created, err := repo.CreateUser(context.Background(), u)
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if created.ID != "u-99" || created.Status != authDomain.StatusActive {
		t.Errorf("unexpected user %+v", created)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestAuthRepo_CreateUser_Duplicate(t *testing.T) {
	repo, mock := newMockAuthRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectRollback()

	_, err := repo.CreateUser(context.Background(), authDomain.User{Email: "dup@example.com"})
	if !errors.Is(err, authDomain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthRepo_SaveSession(t *testing.T) {
	repo, mock := newMockAuthRepo(t)
	sess := authDomain.Session{
		UserID:    "u-1",
		Token:     "t-1",
		ExpiresAt: time.Now().Add(time.Hour),
		UserAgent: "UA",
		IPAddress: "127.0.0.1",
	}

	mock.ExpectExec("INSERT INTO auth_sessions").
		WithArgs("u-1", sess.Token, sess.ExpiresAt, sess.UserAgent, sess.IPAddress).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
}

func TestAuthRepo_GetSession(t *testing.T) {
	repo, mock := newMockAuthRepo(t)

	rows := sqlmock.NewRows([]string{"user_id", "refresh_token_id", "expires_at", "revoked_at", "user_agent", "ip_address", "created_at"}).
		AddRow("u-1", "t-1", time.Now().Add(time.Hour), nil, "UA", "127.0.0.1", time.Now())

	mock.ExpectQuery("SELECT (.+) FROM auth_sessions").
		WithArgs("t-1").
		WillReturnRows(rows)

	sess, err := repo.GetSession(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if sess.UserID != "u-1" || sess.Token != "t-1" || sess.RevokedAt != nil {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestAuthRepo_GetSession_NotFound(t *testing.T) {
	repo, mock := newMockAuthRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM auth_sessions").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetSession(context.Background(), "missing"); !errors.Is(err, authDomain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthRepo_RevokeSession(t *testing.T) {
	repo, mock := newMockAuthRepo(t)

	mock.ExpectExec("UPDATE auth_sessions").
		WithArgs("t-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.RevokeSession(context.Background(), "t-1"); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
}

func TestAuthRepo_PurgeSessions(t *testing.T) {
	repo, mock := newMockAuthRepo(t)
	cutoff := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("DELETE FROM auth_sessions").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := repo.PurgeSessions(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PurgeSessions failed: %v", err)
	}
	if n != 4 {
		t.Fatalf("expected 4 rows, got %d", n)
	}
}

func TestAuthRepo_SeedDefaults(t *testing.T) {
	repo, mock := newMockAuthRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO roles").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r1")) // admin
	mock.ExpectQuery("INSERT INTO roles").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("r2")) // user

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("INSERT INTO users").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u"))
		mock.ExpectExec("INSERT INTO user_roles").WillReturnResult(sqlmock.NewResult(1, 1))
	}
	mock.ExpectCommit()

	if err := repo.SeedDefaults(context.Background()); err != nil {
		t.Fatalf("SeedDefaults failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
