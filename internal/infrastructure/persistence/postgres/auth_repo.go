package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	authDomain "master-o-quizz/internal/domain/auth"
	authinfra "master-o-quizz/internal/infrastructure/auth"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isPgError(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// AuthRepo 提供使用者、角色、session 的存取。
type AuthRepo struct {
	db    *sql.DB
	newID func() string
}

// NewAuthRepo 建立 AuthRepo。
func NewAuthRepo(db *sql.DB) *AuthRepo {
	return &AuthRepo{db: db, newID: uuid.NewString}
}

const userSelect = `
SELECT u.id, u.email, u.display_name, u.password_hash, u.status, COALESCE(r.name, '') AS role_name
FROM users u
LEFT JOIN user_roles ur ON u.id = ur.user_id
LEFT JOIN roles r ON ur.role_id = r.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (authDomain.User, error) {
	var u authDomain.User
	var id, roleName, status string
	if err := row.Scan(&id, &u.Email, &u.Name, &u.Password, &status, &roleName); err != nil {
		return authDomain.User{}, err
	}
	u.ID = authDomain.ID(id)
	u.Status = authDomain.Status(status)
	u.Role = authDomain.Role(roleName)
	return u, nil
}

// FindByEmail 依 email 查詢使用者與主要角色。
func (r *AuthRepo) FindByEmail(ctx context.Context, email string) (authDomain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+"WHERE u.email = $1\nLIMIT 1;", email))
	if errors.Is(err, sql.ErrNoRows) {
		return authDomain.User{}, authDomain.ErrUserNotFound
	}
	return u, err
}

// FindByID 依 ID 查詢使用者與主要角色。
func (r *AuthRepo) FindByID(ctx context.Context, id authDomain.ID) (authDomain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, userSelect+"WHERE u.id = $1\nLIMIT 1;", string(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return authDomain.User{}, authDomain.ErrUserNotFound
	}
	return u, err
}

// ListUsers 依建立時間列出所有使用者。
func (r *AuthRepo) ListUsers(ctx context.Context) ([]authDomain.User, error) {
	rows, err := r.db.QueryContext(ctx, userSelect+"ORDER BY u.created_at, u.id;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []authDomain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateUser 新增使用者並綁定角色；email 重複時回傳 ErrEmailTaken。
func (r *AuthRepo) CreateUser(ctx context.Context, user authDomain.User) (authDomain.User, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return authDomain.User{}, err
	}
	defer tx.Rollback()

	if user.Status == "" {
		user.Status = authDomain.StatusActive
	}
	if user.Role == "" {
		user.Role = authDomain.RoleUser
	}
	const insert = `
INSERT INTO users (id, email, display_name, password_hash, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id;
`
	var id string
	if err := tx.QueryRowContext(ctx, insert, r.newID(), user.Email, user.Name, user.Password, string(user.Status)).Scan(&id); err != nil {
		if isPgError(err, pgUniqueViolation) {
			return authDomain.User{}, authDomain.ErrEmailTaken
		}
		return authDomain.User{}, fmt.Errorf("insert user: %w", err)
	}

	var roleID string
	if err := tx.QueryRowContext(ctx, `SELECT id FROM roles WHERE name = $1`, string(user.Role)).Scan(&roleID); err != nil {
		return authDomain.User{}, fmt.Errorf("find role %s: %w", user.Role, err)
	}
	if err := attachRoleTx(ctx, tx, id, roleID); err != nil {
		return authDomain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return authDomain.User{}, err
	}
	user.ID = authDomain.ID(id)
	return user, nil
}

// SeedDefaults 建立預設角色與帳號（admin/user）。
func (r *AuthRepo) SeedDefaults(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	roleIDs := map[authDomain.Role]string{}
	roles := []authDomain.Role{authDomain.RoleAdmin, authDomain.RoleUser}
	for _, role := range roles {
		id, err := upsertRoleTx(ctx, tx, r.newID(), string(role))
		if err != nil {
			return err
		}
		roleIDs[role] = id
	}

	users := []struct {
		email string
		name  string
		role  authDomain.Role
	}{
		{"admin@example.com", "Admin", authDomain.RoleAdmin},
		{"user@example.com", "User", authDomain.RoleUser},
	}
	for _, u := range users {
		hash, err := authinfra.HashPassword("password123")
		if err != nil {
			return err
		}
		uid, err := upsertUserTx(ctx, tx, r.newID(), u.email, u.name, hash)
		if err != nil {
			return err
		}
		if err := attachRoleTx(ctx, tx, uid, roleIDs[u.role]); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func upsertRoleTx(ctx context.Context, tx *sql.Tx, id, name string) (string, error) {
	const q = `
INSERT INTO roles (id, name, description)
VALUES ($1, $2, $3)
ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description
RETURNING id;
`
	var out string
	if err := tx.QueryRowContext(ctx, q, id, name, fmt.Sprintf("system role %s", name)).Scan(&out); err != nil {
		return "", err
	}
	return out, nil
}

func upsertUserTx(ctx context.Context, tx *sql.Tx, id, email, name, passwordHash string) (string, error) {
	const q = `
INSERT INTO users (id, email, display_name, password_hash, status)
VALUES ($1, $2, $3, $4, 'active')
ON CONFLICT (email) DO UPDATE SET display_name = EXCLUDED.display_name, password_hash = EXCLUDED.password_hash
RETURNING id;
`
	var out string
	if err := tx.QueryRowContext(ctx, q, id, email, name, passwordHash).Scan(&out); err != nil {
		return "", err
	}
	return out, nil
}

func attachRoleTx(ctx context.Context, tx *sql.Tx, userID, roleID string) error {
	const q = `
INSERT INTO user_roles (user_id, role_id)
VALUES ($1, $2)
ON CONFLICT (user_id, role_id) DO NOTHING;
`
	_, err := tx.ExecContext(ctx, q, userID, roleID)
	return err
}

// SaveSession 寫入 refresh token session。
func (r *AuthRepo) SaveSession(ctx context.Context, sess authDomain.Session) error {
	const q = `
INSERT INTO auth_sessions (user_id, refresh_token_id, expires_at, user_agent, ip_address)
VALUES ($1, $2, $3, $4, $5);
`
	_, err := r.db.ExecContext(ctx, q, string(sess.UserID), sess.Token, sess.ExpiresAt, sess.UserAgent, sess.IPAddress)
	return err
}

// GetSession 依 refresh token 查詢 session。
func (r *AuthRepo) GetSession(ctx context.Context, token string) (authDomain.Session, error) {
	const q = `
SELECT user_id, refresh_token_id, expires_at, revoked_at, user_agent, ip_address, created_at
FROM auth_sessions
WHERE refresh_token_id = $1;
`
	var (
		sess      authDomain.Session
		userID    string
		revokedAt sql.NullTime
		userAgent sql.NullString
		ip        sql.NullString
	)
	err := r.db.QueryRowContext(ctx, q, token).Scan(&userID, &sess.Token, &sess.ExpiresAt, &revokedAt, &userAgent, &ip, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return authDomain.Session{}, authDomain.ErrSessionNotFound
	}
	if err != nil {
		return authDomain.Session{}, err
	}
	sess.UserID = authDomain.ID(userID)
	if revokedAt.Valid {
		t := revokedAt.Time
		sess.RevokedAt = &t
	}
	sess.UserAgent = userAgent.String
	sess.IPAddress = ip.String
	return sess, nil
}

// RevokeSession 標記 session 已撤銷。
func (r *AuthRepo) RevokeSession(ctx context.Context, token string) error {
	const q = `
UPDATE auth_sessions SET revoked_at = $2
WHERE refresh_token_id = $1 AND revoked_at IS NULL;
`
	_, err := r.db.ExecContext(ctx, q, token, time.Now())
	return err
}

// PurgeSessions 刪除在 before 之前到期或撤銷的 session。
func (r *AuthRepo) PurgeSessions(ctx context.Context, before time.Time) (int64, error) {
	const q = `
DELETE FROM auth_sessions
WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $1);
`
	res, err := r.db.ExecContext(ctx, q, before)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}
