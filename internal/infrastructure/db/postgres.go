package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"master-o-quizz/internal/infrastructure/config"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultPingTimeout  = 5 * time.Second
	defaultMaxOpenConns = 10
)

// RequiredTables cmd/migrate 建立、題庫後端啟動時必須存在的資料表。
var RequiredTables = []string{
	"users", "roles", "user_roles", "auth_sessions",
	"skills", "questions", "question_skills", "attempts",
}

// ErrSchemaMissing 資料庫可連線但尚未執行 migration。
var ErrSchemaMissing = errors.New("quiz schema missing")

// Connect 建立 PostgreSQL 連線池並確認題庫 schema 已就緒；若未設定 DSN 則回傳 nil。
func Connect(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, err
	}
	applyPool(db, cfg)

	if err := Verify(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// applyPool 未設定上限時給一個小的預設值，避免題目查詢把連線數撐滿。
func applyPool(db *sql.DB, cfg config.DBConfig) {
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxIdleTime(cfg.MaxIdleTime)
}

// Verify ping 資料庫並檢查 RequiredTables 是否都存在，health 端點也用它回報狀態。
func Verify(ctx context.Context, db *sql.DB) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultPingTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		return err
	}
	for _, table := range RequiredTables {
		var ok bool
		if err := db.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&ok); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !ok {
			return fmt.Errorf("%w: table %s (run cmd/migrate)", ErrSchemaMissing, table)
		}
	}
	return nil
}
