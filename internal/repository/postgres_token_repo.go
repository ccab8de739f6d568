package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hitoshi/cookingstore/internal/model"
)

// PostgresTokenRepo はPostgreSQLのsessionsテーブルを使用したトークンストア。
// expires_atは保存期間の上限であり、トークンの有効期限とは無関係。
type PostgresTokenRepo struct {
	db     *sql.DB
	maxAge time.Duration
}

// NewPostgresTokenRepo はPostgresTokenRepoを生成する。
// maxAgeはセッション行の保存期間（Cookieの最大寿命と揃える）。
func NewPostgresTokenRepo(db *sql.DB, maxAge time.Duration) *PostgresTokenRepo {
	return &PostgresTokenRepo{db: db, maxAge: maxAge}
}

// Get は指定セッションIDのトークンを取得する。保存されていない場合はnilを返す。
func (r *PostgresTokenRepo) Get(ctx context.Context, sid string) (*model.TokenSet, error) {
	tokens := &model.TokenSet{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id_token, access_token
		 FROM sessions
		 WHERE id = $1 AND expires_at > now()`,
		sid,
	).Scan(&tokens.IDToken, &tokens.AccessToken)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session tokens: %w", err)
	}

	return tokens, nil
}

// Set はトークンを保存する。同一セッションIDの行があれば上書きし、保存期間を延長する。
func (r *PostgresTokenRepo) Set(ctx context.Context, sid string, tokens model.TokenSet) error {
	expiresAt := time.Now().Add(r.maxAge)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (id, id_token, access_token, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (id) DO UPDATE SET
		     id_token = EXCLUDED.id_token,
		     access_token = EXCLUDED.access_token,
		     expires_at = EXCLUDED.expires_at,
		     updated_at = now()`,
		sid, tokens.IDToken, tokens.AccessToken, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store session tokens: %w", err)
	}
	return nil
}

// Clear は指定セッションIDのトークンを削除する。
func (r *PostgresTokenRepo) Clear(ctx context.Context, sid string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE id = $1`,
		sid,
	)
	if err != nil {
		return fmt.Errorf("failed to clear session tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TokenRepository = (*PostgresTokenRepo)(nil)
