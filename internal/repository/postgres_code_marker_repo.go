package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
)

// PostgresCodeMarkerRepo はoauth_codesテーブルを使用した使用済みコードマーカー。
// 複数インスタンス間でも1つの認可コードが記録に成功するのは1回だけ。
type PostgresCodeMarkerRepo struct {
	db *sql.DB
}

// NewPostgresCodeMarkerRepo はPostgresCodeMarkerRepoを生成する。
func NewPostgresCodeMarkerRepo(db *sql.DB) *PostgresCodeMarkerRepo {
	return &PostgresCodeMarkerRepo{db: db}
}

// MarkUsed は認可コードのハッシュを記録する。
// 挿入できた場合はtrue、すでに存在した場合はfalseを返す。
func (r *PostgresCodeMarkerRepo) MarkUsed(ctx context.Context, code string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO oauth_codes (code_hash) VALUES ($1) ON CONFLICT DO NOTHING`,
		HashCode(code),
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark oauth code: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// HashCode は認可コードのSHA-256ハッシュを16進文字列で返す。
// 認可コードそのものは保存しない。
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// compile-time interface check
var _ CodeMarker = (*PostgresCodeMarkerRepo)(nil)
