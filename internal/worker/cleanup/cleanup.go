// Package cleanup は期限切れセッションと使用済み認可コードの定期削除ジョブを提供する。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	deleteExpiredSessionsQuery = `DELETE FROM sessions WHERE expires_at < now()`
	deleteOldCodesQuery        = `DELETE FROM oauth_codes WHERE used_at < now() - $1::interval`
)

// Result は1回の実行で削除した件数。
type Result struct {
	Sessions int64
	Codes    int64
}

// CleanupJob は日次で実行するバッチジョブ。何度実行しても結果は変わらない。
type CleanupJob struct {
	db     Executor
	logger *slog.Logger

	// CodeRetention は使用済みマーカーを保持する期間。これより古いマーカーを削除する。
	CodeRetention time.Duration
}

// NewCleanupJob は新しいCleanupJobを生成する。codeRetentionが0以下なら24時間。
func NewCleanupJob(db Executor, logger *slog.Logger, codeRetention time.Duration) *CleanupJob {
	if codeRetention <= 0 {
		codeRetention = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupJob{
		db:            db,
		logger:        logger,
		CodeRetention: codeRetention,
	}
}

// Run は期限切れセッションと保持期間を過ぎた使用済みマーカーを削除する。
// セッション削除に失敗してもマーカー削除は試み、最初のエラーを返す。
func (j *CleanupJob) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	var res Result
	var firstErr error

	n, err := j.exec(ctx, "sessions", deleteExpiredSessionsQuery)
	if err != nil {
		firstErr = err
	}
	res.Sessions = n

	interval := fmt.Sprintf("%d seconds", int64(j.CodeRetention/time.Second))
	n, err = j.exec(ctx, "oauth_codes", deleteOldCodesQuery, interval)
	if err != nil && firstErr == nil {
		firstErr = err
	}
	res.Codes = n

	if firstErr != nil {
		return res, firstErr
	}

	j.logger.Info("cleanup job completed",
		slog.Int64("deleted_sessions", res.Sessions),
		slog.Int64("deleted_codes", res.Codes),
		slog.Duration("code_retention", j.CodeRetention),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res, nil
}

func (j *CleanupJob) exec(ctx context.Context, table, query string, args ...interface{}) (int64, error) {
	result, err := j.db.ExecContext(ctx, query, args...)
	if err != nil {
		j.logger.Error("cleanup delete failed",
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("failed to clean up %s: %w", table, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get deleted count for %s: %w", table, err)
	}
	return n, nil
}

// Start は起動直後に1回実行し、以降intervalごとに実行する。ctxの終了で戻る。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	j.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.runOnce(ctx)
		}
	}
}

func (j *CleanupJob) runOnce(ctx context.Context) {
	if _, err := j.Run(ctx); err != nil {
		j.logger.Error("cleanup job failed", slog.String("error", err.Error()))
	}
}
