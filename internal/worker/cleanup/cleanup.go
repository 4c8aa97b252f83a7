// Package cleanup は失効済みトークン記録の定期削除ジョブを提供する。
// 本来の有効期限を過ぎたトークンは署名検証の時点で拒否されるため、
// 失効リストに残しておく必要はない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ExpiredTokenPurger は期限切れの失効記録を削除するインターフェース。
// repository.RevocationRepositoryが実装する。
type ExpiredTokenPurger interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RevocationCleanupJob は期限切れの失効記録を削除するジョブ。
// 削除は冪等で、対象がない場合もエラーにならない。
type RevocationCleanupJob struct {
	revocations ExpiredTokenPurger
	logger      *slog.Logger
	now         func() time.Time
}

// NewRevocationCleanupJob は新しいRevocationCleanupJobを生成する。
func NewRevocationCleanupJob(revocations ExpiredTokenPurger, logger *slog.Logger) *RevocationCleanupJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &RevocationCleanupJob{
		revocations: revocations,
		logger:      logger,
		now:         time.Now,
	}
}

// Run は現在時刻より前に期限切れとなった失効記録を削除する。
func (j *RevocationCleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.revocations.DeleteExpired(ctx, j.now())
	if err != nil {
		j.logger.Error("失効トークンのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to purge expired revocations: %w", err)
	}

	j.logger.Info("失効トークンのクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回実行し、その後interval間隔でRunを繰り返す。
// コンテキストがキャンセルされるまでブロックする。
func (j *RevocationCleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("失効トークンのクリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	// 失敗はログに残し、次の周期で再試行する
	_ = j.Run(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("失効トークンのクリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
