package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/logger"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/metrics"
)

// ReservationExpirer は期限切れ予約を一括キャンセルするインターフェース
type ReservationExpirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}

// ExpirationSweeper は期限切れの仮押さえ予約を定期的にキャンセルするワーカー
type ExpirationSweeper struct {
	reservationService ReservationExpirer
	interval           time.Duration
	stopCh             chan struct{}
	doneCh             chan struct{}
}

// NewExpirationSweeper は新しいスイーパーを作成
func NewExpirationSweeper(rs ReservationExpirer, interval time.Duration) *ExpirationSweeper {
	return &ExpirationSweeper{
		reservationService: rs,
		interval:           interval,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start はスイーパーを開始
func (s *ExpirationSweeper) Start(ctx context.Context) {
	logger.Info("期限切れスイーパー開始",
		zap.Duration("interval", s.interval),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("期限切れスイーパー停止（コンテキストキャンセル）")
			return
		case <-s.stopCh:
			logger.Info("期限切れスイーパー停止（シグナル受信）")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// Stop はスイーパーを停止
func (s *ExpirationSweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

// sweep は期限切れ予約を1回分キャンセルする
func (s *ExpirationSweeper) sweep(ctx context.Context) {
	log := logger.Get()
	log.Debug("期限切れ予約のスイープ開始")

	start := time.Now()
	count, err := s.reservationService.ExpireDue(ctx, start)
	metrics.Get().SweepDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.Error("期限切れ予約のスイープ失敗", zap.Error(err))
		return
	}

	if count > 0 {
		log.Info("期限切れ予約をキャンセル", zap.Int("count", count))
		metrics.Get().CancellationsTotal.WithLabelValues("expired").Add(float64(count))
	} else {
		log.Debug("期限切れ予約なし")
	}
}
