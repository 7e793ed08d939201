package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/transaction"
	redisinfra "github.com/rkociniewski/cinema-seat-reservation-system/internal/infrastructure/redis"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/logger"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/metrics"
)

const (
	screeningLockTTL     = 10 * time.Second
	lockMaxRetries       = 3
	lockRetryDelay       = 100 * time.Millisecond
	availabilityCacheTTL = 30 * time.Second
)

// ReservationService は予約エンジン。予約のライフサイクル（作成・支払い確定・
// キャンセル・期限切れ回収）と座席クレームプロトコルを司る。
type ReservationService struct {
	txm          transaction.Manager
	reservations reservation.Repository
	ledger       reservation.Ledger
	screenings   catalog.ScreeningRepository
	seats        catalog.SeatRepository
	customers    catalog.CustomerRepository
	locks        *redisinfra.ScreeningLockManager // nil の場合はDB制約のみで直列化
	cache        *redisinfra.AvailabilityCache    // nil 可
	timeout      time.Duration
}

func NewReservationService(
	txm transaction.Manager,
	rr reservation.Repository,
	ledger reservation.Ledger,
	scr catalog.ScreeningRepository,
	sr catalog.SeatRepository,
	cr catalog.CustomerRepository,
	locks *redisinfra.ScreeningLockManager,
	cache *redisinfra.AvailabilityCache,
	timeout time.Duration,
) *ReservationService {
	return &ReservationService{
		txm:          txm,
		reservations: rr,
		ledger:       ledger,
		screenings:   scr,
		seats:        sr,
		customers:    cr,
		locks:        locks,
		cache:        cache,
		timeout:      timeout,
	}
}

// CreateReservationInput は予約作成の入力
type CreateReservationInput struct {
	CustomerID  int64
	ScreeningID int64
	Seats       []reservation.SeatSelection
}

// CreateReservation は指定座席すべてを1つの新しい予約で押さえる。
// 全席のクレームと予約本体の書き込みは単一トランザクションで行い、
// どれか1席でも競合した場合は何も残さず SeatTakenError を返す。
func (s *ReservationService) CreateReservation(ctx context.Context, input CreateReservationInput) (*reservation.Reservation, error) {
	res, err := reservation.NewReservation(input.ScreeningID, input.CustomerID, input.Seats)
	if err != nil {
		return nil, err
	}

	if _, err := s.customers.GetByID(ctx, input.CustomerID); err != nil {
		return nil, err
	}
	screening, err := s.screenings.GetByID(ctx, input.ScreeningID)
	if err != nil {
		return nil, err
	}

	// 上映単位の分散ロックで競合窓を狭める（最終的な保証はDBの部分一意インデックス）
	if s.locks != nil {
		lockStart := time.Now()
		lock, err := s.locks.AcquireWithRetry(ctx, input.ScreeningID, screeningLockTTL, lockMaxRetries, lockRetryDelay)
		if err != nil {
			metrics.Get().DistributedLockDuration.WithLabelValues("acquire", "failed").Observe(time.Since(lockStart).Seconds())
			if errors.Is(err, redisinfra.ErrLockNotAcquired) {
				return nil, fmt.Errorf("座席が他のユーザーによって処理中です: %w", err)
			}
			return nil, fmt.Errorf("ロック取得に失敗: %w", err)
		}
		metrics.Get().DistributedLockDuration.WithLabelValues("acquire", "success").Observe(time.Since(lockStart).Seconds())
		defer lock.Release(ctx)
	}

	// 座席がホールに属しているかの確認（一括取得）
	hallSeats, err := s.seats.ListByHallID(ctx, screening.HallID)
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	hallSeatIDs := make(map[int64]struct{}, len(hallSeats))
	for _, seat := range hallSeats {
		hallSeatIDs[seat.ID] = struct{}{}
	}
	for _, sel := range input.Seats {
		if _, ok := hallSeatIDs[sel.SeatID]; !ok {
			return nil, catalog.ErrSeatNotFound
		}
	}

	// 事前の空席確認（一括取得）。DB制約による再検証があるため参考値だが、
	// 最初に競合した座席を特定したエラーを返せる。
	claimed, err := s.ledger.ClaimedSeatIDs(ctx, input.ScreeningID)
	if err != nil {
		return nil, fmt.Errorf("座席台帳の取得に失敗: %w", err)
	}
	claimedSet := make(map[int64]struct{}, len(claimed))
	for _, id := range claimed {
		claimedSet[id] = struct{}{}
	}
	for _, sel := range input.Seats {
		if _, taken := claimedSet[sel.SeatID]; taken {
			return nil, &reservation.SeatTakenError{SeatID: sel.SeatID}
		}
	}

	// 予約本体と全クレーム行を単一トランザクションで書き込む
	if err := transaction.Run(ctx, s.txm, func(tx transaction.Tx) error {
		return s.reservations.Create(ctx, tx, res)
	}); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, input.ScreeningID)
	logger.Info("予約を作成",
		zap.Int64("reservation_id", res.ID),
		zap.Int64("screening_id", res.ScreeningID),
		zap.Int64("customer_id", res.CustomerID),
		zap.Int("seats", len(res.Seats)),
	)
	return res, nil
}

// GetReservation はIDから予約（クレーム行込み）を取得する
func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*reservation.Reservation, error) {
	return s.reservations.GetByID(ctx, id)
}

// GetCustomerReservations は顧客の予約一覧を取得する
func (s *ReservationService) GetCustomerReservations(ctx context.Context, customerID int64) ([]*reservation.Reservation, error) {
	if _, err := s.customers.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.reservations.GetByCustomerID(ctx, customerID)
}

// ConfirmPayment はタイムアウト内に限り RESERVED → PAID の遷移を行う。
// 既に PAID の予約への呼び出しは冪等な成功。条件付き更新を使うため、
// 期限切れスイープと競合しても後勝ち上書きは起きない。
func (s *ReservationService) ConfirmPayment(ctx context.Context, id int64) (*reservation.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.State == reservation.StatePaid {
		return res, nil
	}

	now := time.Now()
	if err := res.ConfirmPayment(s.timeout, now); err != nil {
		return nil, err
	}

	if err := transaction.Run(ctx, s.txm, func(tx transaction.Tx) error {
		ok, err := s.reservations.UpdateStateIfReserved(ctx, tx, id, reservation.StatePaid, now)
		if err != nil {
			return err
		}
		if !ok {
			latest, err := s.reservations.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if latest.State == reservation.StatePaid {
				return nil
			}
			// スイープが先にキャンセルを確定させた
			return reservation.ErrReservationExpired
		}
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info("支払いを確定", zap.Int64("reservation_id", id))
	return s.reservations.GetByID(ctx, id)
}

// CancelReservation は RESERVED → CANCELED の遷移を行い、座席を解放する。
// 空席判定は released されていないクレームだけを数えるため、解放された座席は
// 即座に空席照会へ反映される。既に CANCELED の予約への呼び出しは冪等な成功。
func (s *ReservationService) CancelReservation(ctx context.Context, id int64) (*reservation.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	switch res.State {
	case reservation.StateCanceled:
		return res, nil
	case reservation.StatePaid:
		return nil, reservation.ErrPaidNotCancelable
	}

	if err := transaction.Run(ctx, s.txm, func(tx transaction.Tx) error {
		ok, err := s.reservations.UpdateStateIfReserved(ctx, tx, id, reservation.StateCanceled, now)
		if err != nil {
			return err
		}
		if !ok {
			latest, err := s.reservations.GetByID(ctx, id)
			if err != nil {
				return err
			}
			if latest.State == reservation.StateCanceled {
				return nil
			}
			return reservation.ErrPaidNotCancelable
		}
		return s.reservations.ReleaseSeats(ctx, tx, id)
	}); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, res.ScreeningID)
	logger.Info("予約をキャンセル", zap.Int64("reservation_id", id))
	return s.reservations.GetByID(ctx, id)
}

// AvailableSeats は上映の空席一覧を返す。ホール全座席とクレーム済み座席を
// それぞれ一括取得し、差集合を取る（座席ごとの問い合わせループは行わない）。
func (s *ReservationService) AvailableSeats(ctx context.Context, screeningID int64) ([]*catalog.Seat, error) {
	screening, err := s.screenings.GetByID(ctx, screeningID)
	if err != nil {
		return nil, err
	}

	allSeats, err := s.seats.ListByHallID(ctx, screening.HallID)
	if err != nil {
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	claimed, err := s.ledger.ClaimedSeatIDs(ctx, screeningID)
	if err != nil {
		return nil, fmt.Errorf("座席台帳の取得に失敗: %w", err)
	}

	claimedSet := make(map[int64]struct{}, len(claimed))
	for _, id := range claimed {
		claimedSet[id] = struct{}{}
	}
	available := make([]*catalog.Seat, 0, len(allSeats))
	for _, seat := range allSeats {
		if _, taken := claimedSet[seat.ID]; !taken {
			available = append(available, seat)
		}
	}
	return available, nil
}

// CountAvailableSeats は上映の空席数を返す（短TTLのキャッシュ付き）
func (s *ReservationService) CountAvailableSeats(ctx context.Context, screeningID int64) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, screeningID)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("キャッシュ取得エラー", zap.Error(err))
		}
	}

	available, err := s.AvailableSeats(ctx, screeningID)
	if err != nil {
		return 0, err
	}
	count := len(available)

	if s.cache != nil {
		if err := s.cache.SetAvailableCount(ctx, screeningID, count, availabilityCacheTTL); err != nil {
			logger.Warn("キャッシュ保存エラー", zap.Error(err))
		}
	}
	return count, nil
}

// ExpireDue は createdAt が (now − timeout) より古い RESERVED 予約をすべて
// CANCELED に遷移させ、キャンセルできた件数を返す。予約1件ごとに独立した
// トランザクションで処理し、1件の失敗が残りを妨げない。条件付き更新を使うため
// 照会と更新の間に支払いが確定した予約を上書きすることはない。
func (s *ReservationService) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.timeout)
	expired, err := s.reservations.FindExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	count := 0
	for _, res := range expired {
		canceled := false
		err := transaction.Run(ctx, s.txm, func(tx transaction.Tx) error {
			ok, err := s.reservations.UpdateStateIfReserved(ctx, tx, res.ID, reservation.StateCanceled, now)
			if err != nil {
				return err
			}
			if !ok {
				// 照会後に支払いが確定した予約には触らない
				return nil
			}
			canceled = true
			return s.reservations.ReleaseSeats(ctx, tx, res.ID)
		})
		if err != nil {
			// 1件の失敗でバッチ全体を中断しない
			logger.Error("期限切れ予約のキャンセルに失敗",
				zap.Int64("reservation_id", res.ID),
				zap.Error(err),
			)
			continue
		}
		if canceled {
			count++
			s.invalidateCache(ctx, res.ScreeningID)
		}
	}

	if count > 0 {
		logger.Info("期限切れ予約をキャンセル", zap.Int("count", count))
	}
	return count, nil
}

func (s *ReservationService) invalidateCache(ctx context.Context, screeningID int64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, screeningID); err != nil {
			logger.Warn("キャッシュ無効化エラー", zap.Error(err))
		}
	}
}
