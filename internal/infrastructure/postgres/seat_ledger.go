package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
)

// SeatLedger は座席台帳のPostgreSQL実装。
// released されていないクレーム行＝押さえられている座席、が空席判定の唯一の情報源。
// 同じ条件の部分一意インデックスがあるため、この読み取りと挿入の間の競合は
// 挿入側の一意制約違反として閉じられる。
type SeatLedger struct{ db *sqlx.DB }

func NewSeatLedger(db *sqlx.DB) *SeatLedger { return &SeatLedger{db: db} }

func (l *SeatLedger) IsSeatTaken(ctx context.Context, seatID, screeningID int64) (bool, error) {
	var taken bool
	query := `SELECT EXISTS (
		SELECT 1 FROM reserved_seat WHERE screening_id = $1 AND seat_id = $2 AND NOT released
	)`
	if err := l.db.GetContext(ctx, &taken, query, screeningID, seatID); err != nil {
		return false, fmt.Errorf("座席台帳の照会に失敗: %w", err)
	}
	return taken, nil
}

func (l *SeatLedger) ClaimedSeatIDs(ctx context.Context, screeningID int64) ([]int64, error) {
	var ids []int64
	query := `SELECT seat_id FROM reserved_seat WHERE screening_id = $1 AND NOT released ORDER BY seat_id`
	if err := l.db.SelectContext(ctx, &ids, query, screeningID); err != nil {
		return nil, fmt.Errorf("座席台帳の取得に失敗: %w", err)
	}
	return ids, nil
}

var _ reservation.Ledger = (*SeatLedger)(nil)
