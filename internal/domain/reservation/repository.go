package reservation

import (
	"context"
	"time"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/transaction"
)

// Repository は予約ストアのインターフェース
type Repository interface {
	// Create は予約とそのクレーム行を同一トランザクション内で作成する。
	// いずれかの座席が既に押さえられている場合は SeatTakenError を返し、
	// 呼び出し側がロールバックすることで部分的なクレームを残さない。
	Create(ctx context.Context, tx transaction.Tx, r *Reservation) error

	// GetByID はIDから予約（クレーム行込み）を取得する
	GetByID(ctx context.Context, id int64) (*Reservation, error)

	// GetByCustomerID は顧客IDから予約一覧を取得する
	GetByCustomerID(ctx context.Context, customerID int64) ([]*Reservation, error)

	// UpdateStateIfReserved は state = RESERVED の場合に限り next へ遷移させる
	// 条件付き更新。更新できた場合 true を返す（後勝ち上書きの禁止）。
	UpdateStateIfReserved(ctx context.Context, tx transaction.Tx, id int64, next State, now time.Time) (bool, error)

	// ReleaseSeats は予約のクレーム行に released フラグを立てる。
	// 状態遷移と同一トランザクションで呼ぶこと。
	ReleaseSeats(ctx context.Context, tx transaction.Tx, reservationID int64) error

	// FindExpired は createdAt < cutoff の RESERVED 予約を取得する
	FindExpired(ctx context.Context, cutoff time.Time) ([]*Reservation, error)
}

// Ledger は座席台帳（どの座席がどの上映で押さえられているか）の参照インターフェース。
// 空席判定の唯一の情報源で、released されていないクレーム行だけを数える。
type Ledger interface {
	// IsSeatTaken は指定の上映で座席が押さえられているかを返す
	IsSeatTaken(ctx context.Context, seatID, screeningID int64) (bool, error)

	// ClaimedSeatIDs は上映に対して押さえられている座席IDの一覧を一括取得する
	ClaimedSeatIDs(ctx context.Context, screeningID int64) ([]int64, error)
}
