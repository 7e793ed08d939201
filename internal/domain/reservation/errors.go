package reservation

import (
	"errors"
	"fmt"
)

// Reservation ドメインのエラー定義
var (
	ErrReservationNotFound = errors.New("予約が見つかりません")
	ErrReservationExpired  = errors.New("予約の有効期限が切れています")
	ErrReservationCanceled = errors.New("予約は既にキャンセルされています")
	ErrPaidNotCancelable   = errors.New("支払い済みの予約はキャンセルできません")

	// 入力検証エラー
	ErrNoSeatsSelected   = errors.New("座席が選択されていません")
	ErrTooManySeats      = errors.New("1予約あたりの座席数上限を超えています")
	ErrDuplicateSeat     = errors.New("同じ座席が複数回指定されています")
	ErrInvalidTicketType = errors.New("不明なチケット種別です")

	// ErrSeatTaken は errors.Is での分類用センチネル。
	// 実際のエラーは競合した座席IDを持つ SeatTakenError として返す。
	ErrSeatTaken = errors.New("座席は既に予約されています")
)

// SeatTakenError は最初に競合した座席を特定する座席競合エラー
type SeatTakenError struct {
	SeatID int64
}

func (e *SeatTakenError) Error() string {
	return fmt.Sprintf("座席 %d は既に予約されています", e.SeatID)
}

// Is は errors.Is(err, ErrSeatTaken) での判定を可能にする
func (e *SeatTakenError) Is(target error) bool {
	return target == ErrSeatTaken
}
