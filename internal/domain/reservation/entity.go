package reservation

import "time"

// State は予約の状態を表す
type State string

const (
	// StateFree は永続化前のプレースホルダー（外部には公開されない）
	StateFree     State = "FREE"
	StateReserved State = "RESERVED"
	StatePaid     State = "PAID"
	StateCanceled State = "CANCELED"
)

// IsTerminal は終端状態（PAID / CANCELED）かを返す
func (s State) IsTerminal() bool {
	return s == StatePaid || s == StateCanceled
}

// TicketType はチケット種別を表す
type TicketType string

const (
	TicketStandard       TicketType = "STANDARD"
	TicketChildDiscount  TicketType = "CHILD_DISCOUNT"
	TicketSeniorDiscount TicketType = "SENIOR_DISCOUNT"
)

// Valid はチケット種別が既知の値かを返す
func (t TicketType) Valid() bool {
	switch t {
	case TicketStandard, TicketChildDiscount, TicketSeniorDiscount:
		return true
	}
	return false
}

// MaxSeatsPerReservation は1予約あたりの座席数上限
const MaxSeatsPerReservation = 20

// SeatSelection は予約リクエスト内の座席1件の選択内容
type SeatSelection struct {
	SeatID     int64
	TicketType TicketType
}

// ReservedSeat は座席1席と予約を結びつけるクレーム行。
// Released は予約のキャンセルと同一トランザクションで立てられるフラグで、
// 空席判定はこのフラグが立っていない行だけを数える（行自体は監査用に残る）。
type ReservedSeat struct {
	ID            int64
	ReservationID int64
	ScreeningID   int64
	SeatID        int64
	TicketType    TicketType
	Released      bool
}

// Reservation は予約エンティティを表す
type Reservation struct {
	ID          int64
	ScreeningID int64
	CustomerID  int64
	State       State
	Seats       []ReservedSeat
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewReservation は座席選択を検証して新しい予約を作成する。
// 永続化前の状態は RESERVED（FREE はゼロ値としてのみ存在する）。
func NewReservation(screeningID, customerID int64, selections []SeatSelection) (*Reservation, error) {
	if err := ValidateSelections(selections); err != nil {
		return nil, err
	}
	now := time.Now()
	r := &Reservation{
		ScreeningID: screeningID,
		CustomerID:  customerID,
		State:       StateReserved,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	r.Seats = make([]ReservedSeat, len(selections))
	for i, sel := range selections {
		r.Seats[i] = ReservedSeat{
			ScreeningID: screeningID,
			SeatID:      sel.SeatID,
			TicketType:  sel.TicketType,
		}
	}
	return r, nil
}

// ValidateSelections は座席選択の件数・重複・チケット種別を検証する
func ValidateSelections(selections []SeatSelection) error {
	if len(selections) == 0 {
		return ErrNoSeatsSelected
	}
	if len(selections) > MaxSeatsPerReservation {
		return ErrTooManySeats
	}
	seen := make(map[int64]struct{}, len(selections))
	for _, sel := range selections {
		if _, dup := seen[sel.SeatID]; dup {
			return ErrDuplicateSeat
		}
		seen[sel.SeatID] = struct{}{}
		if !sel.TicketType.Valid() {
			return ErrInvalidTicketType
		}
	}
	return nil
}

// IsExpired は createdAt からの経過時間がタイムアウトを超えているかを返す。
// 境界値（ちょうどタイムアウト）は期限内として扱う。
func (r *Reservation) IsExpired(timeout time.Duration, now time.Time) bool {
	return now.Sub(r.CreatedAt) > timeout
}

// ConfirmPayment は RESERVED → PAID の遷移を行う。
// 既に PAID の場合は冪等な成功（no-op）、CANCELED は不正遷移、
// タイムアウト超過は Expired として区別する。
func (r *Reservation) ConfirmPayment(timeout time.Duration, now time.Time) error {
	switch r.State {
	case StatePaid:
		return nil
	case StateCanceled:
		return ErrReservationCanceled
	}
	if r.IsExpired(timeout, now) {
		return ErrReservationExpired
	}
	r.State = StatePaid
	r.UpdatedAt = now
	return nil
}

// Cancel は RESERVED → CANCELED の遷移を行う。
// 既に CANCELED の場合は冪等な成功（no-op）。PAID はこの経路では取り消せない。
func (r *Reservation) Cancel(now time.Time) error {
	switch r.State {
	case StateCanceled:
		return nil
	case StatePaid:
		return ErrPaidNotCancelable
	}
	r.State = StateCanceled
	r.UpdatedAt = now
	return nil
}

// SeatIDs は予約に含まれる座席IDの一覧を返す
func (r *Reservation) SeatIDs() []int64 {
	ids := make([]int64, len(r.Seats))
	for i, s := range r.Seats {
		ids[i] = s.SeatID
	}
	return ids
}
