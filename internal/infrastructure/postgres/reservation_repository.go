package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/transaction"
)

// pgUniqueViolation は PostgreSQL の一意制約違反コード
const pgUniqueViolation = "23505"

type reservationRow struct {
	ID          int64     `db:"id"`
	ScreeningID int64     `db:"screening_id"`
	CustomerID  int64     `db:"customer_id"`
	State       string    `db:"state"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type reservedSeatRow struct {
	ID            int64  `db:"id"`
	ReservationID int64  `db:"reservation_id"`
	ScreeningID   int64  `db:"screening_id"`
	SeatID        int64  `db:"seat_id"`
	TicketType    string `db:"ticket_type"`
	Released      bool   `db:"released"`
}

func (row *reservationRow) toEntity(seats []reservation.ReservedSeat) *reservation.Reservation {
	return &reservation.Reservation{
		ID:          row.ID,
		ScreeningID: row.ScreeningID,
		CustomerID:  row.CustomerID,
		State:       reservation.State(row.State),
		Seats:       seats,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

// ReservationRepository は予約ストアのPostgreSQL実装
type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Create は予約本体と全クレーム行を同一トランザクション内で挿入する。
// クレーム行には reserved_seat(screening_id, seat_id) WHERE NOT released の
// 部分一意インデックスが張られており、挿入失敗（23505）が座席競合の確定判定。
// 座席ごとに順番に挿入するため、最初に競合した座席を特定できる。
func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("トランザクションが不正です")
	}

	query := `INSERT INTO reservation (screening_id, customer_id, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := sqlxTx.QueryRowContext(ctx, query,
		res.ScreeningID, res.CustomerID, string(res.State), res.CreatedAt, res.UpdatedAt,
	).Scan(&res.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}

	claimQuery := `INSERT INTO reserved_seat (reservation_id, screening_id, seat_id, ticket_type)
		VALUES ($1, $2, $3, $4) RETURNING id`
	for i := range res.Seats {
		seat := &res.Seats[i]
		seat.ReservationID = res.ID
		if err := sqlxTx.QueryRowContext(ctx, claimQuery,
			res.ID, seat.ScreeningID, seat.SeatID, string(seat.TicketType),
		).Scan(&seat.ID); err != nil {
			var pgErr *pq.Error
			if errors.As(err, &pgErr) && string(pgErr.Code) == pgUniqueViolation {
				return &reservation.SeatTakenError{SeatID: seat.SeatID}
			}
			return fmt.Errorf("座席クレームに失敗: %w", err)
		}
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*reservation.Reservation, error) {
	var row reservationRow
	query := `SELECT id, screening_id, customer_id, state, created_at, updated_at FROM reservation WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	seats, err := r.getSeats(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toEntity(seats), nil
}

func (r *ReservationRepository) GetByCustomerID(ctx context.Context, customerID int64) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT id, screening_id, customer_id, state, created_at, updated_at
		FROM reservation WHERE customer_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, customerID); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		seats, err := r.getSeats(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		result[i] = row.toEntity(seats)
	}
	return result, nil
}

// UpdateStateIfReserved は state = 'RESERVED' の行だけを next へ更新する条件付き更新。
// 支払い確定とスイープが同じ予約行で競合しても、先にコミットした側が勝ち、
// 負けた側は false を観測する（後勝ち上書きは起きない）。
func (r *ReservationRepository) UpdateStateIfReserved(ctx context.Context, tx transaction.Tx, id int64, next reservation.State, now time.Time) (bool, error) {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return false, errors.New("トランザクションが不正です")
	}
	query := `UPDATE reservation SET state = $1, updated_at = $2 WHERE id = $3 AND state = $4`
	result, err := sqlxTx.ExecContext(ctx, query, string(next), now, id, string(reservation.StateReserved))
	if err != nil {
		return false, fmt.Errorf("予約状態の更新に失敗: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ReleaseSeats は予約のクレーム行に released フラグを立てる。
// 部分一意インデックスの対象から外れるため、座席は即座に再予約可能になる。
func (r *ReservationRepository) ReleaseSeats(ctx context.Context, tx transaction.Tx, reservationID int64) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return errors.New("トランザクションが不正です")
	}
	query := `UPDATE reserved_seat SET released = TRUE WHERE reservation_id = $1 AND NOT released`
	if _, err := sqlxTx.ExecContext(ctx, query, reservationID); err != nil {
		return fmt.Errorf("座席解放に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) FindExpired(ctx context.Context, cutoff time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT id, screening_id, customer_id, state, created_at, updated_at
		FROM reservation WHERE state = $1 AND created_at < $2`
	if err := r.db.SelectContext(ctx, &rows, query, string(reservation.StateReserved), cutoff); err != nil {
		return nil, fmt.Errorf("期限切れ予約の取得に失敗: %w", err)
	}
	result := make([]*reservation.Reservation, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity(nil)
	}
	return result, nil
}

func (r *ReservationRepository) getSeats(ctx context.Context, reservationID int64) ([]reservation.ReservedSeat, error) {
	var rows []reservedSeatRow
	query := `SELECT id, reservation_id, screening_id, seat_id, ticket_type, released
		FROM reserved_seat WHERE reservation_id = $1 ORDER BY id`
	if err := r.db.SelectContext(ctx, &rows, query, reservationID); err != nil {
		return nil, fmt.Errorf("クレーム行の取得に失敗: %w", err)
	}
	seats := make([]reservation.ReservedSeat, len(rows))
	for i, row := range rows {
		seats[i] = reservation.ReservedSeat{
			ID:            row.ID,
			ReservationID: row.ReservationID,
			ScreeningID:   row.ScreeningID,
			SeatID:        row.SeatID,
			TicketType:    reservation.TicketType(row.TicketType),
			Released:      row.Released,
		}
	}
	return seats, nil
}

var _ reservation.Repository = (*ReservationRepository)(nil)
