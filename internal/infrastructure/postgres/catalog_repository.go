package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
)

// カタログ系リポジトリ。読み取り専用で、データはマイグレーション／シードで投入される。

type movieRow struct {
	ID              int64  `db:"id"`
	Title           string `db:"title"`
	DurationMinutes int    `db:"duration_minutes"`
}

type hallRow struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
}

type seatRow struct {
	ID     int64  `db:"id"`
	HallID int64  `db:"hall_id"`
	Row    string `db:"seat_row"`
	Number int    `db:"seat_number"`
}

type screeningRow struct {
	ID        int64     `db:"id"`
	MovieID   int64     `db:"movie_id"`
	HallID    int64     `db:"hall_id"`
	StartTime time.Time `db:"start_time"`
}

type customerRow struct {
	ID    int64  `db:"id"`
	Email string `db:"email"`
	Name  string `db:"name"`
}

// MovieRepository は作品カタログのPostgreSQL実装
type MovieRepository struct{ db *sqlx.DB }

func NewMovieRepository(db *sqlx.DB) *MovieRepository { return &MovieRepository{db: db} }

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (*catalog.Movie, error) {
	var row movieRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, title, duration_minutes FROM movie WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrMovieNotFound
		}
		return nil, fmt.Errorf("作品取得に失敗: %w", err)
	}
	return &catalog.Movie{ID: row.ID, Title: row.Title, DurationMinutes: row.DurationMinutes}, nil
}

func (r *MovieRepository) List(ctx context.Context) ([]*catalog.Movie, error) {
	var rows []movieRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, title, duration_minutes FROM movie ORDER BY id`); err != nil {
		return nil, fmt.Errorf("作品一覧取得に失敗: %w", err)
	}
	movies := make([]*catalog.Movie, len(rows))
	for i, row := range rows {
		movies[i] = &catalog.Movie{ID: row.ID, Title: row.Title, DurationMinutes: row.DurationMinutes}
	}
	return movies, nil
}

// HallRepository はホールのPostgreSQL実装
type HallRepository struct{ db *sqlx.DB }

func NewHallRepository(db *sqlx.DB) *HallRepository { return &HallRepository{db: db} }

func (r *HallRepository) GetByID(ctx context.Context, id int64) (*catalog.Hall, error) {
	var row hallRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, name FROM hall WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrHallNotFound
		}
		return nil, fmt.Errorf("ホール取得に失敗: %w", err)
	}
	return &catalog.Hall{ID: row.ID, Name: row.Name}, nil
}

// SeatRepository は座席のPostgreSQL実装
type SeatRepository struct{ db *sqlx.DB }

func NewSeatRepository(db *sqlx.DB) *SeatRepository { return &SeatRepository{db: db} }

func (r *SeatRepository) GetByID(ctx context.Context, id int64) (*catalog.Seat, error) {
	var row seatRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, hall_id, seat_row, seat_number FROM seat WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrSeatNotFound
		}
		return nil, fmt.Errorf("座席取得に失敗: %w", err)
	}
	return &catalog.Seat{ID: row.ID, HallID: row.HallID, Row: row.Row, Number: row.Number}, nil
}

func (r *SeatRepository) ListByHallID(ctx context.Context, hallID int64) ([]*catalog.Seat, error) {
	var rows []seatRow
	query := `SELECT id, hall_id, seat_row, seat_number FROM seat WHERE hall_id = $1 ORDER BY seat_row, seat_number`
	if err := r.db.SelectContext(ctx, &rows, query, hallID); err != nil {
		return nil, fmt.Errorf("座席一覧取得に失敗: %w", err)
	}
	seats := make([]*catalog.Seat, len(rows))
	for i, row := range rows {
		seats[i] = &catalog.Seat{ID: row.ID, HallID: row.HallID, Row: row.Row, Number: row.Number}
	}
	return seats, nil
}

// ScreeningRepository は上映のPostgreSQL実装
type ScreeningRepository struct{ db *sqlx.DB }

func NewScreeningRepository(db *sqlx.DB) *ScreeningRepository { return &ScreeningRepository{db: db} }

func (r *ScreeningRepository) GetByID(ctx context.Context, id int64) (*catalog.Screening, error) {
	var row screeningRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, movie_id, hall_id, start_time FROM screening WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrScreeningNotFound
		}
		return nil, fmt.Errorf("上映取得に失敗: %w", err)
	}
	return &catalog.Screening{ID: row.ID, MovieID: row.MovieID, HallID: row.HallID, StartTime: row.StartTime}, nil
}

func (r *ScreeningRepository) List(ctx context.Context) ([]*catalog.Screening, error) {
	var rows []screeningRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, movie_id, hall_id, start_time FROM screening ORDER BY start_time`); err != nil {
		return nil, fmt.Errorf("上映一覧取得に失敗: %w", err)
	}
	return toScreenings(rows), nil
}

func (r *ScreeningRepository) ListByMovieID(ctx context.Context, movieID int64) ([]*catalog.Screening, error) {
	var rows []screeningRow
	query := `SELECT id, movie_id, hall_id, start_time FROM screening WHERE movie_id = $1 ORDER BY start_time`
	if err := r.db.SelectContext(ctx, &rows, query, movieID); err != nil {
		return nil, fmt.Errorf("上映一覧取得に失敗: %w", err)
	}
	return toScreenings(rows), nil
}

func toScreenings(rows []screeningRow) []*catalog.Screening {
	screenings := make([]*catalog.Screening, len(rows))
	for i, row := range rows {
		screenings[i] = &catalog.Screening{ID: row.ID, MovieID: row.MovieID, HallID: row.HallID, StartTime: row.StartTime}
	}
	return screenings
}

// CustomerRepository は顧客のPostgreSQL実装
type CustomerRepository struct{ db *sqlx.DB }

func NewCustomerRepository(db *sqlx.DB) *CustomerRepository { return &CustomerRepository{db: db} }

func (r *CustomerRepository) GetByID(ctx context.Context, id int64) (*catalog.Customer, error) {
	var row customerRow
	if err := r.db.GetContext(ctx, &row, `SELECT id, email, name FROM customer WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("顧客取得に失敗: %w", err)
	}
	return &catalog.Customer{ID: row.ID, Email: row.Email, Name: row.Name}, nil
}

var (
	_ catalog.MovieRepository     = (*MovieRepository)(nil)
	_ catalog.HallRepository      = (*HallRepository)(nil)
	_ catalog.SeatRepository      = (*SeatRepository)(nil)
	_ catalog.ScreeningRepository = (*ScreeningRepository)(nil)
	_ catalog.CustomerRepository  = (*CustomerRepository)(nil)
)
