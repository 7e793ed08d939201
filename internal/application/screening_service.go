package application

import (
	"context"
	"fmt"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
)

// ScreeningService は上映と座席状況の読み取り専用サービス
type ScreeningService struct {
	screenings catalog.ScreeningRepository
	movies     catalog.MovieRepository
	halls      catalog.HallRepository
	seats      catalog.SeatRepository
	ledger     reservation.Ledger
}

func NewScreeningService(
	scr catalog.ScreeningRepository,
	mr catalog.MovieRepository,
	hr catalog.HallRepository,
	sr catalog.SeatRepository,
	ledger reservation.Ledger,
) *ScreeningService {
	return &ScreeningService{screenings: scr, movies: mr, halls: hr, seats: sr, ledger: ledger}
}

// ScreeningDetails は上映の詳細（作品・ホール・空席数）
type ScreeningDetails struct {
	Screening      *catalog.Screening
	Movie          *catalog.Movie
	Hall           *catalog.Hall
	AvailableSeats int
	TotalSeats     int
}

// SeatAvailability は座席1席の空席状況
type SeatAvailability struct {
	Seat      *catalog.Seat
	Available bool
}

// ListScreenings は全上映の一覧を取得する
func (s *ScreeningService) ListScreenings(ctx context.Context) ([]*catalog.Screening, error) {
	return s.screenings.List(ctx)
}

// ListScreeningsByMovie は作品の上映一覧を取得する
func (s *ScreeningService) ListScreeningsByMovie(ctx context.Context, movieID int64) ([]*catalog.Screening, error) {
	if _, err := s.movies.GetByID(ctx, movieID); err != nil {
		return nil, err
	}
	return s.screenings.ListByMovieID(ctx, movieID)
}

// GetScreeningDetails は上映の詳細情報（空席数込み）を取得する
func (s *ScreeningService) GetScreeningDetails(ctx context.Context, screeningID int64) (*ScreeningDetails, error) {
	screening, err := s.screenings.GetByID(ctx, screeningID)
	if err != nil {
		return nil, err
	}
	movie, err := s.movies.GetByID(ctx, screening.MovieID)
	if err != nil {
		return nil, err
	}
	hall, err := s.halls.GetByID(ctx, screening.HallID)
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

	return &ScreeningDetails{
		Screening:      screening,
		Movie:          movie,
		Hall:           hall,
		AvailableSeats: len(allSeats) - len(claimed),
		TotalSeats:     len(allSeats),
	}, nil
}

// GetSeatAvailability は上映のホール全座席を空席フラグ付きで返す。
// 全座席とクレーム済み座席をそれぞれ一括取得して突き合わせる。
func (s *ScreeningService) GetSeatAvailability(ctx context.Context, screeningID int64) ([]SeatAvailability, error) {
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

	result := make([]SeatAvailability, len(allSeats))
	for i, seat := range allSeats {
		_, taken := claimedSet[seat.ID]
		result[i] = SeatAvailability{Seat: seat, Available: !taken}
	}
	return result, nil
}
