package handler

import (
	"context"
	"time"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/application"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
)

// MovieServiceInterface は映画サービスのインターフェース
type MovieServiceInterface interface {
	ListMovies(ctx context.Context) ([]*catalog.Movie, error)
	GetMovie(ctx context.Context, id int64) (*catalog.Movie, error)
}

// ScreeningServiceInterface は上映サービスのインターフェース
type ScreeningServiceInterface interface {
	ListScreenings(ctx context.Context) ([]*catalog.Screening, error)
	ListScreeningsByMovie(ctx context.Context, movieID int64) ([]*catalog.Screening, error)
	GetScreeningDetails(ctx context.Context, screeningID int64) (*application.ScreeningDetails, error)
	GetSeatAvailability(ctx context.Context, screeningID int64) ([]application.SeatAvailability, error)
}

// ReservationServiceInterface は予約サービスのインターフェース
type ReservationServiceInterface interface {
	CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*reservation.Reservation, error)
	GetCustomerReservations(ctx context.Context, customerID int64) ([]*reservation.Reservation, error)
	ConfirmPayment(ctx context.Context, id int64) (*reservation.Reservation, error)
	CancelReservation(ctx context.Context, id int64) (*reservation.Reservation, error)
	AvailableSeats(ctx context.Context, screeningID int64) ([]*catalog.Seat, error)
	CountAvailableSeats(ctx context.Context, screeningID int64) (int, error)
	ExpireDue(ctx context.Context, now time.Time) (int, error)
}
