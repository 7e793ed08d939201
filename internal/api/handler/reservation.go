package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/application"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/metrics"
)

type ReservationHandler struct {
	service ReservationServiceInterface
}

func NewReservationHandler(s ReservationServiceInterface) *ReservationHandler {
	return &ReservationHandler{service: s}
}

type SeatSelectionRequest struct {
	SeatID     int64  `json:"seat_id" validate:"required" example:"42"`
	TicketType string `json:"ticket_type" validate:"required" example:"STANDARD"`
}

type CreateReservationRequest struct {
	CustomerID  int64                  `json:"customer_id" validate:"required" example:"1"`
	ScreeningID int64                  `json:"screening_id" validate:"required" example:"3"`
	Seats       []SeatSelectionRequest `json:"seats" validate:"required,min=1,dive"`
}

type ReservedSeatResponse struct {
	SeatID     int64  `json:"seat_id" example:"42"`
	TicketType string `json:"ticket_type" example:"STANDARD"`
}

type ReservationResponse struct {
	ID          int64                  `json:"id" example:"10"`
	ScreeningID int64                  `json:"screening_id" example:"3"`
	CustomerID  int64                  `json:"customer_id" example:"1"`
	State       string                 `json:"state" example:"RESERVED"`
	Seats       []ReservedSeatResponse `json:"seats"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func toReservationResponse(r *reservation.Reservation) ReservationResponse {
	seats := make([]ReservedSeatResponse, len(r.Seats))
	for i, s := range r.Seats {
		seats[i] = ReservedSeatResponse{SeatID: s.SeatID, TicketType: string(s.TicketType)}
	}
	return ReservationResponse{
		ID: r.ID, ScreeningID: r.ScreeningID, CustomerID: r.CustomerID,
		State: string(r.State), Seats: seats,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "無効な予約IDです")
	}
	return id, nil
}

// Create godoc
// @Summary 予約を作成
// @Description 選択した座席を仮押さえします（有効期限内に支払いが必要）
// @Tags reservations
// @Accept json
// @Produce json
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "座席が既に予約済み"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	selections := make([]reservation.SeatSelection, len(req.Seats))
	for i, s := range req.Seats {
		selections[i] = reservation.SeatSelection{
			SeatID:     s.SeatID,
			TicketType: reservation.TicketType(s.TicketType),
		}
	}
	r, err := h.service.CreateReservation(c.Request().Context(), application.CreateReservationInput{
		CustomerID:  req.CustomerID,
		ScreeningID: req.ScreeningID,
		Seats:       selections,
	})
	if err != nil {
		if errors.Is(err, reservation.ErrSeatTaken) {
			metrics.Get().ReservationsTotal.WithLabelValues("conflict").Inc()
		} else {
			metrics.Get().ReservationsTotal.WithLabelValues("rejected").Inc()
		}
		return err
	}
	metrics.Get().ReservationsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, toReservationResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 指定IDの予約を座席明細つきで取得します
// @Tags reservations
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} map[string]string
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.service.GetReservation(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// GetCustomerReservations godoc
// @Summary 顧客の予約一覧を取得
// @Description 指定顧客の予約一覧を取得します
// @Tags reservations
// @Produce json
// @Param customer_id path int true "顧客ID"
// @Success 200 {array} ReservationResponse
// @Failure 404 {object} map[string]string
// @Router /customers/{customer_id}/reservations [get]
func (h *ReservationHandler) GetCustomerReservations(c echo.Context) error {
	customerID, err := strconv.ParseInt(c.Param("customer_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効な顧客IDです")
	}
	reservations, err := h.service.GetCustomerReservations(c.Request().Context(), customerID)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = toReservationResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Pay godoc
// @Summary 予約の支払いを確定
// @Description 仮押さえ中の予約を支払い済みにします。支払い済みの予約には何もしません。
// @Tags reservations
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "キャンセル済み"
// @Failure 410 {object} map[string]string "有効期限切れ"
// @Router /reservations/{id}/payment [post]
func (h *ReservationHandler) Pay(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.service.ConfirmPayment(c.Request().Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrReservationExpired):
			metrics.Get().PaymentsTotal.WithLabelValues("expired").Inc()
		case errors.Is(err, reservation.ErrReservationCanceled):
			metrics.Get().PaymentsTotal.WithLabelValues("canceled").Inc()
		default:
			metrics.Get().PaymentsTotal.WithLabelValues("failed").Inc()
		}
		return err
	}
	metrics.Get().PaymentsTotal.WithLabelValues("paid").Inc()
	for _, s := range r.Seats {
		metrics.Get().TicketsIssuedTotal.WithLabelValues(string(s.TicketType)).Inc()
	}
	return c.JSON(http.StatusOK, toReservationResponse(r))
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 予約をキャンセルし、座席を解放します。キャンセル済みの予約には何もしません。
// @Tags reservations
// @Produce json
// @Param id path int true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string "支払い済みのためキャンセル不可"
// @Router /reservations/{id}/cancel [post]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	r, err := h.service.CancelReservation(c.Request().Context(), id)
	if err != nil {
		return err
	}
	metrics.Get().CancellationsTotal.WithLabelValues("customer").Inc()
	return c.JSON(http.StatusOK, toReservationResponse(r))
}
