package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
)

type ScreeningHandler struct {
	screeningService   ScreeningServiceInterface
	reservationService ReservationServiceInterface
}

func NewScreeningHandler(ss ScreeningServiceInterface, rs ReservationServiceInterface) *ScreeningHandler {
	return &ScreeningHandler{screeningService: ss, reservationService: rs}
}

type ScreeningResponse struct {
	ID        int64  `json:"id" example:"3"`
	MovieID   int64  `json:"movie_id" example:"1"`
	HallID    int64  `json:"hall_id" example:"2"`
	StartTime string `json:"start_time" example:"2025-12-31T18:00:00+09:00"`
}

type ScreeningDetailsResponse struct {
	ScreeningResponse
	MovieTitle     string `json:"movie_title" example:"ゴジラ-1.0"`
	HallName       string `json:"hall_name" example:"シアター2"`
	AvailableSeats int    `json:"available_seats" example:"118"`
	TotalSeats     int    `json:"total_seats" example:"120"`
}

type SeatResponse struct {
	ID     int64  `json:"id" example:"42"`
	Row    string `json:"row" example:"C"`
	Number int    `json:"number" example:"7"`
}

type SeatAvailabilityResponse struct {
	SeatResponse
	Available bool `json:"available" example:"true"`
}

func toScreeningResponse(s *catalog.Screening) ScreeningResponse {
	return ScreeningResponse{
		ID:        s.ID,
		MovieID:   s.MovieID,
		HallID:    s.HallID,
		StartTime: s.StartTime.Format(time.RFC3339),
	}
}

func toSeatResponse(s *catalog.Seat) SeatResponse {
	return SeatResponse{ID: s.ID, Row: s.Row, Number: s.Number}
}

func parseScreeningID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "無効な上映IDです")
	}
	return id, nil
}

// List godoc
// @Summary 上映一覧を取得
// @Description 上映スケジュールの一覧を取得します。movie_id で作品を絞り込めます。
// @Tags screenings
// @Produce json
// @Param movie_id query int false "作品ID"
// @Success 200 {array} ScreeningResponse
// @Router /screenings [get]
func (h *ScreeningHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		screenings []*catalog.Screening
		err        error
	)
	if raw := c.QueryParam("movie_id"); raw != "" {
		movieID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "無効な作品IDです")
		}
		screenings, err = h.screeningService.ListScreeningsByMovie(ctx, movieID)
	} else {
		screenings, err = h.screeningService.ListScreenings(ctx)
	}
	if err != nil {
		return err
	}

	responses := make([]ScreeningResponse, len(screenings))
	for i, s := range screenings {
		responses[i] = toScreeningResponse(s)
	}
	return c.JSON(http.StatusOK, responses)
}

// GetByID godoc
// @Summary 上映の詳細を取得
// @Description 作品名・ホール名・空席数つきの上映詳細を取得します
// @Tags screenings
// @Produce json
// @Param id path int true "上映ID"
// @Success 200 {object} ScreeningDetailsResponse
// @Failure 404 {object} map[string]string
// @Router /screenings/{id} [get]
func (h *ScreeningHandler) GetByID(c echo.Context) error {
	id, err := parseScreeningID(c)
	if err != nil {
		return err
	}
	d, err := h.screeningService.GetScreeningDetails(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ScreeningDetailsResponse{
		ScreeningResponse: toScreeningResponse(d.Screening),
		MovieTitle:        d.Movie.Title,
		HallName:          d.Hall.Name,
		AvailableSeats:    d.AvailableSeats,
		TotalSeats:        d.TotalSeats,
	})
}

// GetSeats godoc
// @Summary 上映の座席マップを取得
// @Description 上映の全座席と空席状況を取得します
// @Tags screenings
// @Produce json
// @Param id path int true "上映ID"
// @Success 200 {array} SeatAvailabilityResponse
// @Failure 404 {object} map[string]string
// @Router /screenings/{id}/seats [get]
func (h *ScreeningHandler) GetSeats(c echo.Context) error {
	id, err := parseScreeningID(c)
	if err != nil {
		return err
	}
	seats, err := h.screeningService.GetSeatAvailability(c.Request().Context(), id)
	if err != nil {
		return err
	}
	responses := make([]SeatAvailabilityResponse, len(seats))
	for i, s := range seats {
		responses[i] = SeatAvailabilityResponse{
			SeatResponse: toSeatResponse(s.Seat),
			Available:    s.Available,
		}
	}
	return c.JSON(http.StatusOK, responses)
}

// GetAvailableSeats godoc
// @Summary 空席一覧を取得
// @Description 上映の空席だけを一覧で取得します
// @Tags screenings
// @Produce json
// @Param id path int true "上映ID"
// @Success 200 {array} SeatResponse
// @Failure 404 {object} map[string]string
// @Router /screenings/{id}/seats/available [get]
func (h *ScreeningHandler) GetAvailableSeats(c echo.Context) error {
	id, err := parseScreeningID(c)
	if err != nil {
		return err
	}
	seats, err := h.reservationService.AvailableSeats(c.Request().Context(), id)
	if err != nil {
		return err
	}
	responses := make([]SeatResponse, len(seats))
	for i, s := range seats {
		responses[i] = toSeatResponse(s)
	}
	return c.JSON(http.StatusOK, responses)
}

// GetAvailableSeatCount godoc
// @Summary 空席数を取得
// @Description 上映の空席数を取得します（キャッシュ利用）
// @Tags screenings
// @Produce json
// @Param id path int true "上映ID"
// @Success 200 {object} map[string]int
// @Failure 404 {object} map[string]string
// @Router /screenings/{id}/seats/count [get]
func (h *ScreeningHandler) GetAvailableSeatCount(c echo.Context) error {
	id, err := parseScreeningID(c)
	if err != nil {
		return err
	}
	count, err := h.reservationService.CountAvailableSeats(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"available_seats": count})
}
