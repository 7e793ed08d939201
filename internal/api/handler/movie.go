package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
)

type MovieHandler struct {
	movieService MovieServiceInterface
}

func NewMovieHandler(movieService MovieServiceInterface) *MovieHandler {
	return &MovieHandler{movieService: movieService}
}

type MovieResponse struct {
	ID              int64  `json:"id" example:"1"`
	Title           string `json:"title" example:"ゴジラ-1.0"`
	DurationMinutes int    `json:"duration_minutes" example:"125"`
}

func toMovieResponse(m *catalog.Movie) *MovieResponse {
	return &MovieResponse{
		ID:              m.ID,
		Title:           m.Title,
		DurationMinutes: m.DurationMinutes,
	}
}

// List godoc
// @Summary 作品一覧を取得
// @Description 上映中の作品一覧を取得します
// @Tags movies
// @Produce json
// @Success 200 {array} MovieResponse
// @Router /movies [get]
func (h *MovieHandler) List(c echo.Context) error {
	movies, err := h.movieService.ListMovies(c.Request().Context())
	if err != nil {
		return err
	}
	responses := make([]*MovieResponse, len(movies))
	for i, m := range movies {
		responses[i] = toMovieResponse(m)
	}
	return c.JSON(http.StatusOK, responses)
}

// GetByID godoc
// @Summary 作品を取得
// @Description 指定IDの作品を取得します
// @Tags movies
// @Produce json
// @Param id path int true "作品ID"
// @Success 200 {object} MovieResponse
// @Failure 404 {object} map[string]string
// @Router /movies/{id} [get]
func (h *MovieHandler) GetByID(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効な作品IDです")
	}
	m, err := h.movieService.GetMovie(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toMovieResponse(m))
}
