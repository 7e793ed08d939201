package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// CustomHTTPErrorHandler はドメインエラーをHTTPステータスに変換するエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, message := classify(err)

	// エラーログを出力（5xx エラーの場合）
	if code >= 500 {
		logger.Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if err := c.JSON(code, ErrorResponse{
		Error: message,
		Code:  code,
	}); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

// classify はエラーをHTTPステータスとメッセージに分類する
func classify(err error) (int, string) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, ok := he.Message.(string); ok {
			return he.Code, m
		}
		return he.Code, http.StatusText(he.Code)
	}

	switch {
	// 参照先が存在しない
	case errors.Is(err, catalog.ErrMovieNotFound),
		errors.Is(err, catalog.ErrHallNotFound),
		errors.Is(err, catalog.ErrSeatNotFound),
		errors.Is(err, catalog.ErrScreeningNotFound),
		errors.Is(err, catalog.ErrCustomerNotFound),
		errors.Is(err, reservation.ErrReservationNotFound):
		return http.StatusNotFound, err.Error()

	// 座席競合（呼び出し側は別の座席で再試行できる）
	case errors.Is(err, reservation.ErrSeatTaken):
		return http.StatusConflict, err.Error()

	// 不正な状態遷移
	case errors.Is(err, reservation.ErrPaidNotCancelable),
		errors.Is(err, reservation.ErrReservationCanceled):
		return http.StatusConflict, err.Error()

	// タイムアウト超過の支払い（状態違反とは区別して返す）
	case errors.Is(err, reservation.ErrReservationExpired):
		return http.StatusGone, err.Error()

	// 入力検証エラー
	case errors.Is(err, reservation.ErrNoSeatsSelected),
		errors.Is(err, reservation.ErrTooManySeats),
		errors.Is(err, reservation.ErrDuplicateSeat),
		errors.Is(err, reservation.ErrInvalidTicketType):
		return http.StatusBadRequest, err.Error()
	}

	return http.StatusInternalServerError, "内部サーバーエラー"
}
