package handler

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler はヘルスチェックハンドラー
type HealthHandler struct {
	db    *sqlx.DB
	redis *redis.Client // nil 可（Redis なし構成）
}

// NewHealthHandler はHealthHandlerを作成する
func NewHealthHandler(db *sqlx.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, redis: rdb}
}

// HealthResponse はヘルスチェックのレスポンス
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Check はヘルスチェックを行う
// @Summary ヘルスチェック
// @Description アプリケーションの健全性を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// Ready は依存サービスへの疎通を確認する
// @Summary レディネスチェック
// @Description PostgreSQL と Redis への疎通を確認する
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health/ready [get]
func (h *HealthHandler) Ready(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.db.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:    "database unavailable",
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{
				Status:    "redis unavailable",
				Timestamp: time.Now().Format(time.RFC3339),
			})
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
