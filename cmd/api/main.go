package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/api"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/api/handler"
	custommw "github.com/rkociniewski/cinema-seat-reservation-system/internal/api/middleware"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/application"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/config"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/infrastructure/postgres"
	redisinfra "github.com/rkociniewski/cinema-seat-reservation-system/internal/infrastructure/redis"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/logger"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/pkg/metrics"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/worker"
)

func main() {
	// .env があれば読み込む（なければ環境変数のみ）
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Get()
	defer func() { _ = log.Sync() }()

	m := metrics.Init()

	// PostgreSQL 接続とマイグレーション
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := postgres.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
		log.Fatal("マイグレーションに失敗しました", zap.Error(err))
	}

	// Redis 接続（利用できない場合はロックとキャッシュなしで起動）
	rdb := redisinfra.NewClient(&cfg.Redis)
	var (
		lockManager *redisinfra.ScreeningLockManager
		availCache  *redisinfra.AvailabilityCache
	)
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redisに接続できません。分散ロックと空席数キャッシュを無効化します", zap.Error(err))
		_ = rdb.Close()
		rdb = nil
	} else {
		lockManager = redisinfra.NewScreeningLockManager(rdb)
		availCache = redisinfra.NewAvailabilityCache(rdb)
		defer func() { _ = rdb.Close() }()
	}
	pingCancel()

	// リポジトリ
	reservationRepo := postgres.NewReservationRepository(db)
	seatLedger := postgres.NewSeatLedger(db)
	movieRepo := postgres.NewMovieRepository(db)
	hallRepo := postgres.NewHallRepository(db)
	seatRepo := postgres.NewSeatRepository(db)
	screeningRepo := postgres.NewScreeningRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	txManager := postgres.NewTxManager(db)

	// アプリケーションサービス
	reservationService := application.NewReservationService(
		txManager,
		reservationRepo,
		seatLedger,
		screeningRepo,
		seatRepo,
		customerRepo,
		lockManager,
		availCache,
		cfg.Reservation.Timeout,
	)
	movieService := application.NewMovieService(movieRepo)
	screeningService := application.NewScreeningService(
		screeningRepo, movieRepo, hallRepo, seatRepo, seatLedger,
	)

	// ハンドラー
	reservationHandler := handler.NewReservationHandler(reservationService)
	movieHandler := handler.NewMovieHandler(movieService)
	screeningHandler := handler.NewScreeningHandler(screeningService, reservationService)
	healthHandler := handler.NewHealthHandler(db, rdb)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout

	custommw.SetupMiddleware(e)
	e.Use(custommw.PrometheusMiddleware(m))

	// ルーティング
	e.GET("/health", healthHandler.Check)
	e.GET("/health/ready", healthHandler.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), custommw.MetricsBasicAuth())

	v1 := e.Group("/api/v1")
	v1.GET("/movies", movieHandler.List)
	v1.GET("/movies/:id", movieHandler.GetByID)
	v1.GET("/screenings", screeningHandler.List)
	v1.GET("/screenings/:id", screeningHandler.GetByID)
	v1.GET("/screenings/:id/seats", screeningHandler.GetSeats)
	v1.GET("/screenings/:id/seats/available", screeningHandler.GetAvailableSeats)
	v1.GET("/screenings/:id/seats/count", screeningHandler.GetAvailableSeatCount)
	v1.POST("/reservations", reservationHandler.Create)
	v1.GET("/reservations/:id", reservationHandler.GetByID)
	v1.POST("/reservations/:id/payment", reservationHandler.Pay)
	v1.POST("/reservations/:id/cancel", reservationHandler.Cancel)
	v1.GET("/customers/:customer_id/reservations", reservationHandler.GetCustomerReservations)

	// 期限切れスイーパー起動
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	sweeper := worker.NewExpirationSweeper(reservationService, cfg.Reservation.SweepInterval)
	go sweeper.Start(sweeperCtx)

	// サーバー起動
	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()
	log.Info("サーバー起動",
		zap.String("port", cfg.Server.Port),
		zap.Duration("reservation_timeout", cfg.Reservation.Timeout),
		zap.Duration("sweep_interval", cfg.Reservation.SweepInterval),
	)

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("サーバーをシャットダウンしています...")

	// スイーパーを先に止めてからHTTPを閉じる
	sweeperCancel()
	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	log.Info("サーバーが正常にシャットダウンしました")
}
