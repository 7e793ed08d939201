package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/reservation"
)

// ベンチマーク用の大規模ホール。座席は1〜benchHallSeats。
const benchHallSeats = 2000

type benchSeats struct{}

func (benchSeats) GetByID(ctx context.Context, id int64) (*catalog.Seat, error) {
	return &catalog.Seat{ID: id, HallID: 2}, nil
}

func (benchSeats) ListByHallID(ctx context.Context, hallID int64) ([]*catalog.Seat, error) {
	seats := make([]*catalog.Seat, benchHallSeats)
	for i := range seats {
		seats[i] = &catalog.Seat{ID: int64(i + 1), HallID: hallID, Row: "A", Number: i + 1}
	}
	return seats, nil
}

func newBenchmarkService(store *memStore, timeout time.Duration) *ReservationService {
	return NewReservationService(
		memTxManager{}, store, store,
		memScreenings{}, benchSeats{}, memCustomers{},
		nil, nil, timeout,
	)
}

// TestBenchmark_LargeScaleClaims はクレームプロトコルのスループットを計測する。
// インメモリストアで並行予約と競合予約の処理速度を実証します
func TestBenchmark_LargeScaleClaims(t *testing.T) {
	if testing.Short() {
		t.Skip("大規模ベンチマークテストはshortモードではスキップ")
	}

	store := newMemStore()
	service := newBenchmarkService(store, 15*time.Minute)
	ctx := context.Background()

	// 1. 並行予約パフォーマンス（1000人が同時に異なる座席を予約）
	t.Log("=== 1000人同時予約のパフォーマンス計測 ===")
	const concurrentUsers = 1000
	var successCount int32
	var errorCount int32
	var wg sync.WaitGroup

	startReserve := time.Now()

	for i := 0; i < concurrentUsers; i++ {
		wg.Add(1)
		go func(userNum int) {
			defer wg.Done()

			// 各ユーザーは1席ずつ予約（異なる座席）
			_, err := service.CreateReservation(ctx, CreateReservationInput{
				CustomerID:  int64(userNum + 1),
				ScreeningID: 3,
				Seats: []reservation.SeatSelection{
					{SeatID: int64(userNum + 1), TicketType: reservation.TicketStandard},
				},
			})

			if err == nil {
				atomic.AddInt32(&successCount, 1)
			} else {
				atomic.AddInt32(&errorCount, 1)
			}
		}(i)
	}
	wg.Wait()

	reserveDuration := time.Since(startReserve)
	reserveRate := float64(successCount) / reserveDuration.Seconds()
	t.Logf("✅ 並行予約完了: %v", reserveDuration)
	t.Logf("   成功: %d, エラー: %d", successCount, errorCount)
	t.Logf("   予約処理速度: %.0f 予約/秒", reserveRate)

	require.Equal(t, int32(concurrentUsers), successCount, "異なる座席の予約は全て成功するべき")

	// 2. 同一座席への競合予約（100人が同じ座席を予約）
	t.Log("=== 100人同時競合予約のパフォーマンス計測 ===")
	const competingUsers = 100
	const targetSeatID = int64(1500)
	var competitionSuccess int32
	var competitionConflict int32

	startCompete := time.Now()

	var wg2 sync.WaitGroup
	for i := 0; i < competingUsers; i++ {
		wg2.Add(1)
		go func(userNum int) {
			defer wg2.Done()

			_, err := service.CreateReservation(ctx, CreateReservationInput{
				CustomerID:  int64(userNum + 5000),
				ScreeningID: 3,
				Seats: []reservation.SeatSelection{
					{SeatID: targetSeatID, TicketType: reservation.TicketStandard},
				},
			})

			if err == nil {
				atomic.AddInt32(&competitionSuccess, 1)
			} else {
				atomic.AddInt32(&competitionConflict, 1)
			}
		}(i)
	}
	wg2.Wait()

	competeDuration := time.Since(startCompete)
	t.Logf("✅ 競合予約完了: %v", competeDuration)
	t.Logf("   成功: %d, 競合: %d", competitionSuccess, competitionConflict)

	require.Equal(t, int32(1), competitionSuccess, "競合予約では1人だけ成功するべき")
	require.Equal(t, int32(competingUsers-1), competitionConflict, "残りは全て失敗するべき")

	// 3. 期限切れスイープのパフォーマンス
	t.Log("=== 全予約スイープのパフォーマンス計測 ===")
	startSweep := time.Now()

	swept, err := service.ExpireDue(ctx, time.Now().Add(16*time.Minute))
	require.NoError(t, err)
	require.Equal(t, concurrentUsers+1, swept)

	sweepDuration := time.Since(startSweep)
	sweepRate := float64(swept) / sweepDuration.Seconds()
	t.Logf("✅ スイープ完了: %v (%d件, %.0f 件/秒)", sweepDuration, swept, sweepRate)

	// 4. 最終結果サマリー
	t.Log("=================================================")
	t.Log("📊 ベンチマーク結果サマリー")
	t.Log("=================================================")
	t.Logf("並行予約 (%d人): %v (%.0f 予約/秒)", concurrentUsers, reserveDuration, reserveRate)
	t.Logf("競合予約 (%d人→1人成功): %v", competingUsers, competeDuration)
	t.Logf("期限切れスイープ (%d件): %v", swept, sweepDuration)
	t.Log("=================================================")
}

// BenchmarkReservationOperations は予約操作のベンチマークを計測
func BenchmarkReservationOperations(b *testing.B) {
	ctx := context.Background()

	b.Run("CreateReservation", func(b *testing.B) {
		store := newMemStore()
		service := newBenchmarkService(store, 15*time.Minute)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			service.CreateReservation(ctx, CreateReservationInput{
				CustomerID:  int64(i + 1),
				ScreeningID: 3,
				Seats: []reservation.SeatSelection{
					{SeatID: int64(i%benchHallSeats) + 1, TicketType: reservation.TicketStandard},
				},
			})
		}
	})

	b.Run("AvailableSeats", func(b *testing.B) {
		store := newMemStore()
		service := newBenchmarkService(store, 15*time.Minute)
		service.CreateReservation(ctx, CreateReservationInput{
			CustomerID:  1,
			ScreeningID: 3,
			Seats:       []reservation.SeatSelection{{SeatID: 1, TicketType: reservation.TicketStandard}},
		})
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			service.AvailableSeats(ctx, 3)
		}
	})
}
