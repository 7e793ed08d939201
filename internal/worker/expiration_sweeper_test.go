package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockReservationExpirer はReservationExpirerのモック
type MockReservationExpirer struct {
	mock.Mock
}

func (m *MockReservationExpirer) ExpireDue(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

func TestNewExpirationSweeper(t *testing.T) {
	mockService := new(MockReservationExpirer)
	interval := 1 * time.Minute

	sweeper := NewExpirationSweeper(mockService, interval)

	assert.NotNil(t, sweeper)
	assert.Equal(t, interval, sweeper.interval)
	assert.NotNil(t, sweeper.stopCh)
	assert.NotNil(t, sweeper.doneCh)
}

func TestExpirationSweeper_StopChannels(t *testing.T) {
	mockService := new(MockReservationExpirer)
	sweeper := NewExpirationSweeper(mockService, 1*time.Second)

	// チャンネルが初期化されていることを確認
	assert.NotNil(t, sweeper.stopCh)
	assert.NotNil(t, sweeper.doneCh)

	// チャンネルがブロッキングされていないことを確認（送信可能）
	select {
	case <-sweeper.stopCh:
		t.Fatal("stopCh should not be closed initially")
	default:
		// 期待通り
	}
}

func TestExpirationSweeper_Sweep(t *testing.T) {
	t.Run("正常にスイープが実行される", func(t *testing.T) {
		mockService := new(MockReservationExpirer)
		mockService.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(5, nil)

		sweeper := &ExpirationSweeper{
			reservationService: mockService,
			interval:           1 * time.Minute,
			stopCh:             make(chan struct{}),
			doneCh:             make(chan struct{}),
		}

		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})

	t.Run("キャンセル対象がない場合も正常に動作する", func(t *testing.T) {
		mockService := new(MockReservationExpirer)
		mockService.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(0, nil)

		sweeper := &ExpirationSweeper{
			reservationService: mockService,
			interval:           1 * time.Minute,
			stopCh:             make(chan struct{}),
			doneCh:             make(chan struct{}),
		}

		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})

	t.Run("エラーが発生しても継続する", func(t *testing.T) {
		mockService := new(MockReservationExpirer)
		mockService.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(0, assert.AnError)

		sweeper := &ExpirationSweeper{
			reservationService: mockService,
			interval:           1 * time.Minute,
			stopCh:             make(chan struct{}),
			doneCh:             make(chan struct{}),
		}

		// パニックしないことを確認
		sweeper.sweep(context.Background())

		mockService.AssertExpectations(t)
	})
}

func TestExpirationSweeper_StartStop(t *testing.T) {
	t.Run("開始と停止が正常に動作する", func(t *testing.T) {
		mockService := new(MockReservationExpirer)
		// sweep が呼ばれる可能性があるので、任意回数マッチさせる
		mockService.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(0, nil).Maybe()

		sweeper := NewExpirationSweeper(mockService, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// バックグラウンドで開始
		go sweeper.Start(ctx)

		// 少し待機
		time.Sleep(120 * time.Millisecond)

		// 停止
		sweeper.Stop()

		// Stop後はdoneChがcloseされている
		select {
		case <-sweeper.doneCh:
			// 正常に終了
		case <-time.After(1 * time.Second):
			t.Error("sweeper did not stop in time")
		}
	})

	t.Run("コンテキストキャンセルで停止する", func(t *testing.T) {
		mockService := new(MockReservationExpirer)
		mockService.On("ExpireDue", mock.Anything, mock.AnythingOfType("time.Time")).Return(0, nil).Maybe()

		sweeper := NewExpirationSweeper(mockService, 50*time.Millisecond)

		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			sweeper.Start(ctx)
			close(done)
		}()

		// 少し待機してからコンテキストをキャンセル
		time.Sleep(80 * time.Millisecond)
		cancel()

		// 終了を待機
		select {
		case <-done:
			// 正常に終了
		case <-time.After(1 * time.Second):
			t.Error("sweeper did not stop after context cancel")
		}
	})
}
