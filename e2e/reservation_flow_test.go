package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestServer はE2Eテスト用のサーバー
type TestServer struct {
	Echo *echo.Echo
}

// Request はHTTPリクエストを実行
func (s *TestServer) Request(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

// screeningFixture はテストごとに独立した上映1件分のカタログデータ
type screeningFixture struct {
	MovieID     int64
	HallID      int64
	ScreeningID int64
	CustomerID  int64
	SeatIDs     []int64
}

// seedScreening は作品・ホール・座席・顧客・上映を1式作成する
func seedScreening(t *testing.T, seatCount int) *screeningFixture {
	t.Helper()

	f := &screeningFixture{}
	suffix := time.Now().UnixNano()

	err := testDB.QueryRow(
		"INSERT INTO movie (title, duration_minutes) VALUES ($1, $2) RETURNING id",
		fmt.Sprintf("E2Eテスト作品-%d", suffix), 120,
	).Scan(&f.MovieID)
	require.NoError(t, err)

	err = testDB.QueryRow(
		"INSERT INTO hall (name) VALUES ($1) RETURNING id",
		fmt.Sprintf("E2Eホール-%d", suffix),
	).Scan(&f.HallID)
	require.NoError(t, err)

	for i := 0; i < seatCount; i++ {
		var seatID int64
		err = testDB.QueryRow(
			"INSERT INTO seat (hall_id, seat_row, seat_number) VALUES ($1, $2, $3) RETURNING id",
			f.HallID, "A", i+1,
		).Scan(&seatID)
		require.NoError(t, err)
		f.SeatIDs = append(f.SeatIDs, seatID)
	}

	err = testDB.QueryRow(
		"INSERT INTO customer (email, name) VALUES ($1, $2) RETURNING id",
		fmt.Sprintf("e2e-%d@example.com", suffix), "E2Eテスト顧客",
	).Scan(&f.CustomerID)
	require.NoError(t, err)

	err = testDB.QueryRow(
		"INSERT INTO screening (movie_id, hall_id, start_time) VALUES ($1, $2, $3) RETURNING id",
		f.MovieID, f.HallID, time.Now().Add(24*time.Hour),
	).Scan(&f.ScreeningID)
	require.NoError(t, err)

	return f
}

func (f *screeningFixture) reservationBody(seatIDs ...int64) map[string]interface{} {
	seats := make([]map[string]interface{}, len(seatIDs))
	for i, id := range seatIDs {
		seats[i] = map[string]interface{}{"seat_id": id, "ticket_type": "STANDARD"}
	}
	return map[string]interface{}{
		"customer_id":  f.CustomerID,
		"screening_id": f.ScreeningID,
		"seats":        seats,
	}
}

// TestE2E_HealthCheck はヘルスチェックをテスト
func TestE2E_HealthCheck(t *testing.T) {
	server := getTestServer(t)

	rec := server.Request("GET", "/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	err := json.Unmarshal(rec.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp["status"])

	rec = server.Request("GET", "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// TestE2E_CompleteReservationJourney は完全な予約ジャーニーをテスト
func TestE2E_CompleteReservationJourney(t *testing.T) {
	server := getTestServer(t)
	f := seedScreening(t, 5)

	var reservationID float64

	// 1. 上映詳細で空席数を確認
	t.Run("空席数確認", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/screenings/%d", f.ScreeningID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, float64(5), resp["available_seats"])
		assert.Equal(t, float64(5), resp["total_seats"])
	})

	// 2. 予約作成（2席）
	t.Run("予約作成", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0], f.SeatIDs[1]))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		reservationID = resp["id"].(float64)
		assert.Equal(t, "RESERVED", resp["state"])
	})

	// 3. 座席マップで該当座席が埋まっている
	t.Run("座席マップ確認", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/screenings/%d/seats", f.ScreeningID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		require.Len(t, resp, 5)

		taken := 0
		for _, s := range resp {
			if s["available"] == false {
				taken++
			}
		}
		assert.Equal(t, 2, taken)
	})

	// 4. 支払い確定
	t.Run("支払い確定", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/reservations/%.0f/payment", reservationID)
		rec := server.Request("POST", path, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "PAID", resp["state"])
	})

	// 5. 支払いは冪等（2回目も成功）
	t.Run("支払いは冪等", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/reservations/%.0f/payment", reservationID)
		rec := server.Request("POST", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "PAID", resp["state"])
	})

	// 6. 空席数が減っている
	t.Run("空席数減少確認", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/screenings/%d/seats/count", f.ScreeningID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, float64(3), resp["available_seats"])
	})

	// 7. 顧客の予約一覧に含まれる
	t.Run("顧客の予約一覧", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/customers/%d/reservations", f.CustomerID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp []map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		require.Len(t, resp, 1)
		assert.Equal(t, "PAID", resp[0]["state"])
	})
}

// TestE2E_ReservationConflict は座席競合をテスト
func TestE2E_ReservationConflict(t *testing.T) {
	server := getTestServer(t)
	f := seedScreening(t, 2)

	t.Run("最初の予約は成功", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("同じ座席の予約は409", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
		assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	})

	t.Run("一部競合の場合は全席が拒否される", func(t *testing.T) {
		// 片方は空席だが、全体として何も押さえられない
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0], f.SeatIDs[1]))
		require.Equal(t, http.StatusConflict, rec.Code)

		// 空席側の座席は巻き込まれず予約可能なまま
		rec = server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[1]))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}

// TestE2E_CancelAndRebook はキャンセル後の再予約をテスト
func TestE2E_CancelAndRebook(t *testing.T) {
	server := getTestServer(t)
	f := seedScreening(t, 1)

	var reservationID float64

	t.Run("予約作成", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
		require.Equal(t, http.StatusCreated, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		reservationID = resp["id"].(float64)
	})

	t.Run("キャンセル", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/reservations/%.0f/cancel", reservationID)
		rec := server.Request("POST", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "CANCELED", resp["state"])
	})

	t.Run("キャンセルは冪等", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/reservations/%.0f/cancel", reservationID)
		rec := server.Request("POST", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("解放された座席を再予約できる", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}

// TestE2E_PaidReservationCannotBeCanceled は支払い済み予約のキャンセル拒否をテスト
func TestE2E_PaidReservationCannotBeCanceled(t *testing.T) {
	server := getTestServer(t)
	f := seedScreening(t, 1)

	rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	reservationID := resp["id"].(float64)

	payPath := fmt.Sprintf("/api/v1/reservations/%.0f/payment", reservationID)
	rec = server.Request("POST", payPath, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	cancelPath := fmt.Sprintf("/api/v1/reservations/%.0f/cancel", reservationID)
	rec = server.Request("POST", cancelPath, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

// TestE2E_ExpirationSweep は期限切れスイープとその後の支払い拒否をテスト
func TestE2E_ExpirationSweep(t *testing.T) {
	server := getTestServer(t)
	f := seedScreening(t, 1)

	rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	reservationID := resp["id"].(float64)

	// 仮押さえ期限（testReservationTimeout）を過ぎるまで待つ
	time.Sleep(testReservationTimeout + 500*time.Millisecond)

	t.Run("期限切れ後の支払いは410", func(t *testing.T) {
		path := fmt.Sprintf("/api/v1/reservations/%.0f/payment", reservationID)
		rec := server.Request("POST", path, nil)
		assert.Equal(t, http.StatusGone, rec.Code, rec.Body.String())
	})

	t.Run("スイープが期限切れ予約をキャンセルする", func(t *testing.T) {
		count, err := testReservationService.ExpireDue(context.Background(), time.Now())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, count, 1)

		path := fmt.Sprintf("/api/v1/reservations/%.0f", reservationID)
		rec := server.Request("GET", path, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp map[string]interface{}
		json.Unmarshal(rec.Body.Bytes(), &resp)
		assert.Equal(t, "CANCELED", resp["state"])
	})

	t.Run("スイープ後は座席が解放されている", func(t *testing.T) {
		rec := server.Request("POST", "/api/v1/reservations", f.reservationBody(f.SeatIDs[0]))
		assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})
}
