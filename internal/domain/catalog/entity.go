package catalog

import "time"

// Movie は上映作品を表す
type Movie struct {
	ID              int64
	Title           string
	DurationMinutes int
}

// Hall は上映ホールを表す
type Hall struct {
	ID   int64
	Name string
}

// Seat はホール内の座席を表す。(hall, row, number) で一意。
type Seat struct {
	ID     int64
	HallID int64
	Row    string
	Number int
}

// Screening は作品・ホール・開始時刻の組を表す。作成後は不変。
type Screening struct {
	ID        int64
	MovieID   int64
	HallID    int64
	StartTime time.Time
}

// Customer は予約の所有者となる顧客を表す
type Customer struct {
	ID    int64
	Email string
	Name  string
}
