package catalog

import "context"

// カタログは読み取り専用の参照系。書き込みはマイグレーション／シードデータ側の責務。

// MovieRepository は作品カタログの参照インターフェース
type MovieRepository interface {
	GetByID(ctx context.Context, id int64) (*Movie, error)
	List(ctx context.Context) ([]*Movie, error)
}

// HallRepository はホールの参照インターフェース
type HallRepository interface {
	GetByID(ctx context.Context, id int64) (*Hall, error)
}

// SeatRepository は座席の参照インターフェース
type SeatRepository interface {
	GetByID(ctx context.Context, id int64) (*Seat, error)
	// ListByHallID はホールの全座席を一括取得する
	ListByHallID(ctx context.Context, hallID int64) ([]*Seat, error)
}

// ScreeningRepository は上映の参照インターフェース
type ScreeningRepository interface {
	GetByID(ctx context.Context, id int64) (*Screening, error)
	List(ctx context.Context) ([]*Screening, error)
	ListByMovieID(ctx context.Context, movieID int64) ([]*Screening, error)
}

// CustomerRepository は顧客の参照インターフェース
type CustomerRepository interface {
	GetByID(ctx context.Context, id int64) (*Customer, error)
}
