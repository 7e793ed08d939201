package catalog

import "errors"

// Catalog ドメインのエラー定義
var (
	ErrMovieNotFound     = errors.New("作品が見つかりません")
	ErrHallNotFound      = errors.New("ホールが見つかりません")
	ErrSeatNotFound      = errors.New("座席が見つかりません")
	ErrScreeningNotFound = errors.New("上映が見つかりません")
	ErrCustomerNotFound  = errors.New("顧客が見つかりません")
)
