package application

import (
	"context"

	"github.com/rkociniewski/cinema-seat-reservation-system/internal/domain/catalog"
)

// MovieService は作品カタログの読み取り専用サービス
type MovieService struct {
	movies catalog.MovieRepository
}

func NewMovieService(mr catalog.MovieRepository) *MovieService {
	return &MovieService{movies: mr}
}

// ListMovies は全作品の一覧を取得する
func (s *MovieService) ListMovies(ctx context.Context) ([]*catalog.Movie, error) {
	return s.movies.List(ctx)
}

// GetMovie はIDから作品を取得する
func (s *MovieService) GetMovie(ctx context.Context, id int64) (*catalog.Movie, error) {
	return s.movies.GetByID(ctx, id)
}
