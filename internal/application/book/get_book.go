package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
)

// Get 查询图书详情(Cache-Aside)
// 缓存故障时降级查库,且不回填(拿不到可信的版本号)
func (s *Service) Get(ctx context.Context, id uint) (resp *BookResponse, err error) {
	ctx, done := s.begin(ctx, "get", "BookService.Get")
	defer func() { done(err) }()

	cached, version, cacheErr := s.cache.Get(ctx, id)
	switch {
	case cacheErr != nil:
		metrics.ObserveCache(metrics.CacheError)
		s.logger(ctx).Warn("读取图书缓存失败", zap.Uint("book_id", id), zap.Error(cacheErr))
	case cached != nil:
		metrics.ObserveCache(metrics.CacheHit)
		return toBookResponse(cached), nil
	default:
		metrics.ObserveCache(metrics.CacheMiss)
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, book.ErrBookNotFound
	}

	if cacheErr == nil {
		if err := s.cache.Set(ctx, b, version); err != nil {
			s.logger(ctx).Warn("写入图书缓存失败", zap.Uint("book_id", id), zap.Error(err))
		}
	}

	return toBookResponse(b), nil
}
