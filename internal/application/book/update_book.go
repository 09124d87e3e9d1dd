package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// Update 部分更新图书
// 学习要点:
// 1. 只校验提供了的字段
// 2. 空Patch不修改任何内容,仍然返回成功(当前记录)
// 3. 更新不做(书名,作者,年份)重复检查
// 4. 更新成功后删除缓存,而不是写入新值
func (s *Service) Update(ctx context.Context, id uint, req UpdateBookRequest) (resp *BookResponse, err error) {
	ctx, done := s.begin(ctx, "update", "BookService.Update")
	defer func() { done(err) }()

	patch := book.Patch{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
	}
	if err := book.ValidatePatch(patch); err != nil {
		return nil, err
	}

	var updated *book.Book
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return book.ErrBookNotFound
		}

		updated, err = s.repo.Update(ctx, id, patch)
		if err != nil {
			return err
		}
		if updated == nil {
			// 检查之后被并发删除
			return book.ErrBookNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if patch.IsEmpty() {
		return toBookResponse(updated), nil
	}

	s.invalidate(ctx, id)
	s.logger(ctx).Info("图书已更新", zap.Uint("book_id", id))
	s.publish(ctx, RoutingKeyBookUpdated, updated)

	return toBookResponse(updated), nil
}
