package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// DeletedMessage 删除成功的提示
const DeletedMessage = "Book deleted"

// Delete 删除图书(物理删除)
// 不存在返回ErrBookNotFound;检查之后被并发删除的情况视为成功
func (s *Service) Delete(ctx context.Context, id uint) (err error) {
	ctx, done := s.begin(ctx, "delete", "BookService.Delete")
	defer func() { done(err) }()

	var deleted *book.Book
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return book.ErrBookNotFound
		}
		deleted = current

		removed, err := s.repo.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !removed {
			s.logger(ctx).Debug("图书已被并发删除", zap.Uint("book_id", id))
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, id)
	s.logger(ctx).Info("图书已删除", zap.Uint("book_id", id))
	s.publish(ctx, RoutingKeyBookDeleted, deleted)

	return nil
}
