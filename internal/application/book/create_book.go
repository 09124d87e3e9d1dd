package book

import (
	"context"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// Create 创建图书
// 学习要点:
// 1. 先做无需访问存储的参数校验,失败直接返回
// 2. 重复检查和插入在同一个事务里,避免两次并发请求都通过检查
// 3. 事务提交后再发布事件
func (s *Service) Create(ctx context.Context, req CreateBookRequest) (resp *BookResponse, err error) {
	ctx, done := s.begin(ctx, "create", "BookService.Create")
	defer func() { done(err) }()

	if err := book.ValidateNew(req.Title, req.Author); err != nil {
		return nil, err
	}

	b := book.NewBook(req.Title, req.Author, req.Year)
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.FindByTriple(ctx, b.Title, b.Author, b.Year)
		if err != nil {
			return err
		}
		if existing != nil {
			return book.ErrBookDuplicate
		}
		return s.repo.Create(ctx, b)
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info("图书已创建", zap.Uint("book_id", b.ID), zap.String("title", b.Title))
	s.publish(ctx, RoutingKeyBookCreated, b)

	return toBookResponse(b), nil
}
