package book

import (
	"context"
)

// List 分页查询图书,按ID升序
// skip/limit未传时使用默认值;limit<=0或skip超出总数时返回空列表
func (s *Service) List(ctx context.Context, req ListBooksRequest) (resp []*BookResponse, err error) {
	ctx, done := s.begin(ctx, "list", "BookService.List")
	defer func() { done(err) }()

	skip, limit := 0, s.defaultLimit
	if req.Skip != nil {
		skip = *req.Skip
	}
	if req.Limit != nil {
		limit = *req.Limit
	}

	books, err := s.repo.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	return toBookResponses(books), nil
}
