package book

import (
	"context"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// Search 按书名/作者片段和年份搜索
// 条件之间是AND关系;不传任何条件时返回全部图书;无结果返回空列表
func (s *Service) Search(ctx context.Context, req SearchBooksRequest) (resp []*BookResponse, err error) {
	ctx, done := s.begin(ctx, "search", "BookService.Search")
	defer func() { done(err) }()

	books, err := s.repo.Search(ctx, book.SearchParams{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
	})
	if err != nil {
		return nil, err
	}
	return toBookResponses(books), nil
}
