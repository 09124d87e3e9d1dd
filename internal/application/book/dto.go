package book

import (
	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// CreateBookRequest 创建图书请求DTO
type CreateBookRequest struct {
	Title  string
	Author string
	Year   *int // 可选
}

// UpdateBookRequest 更新图书请求DTO
// nil字段表示不修改
type UpdateBookRequest struct {
	Title  *string
	Author *string
	Year   *int
}

// ListBooksRequest 图书列表请求DTO
// nil表示使用默认值(skip=0, limit=配置的默认分页大小)
type ListBooksRequest struct {
	Skip  *int
	Limit *int
}

// SearchBooksRequest 搜索请求DTO
// 空字符串/nil表示不使用该条件
type SearchBooksRequest struct {
	Title  string
	Author string
	Year   *int
}

// BookResponse 图书响应DTO
// year为空时序列化为null
type BookResponse struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   *int   `json:"year"`
}

func toBookResponse(b *book.Book) *BookResponse {
	return &BookResponse{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		Year:   b.Year,
	}
}

func toBookResponses(books []*book.Book) []*BookResponse {
	resp := make([]*BookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, toBookResponse(b))
	}
	return resp
}
