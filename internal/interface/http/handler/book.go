package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/interface/http/dto"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/response"
)

// BookHandler 图书HTTP处理器
// 设计说明：
// 1. Handler只负责HTTP相关的事情：解析请求、调用应用层、返回响应
// 2. 参数格式错误（非整数、非法JSON）统一返回422
type BookHandler struct {
	bookService *appbook.Service
}

// NewBookHandler 创建图书处理器
func NewBookHandler(bookService *appbook.Service) *BookHandler {
	return &BookHandler{
		bookService: bookService,
	}
}

// CreateBook 创建图书
// @Summary      创建图书
// @Description  书名、作者必填，年份可选；相同(书名,作者,年份)的图书只能存在一本
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateBookRequest true "图书信息"
// @Success      201 {object} response.Response{data=dto.BookResponse}
// @Failure      409 {object} response.Response "图书已存在"
// @Failure      422 {object} response.Response "参数错误"
// @Router       /api/v1/books [post]
func (h *BookHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.bookService.Create(c.Request.Context(), appbook.CreateBookRequest{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toBookResponse(result))
}

// ListBooks 图书列表
// @Summary      图书列表
// @Description  按ID升序分页，skip默认0，limit默认100
// @Tags         图书
// @Produce      json
// @Param        skip  query int false "跳过的条数"
// @Param        limit query int false "返回的最大条数"
// @Success      200 {object} response.Response{data=[]dto.BookResponse}
// @Failure      422 {object} response.Response "参数错误"
// @Router       /api/v1/books [get]
func (h *BookHandler) ListBooks(c *gin.Context) {
	var query dto.ListBooksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.bookService.List(c.Request.Context(), appbook.ListBooksRequest{
		Skip:  query.Skip,
		Limit: query.Limit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toBookResponses(result))
}

// GetBook 图书详情
// @Summary      图书详情
// @Tags         图书
// @Produce      json
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      422 {object} response.Response "ID格式错误"
// @Router       /api/v1/books/{id} [get]
func (h *BookHandler) GetBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.bookService.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toBookResponse(result))
}

// UpdateBook 更新图书
// @Summary      更新图书
// @Description  部分更新，只修改请求中提供的字段；空请求体不做任何修改
// @Tags         图书
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id      path int                   true "图书ID"
// @Param        request body dto.UpdateBookRequest true "要修改的字段"
// @Success      200 {object} response.Response{data=dto.BookResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      422 {object} response.Response "参数错误"
// @Router       /api/v1/books/{id} [put]
func (h *BookHandler) UpdateBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.bookService.Update(c.Request.Context(), id, appbook.UpdateBookRequest{
		Title:  req.Title,
		Author: req.Author,
		Year:   req.Year,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toBookResponse(result))
}

// DeleteBook 删除图书
// @Summary      删除图书
// @Tags         图书
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "图书ID"
// @Success      200 {object} response.Response{data=dto.DeleteBookResponse}
// @Failure      404 {object} response.Response "图书不存在"
// @Failure      422 {object} response.Response "ID格式错误"
// @Router       /api/v1/books/{id} [delete]
func (h *BookHandler) DeleteBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.bookService.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.DeleteBookResponse{Detail: appbook.DeletedMessage})
}

// SearchBooks 搜索图书
// @Summary      搜索图书
// @Description  书名/作者不区分大小写的子串匹配，年份精确匹配，多个条件取交集；不传条件返回全部
// @Tags         图书
// @Produce      json
// @Param        title  query string false "书名片段"
// @Param        author query string false "作者片段"
// @Param        year   query int    false "出版年份"
// @Success      200 {object} response.Response{data=[]dto.BookResponse}
// @Failure      422 {object} response.Response "参数错误"
// @Router       /api/v1/books/search [get]
func (h *BookHandler) SearchBooks(c *gin.Context) {
	var query dto.SearchBooksQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.bookService.Search(c.Request.Context(), appbook.SearchBooksRequest{
		Title:  query.Title,
		Author: query.Author,
		Year:   query.Year,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toBookResponses(result))
}

// parseID 解析路径中的图书ID
// 不是整数时返回422；是整数但不可能存在（≤0或超出范围）时返回404
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if errors.Is(err, strconv.ErrRange) || (err == nil && id <= 0) {
		response.Error(c, book.ErrBookNotFound)
		return 0, false
	}
	if err != nil {
		response.Error(c, apperrors.ErrBindError.WithMessage("图书ID必须是整数"))
		return 0, false
	}
	return uint(id), true
}

func bindError(c *gin.Context, err error) {
	response.Error(c, apperrors.ErrBindError.WithMessage("参数格式错误: "+err.Error()))
}

// application层DTO → HTTP层DTO
func toBookResponse(b *appbook.BookResponse) *dto.BookResponse {
	return &dto.BookResponse{
		ID:     b.ID,
		Title:  b.Title,
		Author: b.Author,
		Year:   b.Year,
	}
}

func toBookResponses(books []*appbook.BookResponse) []*dto.BookResponse {
	resp := make([]*dto.BookResponse, 0, len(books))
	for _, b := range books {
		resp = append(resp, toBookResponse(b))
	}
	return resp
}
