package dto

// CreateBookRequest HTTP创建图书请求
// binding只校验结构(必填、类型),长度和空白由领域层校验
type CreateBookRequest struct {
	Title  string `json:"title" binding:"required" example:"The Pragmatic Programmer"`
	Author string `json:"author" binding:"required" example:"Andrew Hunt"`
	Year   *int   `json:"year" example:"1999"` // 可选,null等同于不传
}

// UpdateBookRequest HTTP更新图书请求
// 所有字段可选,未提供的字段保持不变
// 注意:year传null与不传相同,年份只能修改不能清空
type UpdateBookRequest struct {
	Title  *string `json:"title" example:"The Pragmatic Programmer, 20th Anniversary Edition"`
	Author *string `json:"author" example:"David Thomas"`
	Year   *int    `json:"year" example:"2019"`
}

// ListBooksQuery HTTP图书列表查询参数
type ListBooksQuery struct {
	Skip  *int `form:"skip" example:"0"`
	Limit *int `form:"limit" example:"100"`
}

// SearchBooksQuery HTTP搜索查询参数
// title/author为不区分大小写的子串匹配,year为精确匹配,多个条件取交集
type SearchBooksQuery struct {
	Title  string `form:"title" example:"pragmatic"`
	Author string `form:"author" example:"hunt"`
	Year   *int   `form:"year" example:"1999"`
}

// BookResponse HTTP图书响应
type BookResponse struct {
	ID     uint   `json:"id" example:"1"`
	Title  string `json:"title" example:"The Pragmatic Programmer"`
	Author string `json:"author" example:"Andrew Hunt"`
	Year   *int   `json:"year" example:"1999"` // 未知年份为null
}

// DeleteBookResponse HTTP删除图书响应
type DeleteBookResponse struct {
	Detail string `json:"detail" example:"Book deleted"`
}
