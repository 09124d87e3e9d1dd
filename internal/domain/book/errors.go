package book

import (
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// 图书领域错误定义
var (
	// ErrBookNotFound 图书不存在
	ErrBookNotFound = apperrors.New(apperrors.ErrCodeBookNotFound, "Book not found")

	// ErrBookDuplicate 书名、作者、年份完全相同的图书已存在
	ErrBookDuplicate = apperrors.New(apperrors.ErrCodeBookDuplicate, "Book with this title, author and year already exists")

	// ErrInvalidBook 图书参数不合法(具体原因见Message)
	ErrInvalidBook = apperrors.New(apperrors.ErrCodeInvalidParams, "图书参数不合法")
)
