package book

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// notBlank 拒绝空串和纯空白字符串
// ozzo的Required只检查零值,"   "会被放过
// 书名和作者不限长度
var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("不能为空")
	}
	return nil
})

// ValidateNew 校验新建图书参数
func ValidateNew(title, author string) error {
	err := validation.Errors{
		"title":  validation.Validate(title, notBlank),
		"author": validation.Validate(author, notBlank),
	}.Filter()
	return toDomainError(err)
}

// ValidatePatch 校验部分更新参数
// 只校验提供了的字段;提供了就必须非空(已持久化记录的书名作者永远非空)
func ValidatePatch(p Patch) error {
	errs := validation.Errors{}
	if p.Title != nil {
		errs["title"] = validation.Validate(*p.Title, notBlank)
	}
	if p.Author != nil {
		errs["author"] = validation.Validate(*p.Author, notBlank)
	}
	return toDomainError(errs.Filter())
}

// toDomainError 将ozzo的校验错误转换为ErrInvalidBook
// 错误信息形如 "author: 不能为空; title: 不能为空."
func toDomainError(err error) error {
	if err == nil {
		return nil
	}
	return ErrInvalidBook.WithMessage(err.Error())
}
