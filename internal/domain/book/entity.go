package book

import (
	"time"
)

// Book 图书实体(聚合根)
// DDD设计说明:
// 1. ID由仓储在创建时分配,之后不可变,且同一存储生命周期内单调递增、不复用
// 2. Title和Author对已持久化的记录永远非空
// 3. Year可选(nil表示未知年份),不做范围校验
type Book struct {
	ID        uint
	Title     string // 书名
	Author    string // 作者
	Year      *int   // 出版年份(可选)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBook 创建新图书(工厂方法)
// 调用方需先完成参数校验(见Validate)
func NewBook(title, author string, year *int) *Book {
	now := time.Now()
	return &Book{
		Title:     title,
		Author:    author,
		Year:      cloneYear(year),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Patch 部分更新
// nil字段表示"未提供",保持原值不变
type Patch struct {
	Title  *string
	Author *string
	Year   *int
}

// IsEmpty 是否未携带任何字段
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.Year == nil
}

// Apply 将Patch应用到图书上(领域行为)
// 只修改提供了的字段;空Patch不改变内容,也不刷新UpdatedAt
func (b *Book) Apply(p Patch) {
	if p.IsEmpty() {
		return
	}
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.Year != nil {
		b.Year = cloneYear(p.Year)
	}
	b.UpdatedAt = time.Now()
}

// SameTriple 判断(书名,作者,年份)三元组是否相同
// 年份为nil只与nil相等
func (b *Book) SameTriple(title, author string, year *int) bool {
	if b.Title != title || b.Author != author {
		return false
	}
	if b.Year == nil || year == nil {
		return b.Year == nil && year == nil
	}
	return *b.Year == *year
}

// Clone 深拷贝(Year是指针,需要单独复制)
func (b *Book) Clone() *Book {
	c := *b
	c.Year = cloneYear(b.Year)
	return &c
}

// SearchParams 搜索条件
// 三个条件之间是AND关系,空字符串/nil表示不过滤
type SearchParams struct {
	Title  string // 书名片段(不区分大小写的子串匹配)
	Author string // 作者片段(不区分大小写的子串匹配)
	Year   *int   // 年份(精确匹配)
}

// IsEmpty 是否没有任何过滤条件
func (p SearchParams) IsEmpty() bool {
	return p.Title == "" && p.Author == "" && p.Year == nil
}

func cloneYear(year *int) *int {
	if year == nil {
		return nil
	}
	y := *year
	return &y
}
