package book

import (
	"context"
)

// Repository 图书仓储接口(依赖倒置原则)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(MySQL/PostgreSQL/SQLite/内存)
// 2. "不存在"不是错误:查询返回(nil, nil),删除返回false
// 3. 返回的error只可能是存储故障(apperrors.ErrCodeDatabaseError)
// 4. 仓储不校验(书名,作者,年份)唯一性,由应用层在创建前检查
type Repository interface {
	// FindByID 根据ID查找图书,不存在返回(nil, nil)
	FindByID(ctx context.Context, id uint) (*Book, error)

	// List 按ID升序分页查询
	// limit<=0或skip超出总数时返回空列表;skip<0按0处理
	List(ctx context.Context, skip, limit int) ([]*Book, error)

	// Search 按条件搜索(AND组合),按ID升序
	// 条件全空时等价于不分页的List
	Search(ctx context.Context, params SearchParams) ([]*Book, error)

	// Create 创建图书,回填ID和时间戳
	Create(ctx context.Context, book *Book) error

	// Update 部分更新,不存在返回(nil, nil)
	Update(ctx context.Context, id uint, patch Patch) (*Book, error)

	// Delete 删除图书(物理删除),返回是否删除了记录
	Delete(ctx context.Context, id uint) (bool, error)

	// FindByTriple 按(书名,作者,年份)精确查找,不存在返回(nil, nil)
	// 在事务中调用时会锁定匹配范围(见各实现)
	FindByTriple(ctx context.Context, title, author string, year *int) (*Book, error)
}

// Transactor 事务执行器
// fn内通过ctx调用的仓储方法处于同一事务(或同一把锁)中
// fn返回error时回滚
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
