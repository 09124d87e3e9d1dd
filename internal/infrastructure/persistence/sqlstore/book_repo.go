package sqlstore

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// bookRepository 图书仓储实现(MySQL/PostgreSQL/SQLite)
// 设计说明:
// 1. 实现domain/book/repository.go定义的接口
// 2. 负责domain实体与GORM模型之间的转换
// 3. 记录不存在返回(nil, nil),只有数据库故障才返回error
type bookRepository struct {
	db *gorm.DB
}

// NewBookRepository 创建图书仓储
func NewBookRepository(db *gorm.DB) book.Repository {
	return &bookRepository{db: db}
}

// Create 创建图书
func (r *bookRepository) Create(ctx context.Context, b *book.Book) error {
	// 1. 领域实体 → GORM模型
	model := &BookModel{
		Title:      b.Title,
		Author:     b.Author,
		Year:       b.Year,
		TripleHash: tripleHash(b.Title, b.Author, b.Year),
	}

	// 2. 插入数据库
	if err := getDB(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.WrapDB(err, "创建图书失败")
	}

	// 3. 回填自增ID
	b.ID = model.ID
	b.CreatedAt = model.CreatedAt
	b.UpdatedAt = model.UpdatedAt

	return nil
}

// FindByID 根据ID查找图书
func (r *bookRepository) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	return r.first(getDB(ctx, r.db).Where("id = ?", id), "查询图书失败")
}

// List 按ID升序分页查询
func (r *bookRepository) List(ctx context.Context, skip, limit int) ([]*book.Book, error) {
	if limit <= 0 {
		return []*book.Book{}, nil
	}
	if skip < 0 {
		skip = 0
	}

	var models []BookModel
	err := getDB(ctx, r.db).
		Order("id ASC").
		Offset(skip).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.WrapDB(err, "查询图书列表失败")
	}

	return toBookEntities(models), nil
}

// Search 按条件搜索
// 学习要点:
// 1. 动态构建查询条件,只拼接提供了的条件(AND组合)
// 2. LOWER(col) LIKE 在三种方言下都可用,实现大小写不敏感
// 3. 参数化查询,片段中的通配符经过转义
func (r *bookRepository) Search(ctx context.Context, params book.SearchParams) ([]*book.Book, error) {
	query := getDB(ctx, r.db).Model(&BookModel{})

	if params.Title != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '"+likeEscape+"'", containsPattern(params.Title))
	}
	if params.Author != "" {
		query = query.Where("LOWER(author) LIKE ? ESCAPE '"+likeEscape+"'", containsPattern(params.Author))
	}
	if params.Year != nil {
		query = query.Where("year = ?", *params.Year)
	}

	var models []BookModel
	if err := query.Order("id ASC").Find(&models).Error; err != nil {
		return nil, apperrors.WrapDB(err, "搜索图书失败")
	}

	return toBookEntities(models), nil
}

// Update 部分更新
// 只更新Patch中提供的字段,空Patch直接返回当前记录
func (r *bookRepository) Update(ctx context.Context, id uint, patch book.Patch) (*book.Book, error) {
	db := getDB(ctx, r.db)

	current, err := r.first(db.Where("id = ?", id), "查询图书失败")
	if err != nil || current == nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	next := current.Clone()
	next.Apply(patch)
	updates := map[string]interface{}{
		"triple_hash": tripleHash(next.Title, next.Author, next.Year),
		"updated_at":  db.NowFunc(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Author != nil {
		updates["author"] = *patch.Author
	}
	if patch.Year != nil {
		updates["year"] = *patch.Year
	}

	err = db.Model(&BookModel{}).Where("id = ?", id).Updates(updates).Error
	if err != nil {
		return nil, apperrors.WrapDB(err, "更新图书失败")
	}

	// 重新读取,返回数据库中的最终状态
	return r.first(db.Where("id = ?", id), "查询图书失败")
}

// Delete 物理删除
func (r *bookRepository) Delete(ctx context.Context, id uint) (bool, error) {
	result := getDB(ctx, r.db).Where("id = ?", id).Delete(&BookModel{})
	if result.Error != nil {
		return false, apperrors.WrapDB(result.Error, "删除图书失败")
	}
	return result.RowsAffected > 0, nil
}

// FindByTriple 按(书名,作者,年份)精确查找
// 教学要点:
// 1. 先按triple_hash走索引,再比较原值(摘要只用于定位)
// 2. year为nil时只匹配year IS NULL的记录
// 3. 在事务中调用时加FOR UPDATE:
//   - MySQL(InnoDB)会对idx_books_triple加next-key锁,记录不存在时同样锁住间隙,
//     并发的"检查-再创建"被串行化
//   - PostgreSQL只锁已存在的行,记录不存在时仍有竞争窗口
//   - SQLite不支持FOR UPDATE,写事务本身由数据库锁串行化
func (r *bookRepository) FindByTriple(ctx context.Context, title, author string, year *int) (*book.Book, error) {
	query := getDB(ctx, r.db).
		Where("triple_hash = ?", tripleHash(title, author, year)).
		Where("title = ? AND author = ?", title, author)
	if year == nil {
		query = query.Where("year IS NULL")
	} else {
		query = query.Where("year = ?", *year)
	}

	if inTx(ctx) && query.Dialector.Name() != "sqlite" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	return r.first(query.Order("id ASC"), "查询图书失败")
}

// first 查询第一条记录,不存在返回(nil, nil)
func (r *bookRepository) first(query *gorm.DB, errMsg string) (*book.Book, error) {
	var model BookModel
	err := query.Limit(1).Find(&model).Error
	if err != nil {
		return nil, apperrors.WrapDB(err, errMsg)
	}
	if model.ID == 0 {
		return nil, nil
	}
	return toBookEntity(&model), nil
}

// toBookEntity GORM模型 → 领域实体
func toBookEntity(m *BookModel) *book.Book {
	return &book.Book{
		ID:        m.ID,
		Title:     m.Title,
		Author:    m.Author,
		Year:      m.Year,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toBookEntities(models []BookModel) []*book.Book {
	books := make([]*book.Book, 0, len(models))
	for i := range models {
		books = append(books, toBookEntity(&models[i]))
	}
	return books
}
