package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// BookStore 图书仓储的内存实现
// 设计说明:
// 1. 同时实现book.Repository和book.Transactor,用于开发环境(database.driver=memory)和测试
// 2. ID单调递增,删除后不复用(与数据库自增主键一致)
// 3. 对外只返回副本,调用方无法绕过仓储修改内部状态
// 4. 每个BookStore实例相互独立,不使用包级全局变量
type BookStore struct {
	mu     sync.RWMutex // 保护books和nextID
	books  map[uint]*book.Book
	nextID uint

	txMu sync.Mutex // 串行化事务和事务外的写操作
}

// txKey 标记ctx已处于本存储的事务中
type txKey struct{ store *BookStore }

// NewBookStore 创建内存图书仓储
func NewBookStore() *BookStore {
	return &BookStore{
		books:  make(map[uint]*book.Book),
		nextID: 1,
	}
}

var (
	_ book.Repository = (*BookStore)(nil)
	_ book.Transactor = (*BookStore)(nil)
)

// Transaction 执行事务
// 教学要点:
// 1. 整个fn期间持有txMu,检查-再执行(check-then-act)不会被其他写操作插入
// 2. fn返回error时恢复进入事务前的数据快照(nextID不回退,与自增主键行为一致)
// 3. 可重入:嵌套调用直接复用外层事务
func (s *BookStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{store: s}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

// FindByID 根据ID查找图书
func (s *BookStore) FindByID(ctx context.Context, id uint) (*book.Book, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

// List 按ID升序分页查询
func (s *BookStore) List(ctx context.Context, skip, limit int) ([]*book.Book, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		return []*book.Book{}, nil
	}

	all := s.sorted(func(*book.Book) bool { return true })
	if skip >= len(all) {
		return []*book.Book{}, nil
	}
	end := skip + limit
	if end > len(all) || end < skip { // end<skip: 溢出
		end = len(all)
	}
	return all[skip:end], nil
}

// Search 按条件搜索
func (s *BookStore) Search(ctx context.Context, params book.SearchParams) ([]*book.Book, error) {
	title := strings.ToLower(params.Title)
	author := strings.ToLower(params.Author)

	return s.sorted(func(b *book.Book) bool {
		if title != "" && !strings.Contains(strings.ToLower(b.Title), title) {
			return false
		}
		if author != "" && !strings.Contains(strings.ToLower(b.Author), author) {
			return false
		}
		if params.Year != nil && (b.Year == nil || *b.Year != *params.Year) {
			return false
		}
		return true
	}), nil
}

// Create 创建图书
func (s *BookStore) Create(ctx context.Context, b *book.Book) error {
	unlock := s.lockWrite(ctx)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b.ID = s.nextID
	s.nextID++
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = b.CreatedAt

	s.books[b.ID] = b.Clone()
	return nil
}

// Update 部分更新
func (s *BookStore) Update(ctx context.Context, id uint, patch book.Patch) (*book.Book, error) {
	unlock := s.lockWrite(ctx)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[id]
	if !ok {
		return nil, nil
	}
	b.Apply(patch)
	return b.Clone(), nil
}

// Delete 删除图书
func (s *BookStore) Delete(ctx context.Context, id uint) (bool, error) {
	unlock := s.lockWrite(ctx)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.books[id]; !ok {
		return false, nil
	}
	delete(s.books, id)
	return true, nil
}

// FindByTriple 按(书名,作者,年份)精确查找
func (s *BookStore) FindByTriple(ctx context.Context, title, author string, year *int) (*book.Book, error) {
	matches := s.sorted(func(b *book.Book) bool {
		return b.SameTriple(title, author, year)
	})
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

// Len 当前记录数(测试辅助)
func (s *BookStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.books)
}

// =========================================
// 辅助函数
// =========================================

// sorted 返回满足条件的记录副本,按ID升序
func (s *BookStore) sorted(match func(*book.Book) bool) []*book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*book.Book, 0, len(s.books))
	for _, b := range s.books {
		if match(b) {
			result = append(result, b.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// lockWrite 事务外的写操作也要拿txMu,避免插入到别的事务的检查和执行之间
func (s *BookStore) lockWrite(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *BookStore) inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{store: s}).(bool)
	return v
}

func (s *BookStore) snapshot() map[uint]*book.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(map[uint]*book.Book, len(s.books))
	for id, b := range s.books {
		snap[id] = b.Clone()
	}
	return snap
}

func (s *BookStore) restore(snap map[uint]*book.Book) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books = snap
}
