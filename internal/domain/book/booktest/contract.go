// Package booktest 提供book.Repository的通用契约测试
//
// 内存实现和数据库实现共用同一套用例,保证两者行为一致:
//
//	func TestBookStore_Contract(t *testing.T) {
//	    booktest.RunRepositoryContract(t, func(t *testing.T) booktest.Store {
//	        return memory.NewBookStore()
//	    })
//	}
package booktest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// Store 被测仓储需要同时实现的接口
type Store interface {
	book.Repository
	book.Transactor
}

// Factory 为每个子测试创建一个全新的空仓储
type Factory func(t *testing.T) Store

// IntPtr 测试辅助
func IntPtr(v int) *int { return &v }

// StrPtr 测试辅助
func StrPtr(v string) *string { return &v }

// Seed 批量写入图书,返回带ID的实体
func Seed(t *testing.T, repo book.Repository, books ...*book.Book) []*book.Book {
	t.Helper()
	for _, b := range books {
		require.NoError(t, repo.Create(context.Background(), b))
	}
	return books
}

// RunRepositoryContract 运行仓储契约测试
func RunRepositoryContract(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("创建后按ID读取,字段完全一致", func(t *testing.T) {
		repo := newStore(t)
		b := book.NewBook("Test Book", "John Doe", IntPtr(2023))
		require.NoError(t, repo.Create(ctx, b))
		require.NotZero(t, b.ID)

		got, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, "Test Book", got.Title)
		assert.Equal(t, "John Doe", got.Author)
		require.NotNil(t, got.Year)
		assert.Equal(t, 2023, *got.Year)
	})

	t.Run("年份可以为空", func(t *testing.T) {
		repo := newStore(t)
		b := book.NewBook("Another One", "Anon", nil)
		require.NoError(t, repo.Create(ctx, b))

		got, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.Year)
	})

	t.Run("查询不存在的ID返回nil而不是错误", func(t *testing.T) {
		repo := newStore(t)
		got, err := repo.FindByID(ctx, 9999)
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ID单调递增且删除后不复用", func(t *testing.T) {
		repo := newStore(t)
		first := book.NewBook("A", "X", nil)
		second := book.NewBook("B", "X", nil)
		Seed(t, repo, first, second)
		assert.Greater(t, second.ID, first.ID)

		removed, err := repo.Delete(ctx, second.ID)
		require.NoError(t, err)
		require.True(t, removed)

		third := book.NewBook("C", "X", nil)
		Seed(t, repo, third)
		assert.Greater(t, third.ID, second.ID)
	})

	t.Run("分页按插入顺序", func(t *testing.T) {
		repo := newStore(t)
		for _, title := range []string{"b1", "b2", "b3", "b4", "b5"} {
			Seed(t, repo, book.NewBook(title, "Author", nil))
		}

		page, err := repo.List(ctx, 1, 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "b2", page[0].Title)
		assert.Equal(t, "b3", page[1].Title)

		all, err := repo.List(ctx, 0, 100)
		require.NoError(t, err)
		assert.Len(t, all, 5)
	})

	t.Run("分页边界返回空列表", func(t *testing.T) {
		repo := newStore(t)
		for _, title := range []string{"b1", "b2", "b3", "b4", "b5"} {
			Seed(t, repo, book.NewBook(title, "Author", nil))
		}

		tests := []struct {
			name        string
			skip, limit int
			want        int
		}{
			{"skip超过总数", 1000, 10, 0},
			{"limit为负数", 0, -1, 0},
			{"limit为0", 0, 0, 0},
			{"skip为负数按0处理", -5, 2, 2},
			{"最后一页不足limit", 4, 10, 1},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got, err := repo.List(ctx, tt.skip, tt.limit)
				require.NoError(t, err)
				assert.NotNil(t, got)
				assert.Len(t, got, tt.want)
			})
		}
	})

	t.Run("搜索条件AND组合", func(t *testing.T) {
		repo := newStore(t)
		Seed(t, repo,
			book.NewBook("War and Peace", "Leo Tolstoy", IntPtr(1869)),
			book.NewBook("War Games", "Someone Else", IntPtr(1983)),
			book.NewBook("Anna Karenina", "Leo Tolstoy", IntPtr(1878)),
		)

		got, err := repo.Search(ctx, book.SearchParams{Title: "War", Author: "Tolstoy"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "War and Peace", got[0].Title)

		got, err = repo.Search(ctx, book.SearchParams{Author: "tolstoy", Year: IntPtr(1878)})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Anna Karenina", got[0].Title)
	})

	t.Run("搜索不区分大小写的子串匹配", func(t *testing.T) {
		repo := newStore(t)
		Seed(t, repo, book.NewBook("War and Peace", "Leo Tolstoy", IntPtr(1869)))

		for _, fragment := range []string{"war", "WAR", "and pea", "Peace"} {
			got, err := repo.Search(ctx, book.SearchParams{Title: fragment})
			require.NoError(t, err)
			assert.Len(t, got, 1, fragment)
		}
	})

	t.Run("搜索片段中的通配符按字面匹配", func(t *testing.T) {
		repo := newStore(t)
		Seed(t, repo,
			book.NewBook("100% Go", "Gopher", nil),
			book.NewBook("1000 Go Tips", "Gopher", nil),
			book.NewBook("snake_case", "Gopher", nil),
			book.NewBook("snakeXcase", "Gopher", nil),
		)

		got, err := repo.Search(ctx, book.SearchParams{Title: "100%"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "100% Go", got[0].Title)

		got, err = repo.Search(ctx, book.SearchParams{Title: "e_c"})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "snake_case", got[0].Title)
	})

	t.Run("无条件搜索返回全部,无结果返回空列表", func(t *testing.T) {
		repo := newStore(t)
		for _, title := range []string{"b1", "b2", "b3"} {
			Seed(t, repo, book.NewBook(title, "Author", nil))
		}

		all, err := repo.Search(ctx, book.SearchParams{})
		require.NoError(t, err)
		assert.Len(t, all, 3)

		none, err := repo.Search(ctx, book.SearchParams{Title: "nothing"})
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)

		none, err = repo.Search(ctx, book.SearchParams{Year: IntPtr(1)})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("部分更新保留未提供的字段", func(t *testing.T) {
		repo := newStore(t)
		b := book.NewBook("Old Title", "Bob", IntPtr(2020))
		Seed(t, repo, b)

		updated, err := repo.Update(ctx, b.ID, book.Patch{Title: StrPtr("New Title")})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "New Title", updated.Title)
		assert.Equal(t, "Bob", updated.Author)
		require.NotNil(t, updated.Year)
		assert.Equal(t, 2020, *updated.Year)

		got, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "New Title", got.Title)
		assert.Equal(t, "Bob", got.Author)
	})

	t.Run("空Patch不改变内容", func(t *testing.T) {
		repo := newStore(t)
		b := book.NewBook("Dune", "Frank Herbert", IntPtr(1965))
		Seed(t, repo, b)

		updated, err := repo.Update(ctx, b.ID, book.Patch{})
		require.NoError(t, err)
		require.NotNil(t, updated)
		assert.Equal(t, "Dune", updated.Title)
		assert.Equal(t, "Frank Herbert", updated.Author)
		assert.Equal(t, 1965, *updated.Year)
	})

	t.Run("更新不存在的ID返回nil", func(t *testing.T) {
		repo := newStore(t)
		updated, err := repo.Update(ctx, 42, book.Patch{Title: StrPtr("x")})
		assert.NoError(t, err)
		assert.Nil(t, updated)
	})

	t.Run("删除是幂等的", func(t *testing.T) {
		repo := newStore(t)
		b := book.NewBook("Delete Me", "Eve", IntPtr(2019))
		Seed(t, repo, b)

		removed, err := repo.Delete(ctx, b.ID)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = repo.Delete(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		removed, err = repo.Delete(ctx, 12345)
		require.NoError(t, err)
		assert.False(t, removed)

		got, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("按三元组精确查找", func(t *testing.T) {
		repo := newStore(t)
		withYear := book.NewBook("1984", "George Orwell", IntPtr(1949))
		noYear := book.NewBook("1984", "George Orwell", nil)
		Seed(t, repo, withYear, noYear)

		got, err := repo.FindByTriple(ctx, "1984", "George Orwell", IntPtr(1949))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, withYear.ID, got.ID)

		got, err = repo.FindByTriple(ctx, "1984", "George Orwell", nil)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, noYear.ID, got.ID)

		got, err = repo.FindByTriple(ctx, "1984", "George Orwell", IntPtr(1950))
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("更新后按新三元组可以找到", func(t *testing.T) {
		repo := newStore(t)
		b := book.NewBook("Old Title", "Bob", nil)
		Seed(t, repo, b)

		_, err := repo.Update(ctx, b.ID, book.Patch{Title: StrPtr("New Title"), Year: IntPtr(2020)})
		require.NoError(t, err)

		got, err := repo.FindByTriple(ctx, "New Title", "Bob", IntPtr(2020))
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, b.ID, got.ID)

		got, err = repo.FindByTriple(ctx, "Old Title", "Bob", nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("书名和作者不限长度", func(t *testing.T) {
		repo := newStore(t)
		title := strings.Repeat("x", 1000)
		author := strings.Repeat("作", 1000)
		b := book.NewBook(title, author, IntPtr(2001))
		Seed(t, repo, b)

		got, err := repo.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, title, got.Title)
		assert.Equal(t, author, got.Author)

		dup, err := repo.FindByTriple(ctx, title, author, IntPtr(2001))
		require.NoError(t, err)
		require.NotNil(t, dup)
		assert.Equal(t, b.ID, dup.ID)
	})

	t.Run("事务失败时回滚", func(t *testing.T) {
		repo := newStore(t)
		boom := errors.New("boom")

		err := repo.Transaction(ctx, func(ctx context.Context) error {
			if err := repo.Create(ctx, book.NewBook("Rolled Back", "Nobody", nil)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		all, err := repo.List(ctx, 0, 100)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("事务成功时提交", func(t *testing.T) {
		repo := newStore(t)

		err := repo.Transaction(ctx, func(ctx context.Context) error {
			existing, err := repo.FindByTriple(ctx, "Kept", "Somebody", nil)
			if err != nil {
				return err
			}
			require.Nil(t, existing)
			return repo.Create(ctx, book.NewBook("Kept", "Somebody", nil))
		})
		require.NoError(t, err)

		got, err := repo.FindByTriple(ctx, "Kept", "Somebody", nil)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}
