// seed 向图书目录写入一组经典图书
//
// 用法：
//
//	go run ./cmd/seed            # 追加，已存在的图书跳过
//	go run ./cmd/seed -reset     # 先清空再写入
//
// 数据库连接读取与API服务相同的配置（config/config.yaml + CATALOG_*环境变量）
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"

	"go.uber.org/zap"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/sqlstore"
	"github.com/xiebiao/bookcatalog/pkg/logger"
)

func main() {
	reset := flag.Bool("reset", false, "写入前删除所有图书")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Fatalf("内存存储无法持久化，请设置database.driver（如CATALOG_DATABASE_DRIVER=sqlite）")
	}

	zlog, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, cleanup, err := sqlstore.NewDB(cfg, zlog)
	if err != nil {
		zlog.Fatal("连接数据库失败", zap.Error(err))
	}
	defer cleanup()

	svc := appbook.NewService(sqlstore.NewBookRepository(db), sqlstore.NewTxManager(db), nil, nil, zlog, appbook.Options{})

	created, skipped, err := seed(context.Background(), svc, *reset)
	if err != nil {
		zlog.Fatal("写入图书失败", zap.Error(err))
	}
	fmt.Printf("写入%d本，跳过%d本（已存在）\n", created, skipped)
}

// seed 写入classicBooks，reset为true时先删除全部图书
func seed(ctx context.Context, svc *appbook.Service, reset bool) (created, skipped int, err error) {
	if reset {
		if err := deleteAll(ctx, svc); err != nil {
			return 0, 0, err
		}
	}

	for _, b := range classicBooks {
		year := b.year
		_, err := svc.Create(ctx, appbook.CreateBookRequest{Title: b.title, Author: b.author, Year: &year})
		switch {
		case errors.Is(err, book.ErrBookDuplicate):
			skipped++
		case err != nil:
			return created, skipped, fmt.Errorf("写入《%s》失败: %w", b.title, err)
		default:
			created++
		}
	}
	return created, skipped, nil
}

// deleteAll 分批删除，每批取第一页
func deleteAll(ctx context.Context, svc *appbook.Service) error {
	limit := 100
	for {
		page, err := svc.List(ctx, appbook.ListBooksRequest{Limit: &limit})
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		for _, b := range page {
			if err := svc.Delete(ctx, b.ID); err != nil && !errors.Is(err, book.ErrBookNotFound) {
				return err
			}
		}
	}
}

var classicBooks = []struct {
	title  string
	author string
	year   int
}{
	{"1984", "George Orwell", 1949},
	{"Animal Farm", "George Orwell", 1945},
	{"Brave New World", "Aldous Huxley", 1932},
	{"Fahrenheit 451", "Ray Bradbury", 1953},
	{"The Hobbit", "J.R.R. Tolkien", 1937},
	{"The Lord of the Rings", "J.R.R. Tolkien", 1954},
	{"To Kill a Mockingbird", "Harper Lee", 1960},
	{"The Great Gatsby", "F. Scott Fitzgerald", 1925},
	{"Moby-Dick", "Herman Melville", 1851},
	{"War and Peace", "Leo Tolstoy", 1869},
	{"Crime and Punishment", "Fyodor Dostoevsky", 1866},
	{"The Catcher in the Rye", "J.D. Salinger", 1951},
	{"The Shining", "Stephen King", 1977},
	{"Dune", "Frank Herbert", 1965},
	{"The Martian", "Andy Weir", 2011},
	{"The Alchemist", "Paulo Coelho", 1988},
	{"Harry Potter and the Philosopher’s Stone", "J.K. Rowling", 1997},
	{"Harry Potter and the Chamber of Secrets", "J.K. Rowling", 1998},
	{"The Da Vinci Code", "Dan Brown", 2003},
	{"The Little Prince", "Antoine de Saint-Exupéry", 1943},
}
