package main

import (
	"go.uber.org/zap"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/persistence/sqlstore"
	"github.com/xiebiao/bookcatalog/internal/interface/http/middleware"
	"github.com/xiebiao/bookcatalog/pkg/jwt"
	"github.com/xiebiao/bookcatalog/pkg/mq"
)

// Custom Providers
// 这些依赖需要根据配置选择实现，Wire无法直接从构造函数推断

// storage 按database.driver选出的仓储和事务执行器
type storage struct {
	repo book.Repository
	tx   book.Transactor
}

// provideStorage 根据驱动创建存储
// memory：进程内存储，重启后数据丢失
// mysql/postgres/sqlite：GORM + 自动建表
func provideStorage(cfg *config.Config, log *zap.Logger) (*storage, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		store := memory.NewBookStore()
		log.Info("使用内存存储")
		return &storage{repo: store, tx: store}, func() {}, nil
	}

	db, cleanup, err := sqlstore.NewDB(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return &storage{
		repo: sqlstore.NewBookRepository(db),
		tx:   sqlstore.NewTxManager(db),
	}, cleanup, nil
}

func provideRepository(s *storage) book.Repository { return s.repo }

func provideTransactor(s *storage) book.Transactor { return s.tx }

// provideBookCache redis.enabled=false时返回nil，应用层使用空缓存
func provideBookCache(cfg *config.Config, log *zap.Logger) (appbook.BookCache, func(), error) {
	if !cfg.Redis.Enabled {
		return nil, func() {}, nil
	}

	client, cleanup, err := redis.NewClient(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	cache := redis.NewBookCache(client, cfg.Redis.DetailTTL).WithBreaker(redis.NewCacheBreaker(log))
	return cache, cleanup, nil
}

// provideEventPublisher mq.enabled=false时返回nil，应用层不发布事件
func provideEventPublisher(cfg *config.Config, log *zap.Logger) (appbook.EventPublisher, func(), error) {
	if !cfg.MQ.Enabled {
		return nil, func() {}, nil
	}

	publisher, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := publisher.Close(); err != nil {
			log.Warn("关闭MQ连接失败", zap.Error(err))
		}
	}
	return publisher, cleanup, nil
}

func provideServiceOptions(cfg *config.Config) appbook.Options {
	return appbook.Options{DefaultLimit: cfg.Catalog.DefaultLimit}
}

// provideJWTManager 从配置创建JWT管理器
func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpire)
}

func provideAuthMiddleware(cfg *config.Config, m *jwt.Manager) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(m, cfg.JWT.Enabled)
}
