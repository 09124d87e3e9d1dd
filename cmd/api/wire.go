//go:build wireinject
// +build wireinject

// Wire依赖注入配置
// 修改后运行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"go.uber.org/zap"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/interface/http/handler"
	"github.com/xiebiao/bookcatalog/internal/interface/http/router"
)

// infrastructureSet 基础设施层依赖：存储、缓存、消息
var infrastructureSet = wire.NewSet(
	provideStorage,
	provideRepository,
	provideTransactor,
	provideBookCache,
	provideEventPublisher,
)

// applicationSet 应用层依赖
var applicationSet = wire.NewSet(
	provideServiceOptions,
	appbook.NewService,
)

// interfaceSet 接口层依赖：认证、处理器、路由
var interfaceSet = wire.NewSet(
	provideJWTManager,
	provideAuthMiddleware,
	handler.NewBookHandler,
	router.New,
)

// InitializeApp 组装整个应用
// cleanup按创建的逆序释放数据库、Redis、MQ连接
func InitializeApp(cfg *config.Config, log *zap.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		applicationSet,
		interfaceSet,
	)
	return nil, nil, nil
}
