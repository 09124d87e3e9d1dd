package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/internal/interface/http/handler"
	"github.com/xiebiao/bookcatalog/internal/interface/http/middleware"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
	"github.com/xiebiao/bookcatalog/pkg/response"
)

// New 创建Gin引擎并注册路由
// 中间件顺序：追踪 → 访问日志 → 指标 → panic恢复
// 追踪在最外层，访问日志可以带上trace_id；恢复中间件在最内层，panic产生的500也会被日志和指标记录
func New(
	cfg *config.Config,
	log *zap.Logger,
	bookHandler *handler.BookHandler,
	authMiddleware *middleware.AuthMiddleware,
) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.Tracing(),
		middleware.RequestLogger(log),
		middleware.Metrics(),
		middleware.Recovery(log),
	)

	// 未匹配的路由也返回统一响应结构
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, apperrors.ErrNotFound)
	})

	// 健康检查
	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{
			"message": "pong",
			"status":  "healthy",
		})
	})

	// Prometheus指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger文档（生产环境不暴露）
	// 访问 http://localhost:8080/swagger/index.html
	if cfg.Server.Mode != gin.ReleaseMode {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	{
		books := v1.Group("/books")
		{
			// 公开接口
			books.GET("", bookHandler.ListBooks)
			books.GET("/search", bookHandler.SearchBooks) // 静态路由优先于/:id
			books.GET("/:id", bookHandler.GetBook)

			// 写接口（jwt.enabled时需要认证）
			books.POST("", authMiddleware.RequireAuth(), bookHandler.CreateBook)
			books.PUT("/:id", authMiddleware.RequireAuth(), bookHandler.UpdateBook)
			books.DELETE("/:id", authMiddleware.RequireAuth(), bookHandler.DeleteBook)
		}
	}

	return r
}
