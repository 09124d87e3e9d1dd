package book

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/metrics"
	"github.com/xiebiao/bookcatalog/pkg/tracing"
)

// tracerName 本层Span的来源标识
const tracerName = "bookcatalog/application/book"

// DefaultListLimit 未配置时列表接口的默认分页大小
const DefaultListLimit = 100

// Options 应用服务配置
type Options struct {
	DefaultLimit int // 列表接口未传limit时使用
}

// Service 图书目录应用服务
// 设计说明:
// 1. 应用层负责用例编排:参数校验 → 事务内"检查-再执行" → 缓存失效 → 发布事件
// 2. 仓储只负责存取,"不存在"/"重复"等业务错误在这一层产生
// 3. 缓存和事件是旁路能力,失败只记日志,不影响请求结果
// 4. 每个用例都记录Span和Prometheus指标
//
// 各用例的实现分布在同目录的create_book.go、list_books.go等文件中
type Service struct {
	repo         book.Repository
	tx           book.Transactor
	cache        BookCache
	events       EventPublisher
	log          *zap.Logger
	defaultLimit int
}

// NewService 创建图书应用服务
// cache、events为nil时使用空实现(未启用Redis/RabbitMQ)
func NewService(
	repo book.Repository,
	tx book.Transactor,
	cache BookCache,
	events EventPublisher,
	log *zap.Logger,
	opts Options,
) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	if events == nil {
		events = NoopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultListLimit
	}

	return &Service{
		repo:         repo,
		tx:           tx,
		cache:        cache,
		events:       events,
		log:          log,
		defaultLimit: opts.DefaultLimit,
	}
}

// begin 开始一个用例:创建Span并计时
// 返回的done必须在用例结束时以最终错误调用
//
//	ctx, done := s.begin(ctx, "create", "BookService.Create")
//	defer func() { done(err) }()
func (s *Service) begin(ctx context.Context, operation, spanName string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, spanName)

	return ctx, func(err error) {
		tracing.EndSpan(span, err)
		metrics.ObserveBookOperation(operation, err, time.Since(start))
	}
}

// logger 请求级Logger(带request_id)
func (s *Service) logger(ctx context.Context) *zap.Logger {
	return logger.FromContext(ctx, s.log)
}

// invalidate 删除详情缓存,失败只记日志
func (s *Service) invalidate(ctx context.Context, id uint) {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.logger(ctx).Warn("删除图书缓存失败", zap.Uint("book_id", id), zap.Error(err))
	}
}

// publish 发布图书事件,失败只记日志
// 事件在事务提交后发布:消费者收到事件时数据一定已经可见
func (s *Service) publish(ctx context.Context, routingKey string, b *book.Book) {
	event := newBookEvent(routingKey, b)
	err := s.events.Publish(ctx, routingKey, event)
	metrics.ObservePublish(s.events.Exchange(), routingKey, err)
	if err != nil {
		s.logger(ctx).Warn("发布图书事件失败",
			zap.String("routing_key", routingKey),
			zap.Uint("book_id", b.ID),
			zap.Error(err),
		)
	}
}
