// eventlog 订阅图书事件并输出到日志
//
// 用于观察API服务发布的book.created、book.updated、book.deleted事件，
// 也是下游服务（如搜索索引、推荐）接入事件的参考写法。
//
//	go run ./cmd/eventlog                     # 临时队列，退出后自动删除
//	go run ./cmd/eventlog -queue catalog.audit # 持久队列，离线期间的事件不会丢
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appbook "github.com/xiebiao/bookcatalog/internal/application/book"
	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
	"github.com/xiebiao/bookcatalog/pkg/logger"
	"github.com/xiebiao/bookcatalog/pkg/mq"
)

func main() {
	queue := flag.String("queue", "", "队列名，为空时使用临时队列")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zlog, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.MQ.Exchange, cfg.MQ.ExchangeType, *queue,
		[]string{"book.*"}, zlog)
	if err != nil {
		zlog.Fatal("连接RabbitMQ失败", zap.Error(err))
	}
	defer func() { _ = consumer.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zlog.Info("开始订阅图书事件", zap.String("exchange", cfg.MQ.Exchange), zap.String("queue", *queue))
	if err := consumer.Consume(ctx, handleEvent(zlog)); err != nil && !errors.Is(err, context.Canceled) {
		zlog.Fatal("消费中断", zap.Error(err))
	}
}

// handleEvent 解析并记录事件
// 无法解析的消息记录后直接确认，重新入队只会无限重试
func handleEvent(zlog *zap.Logger) mq.Handler {
	return func(routingKey string, body []byte) error {
		var event appbook.BookEvent
		if err := json.Unmarshal(body, &event); err != nil {
			zlog.Error("丢弃无法解析的事件", zap.String("routing_key", routingKey), zap.ByteString("body", body), zap.Error(err))
			return nil
		}
		if event.Event != routingKey {
			zlog.Warn("事件类型与路由键不一致", zap.String("routing_key", routingKey), zap.String("event", event.Event))
		}

		fields := []zap.Field{
			zap.String("event", event.Event),
			zap.Uint("book_id", event.BookID),
			zap.String("title", event.Title),
			zap.String("author", event.Author),
			zap.Time("occurred_at", event.OccurredAt),
		}
		if event.Year != nil {
			fields = append(fields, zap.Int("year", *event.Year))
		}
		zlog.Info("图书事件", fields...)
		return nil
	}
}
