// Package mq 封装RabbitMQ的发布与消费
//
// # 核心概念
//
//	Publisher → Exchange(topic) --routing key--> Queue → Consumer
//
// 1. **Exchange（交换机）**：接收消息，按Routing Key路由到Queue
//   - topic类型支持通配符：book.* 匹配 book.created、book.deleted
//
// 2. **Queue（队列）**：存储消息，直到被消费者确认（Ack）
//
// 3. **Routing Key（路由键）**：本服务使用 book.created / book.updated / book.deleted
//
// # 可靠性
//
//   - Exchange和Queue都声明为Durable，消息使用Persistent投递模式
//   - 消费者手动Ack，处理失败时Nack并重新入队
//   - 本服务的事件是"尽力而为"的通知：发布失败只记录日志，不回滚数据库写入
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// Publisher 消息发布者
// amqp.Channel不是并发安全的，发布时加锁
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      *zap.Logger
}

// NewPublisher 创建消息发布者并声明Exchange
func NewPublisher(url, exchange, exchangeType string, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	if err := declareExchange(channel, exchange, exchangeType); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, err
	}

	log.Info("消息发布者已创建",
		zap.String("exchange", exchange),
		zap.String("type", exchangeType),
	)

	return &Publisher{
		conn:     conn,
		channel:  channel,
		exchange: exchange,
		log:      log,
	}, nil
}

// Exchange 返回发布的目标Exchange
func (p *Publisher) Exchange() string {
	return p.exchange
}

// Publish 发布JSON消息
func (p *Publisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	body, err := json.Marshal(message)
	if err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeMQError, "消息序列化失败")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,
		routingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return apperrors.WrapCode(err, apperrors.ErrCodeMQError, "发布消息失败")
	}

	p.log.Debug("消息已发布", zap.String("routing_key", routingKey), zap.ByteString("body", body))
	return nil
}

// Close 关闭Channel和连接
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return closeAll(p.channel, p.conn)
}

// Consumer 消息消费者
type Consumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
	log     *zap.Logger
}

// NewConsumer 创建消费者：声明Exchange和Queue，按routingKeys绑定
// queue为空时声明一个服务端命名的临时队列（连接断开后自动删除）
func NewConsumer(url, exchange, exchangeType, queue string, routingKeys []string, log *zap.Logger) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("连接RabbitMQ失败: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("创建Channel失败: %w", err)
	}

	fail := func(err error) (*Consumer, error) {
		_ = closeAll(channel, conn)
		return nil, err
	}

	if err := declareExchange(channel, exchange, exchangeType); err != nil {
		return fail(err)
	}

	temporary := queue == ""
	q, err := channel.QueueDeclare(
		queue,
		!temporary, // Durable
		temporary,  // AutoDelete
		temporary,  // Exclusive
		false,      // NoWait
		nil,
	)
	if err != nil {
		return fail(fmt.Errorf("声明Queue失败: %w", err))
	}

	for _, routingKey := range routingKeys {
		if err := channel.QueueBind(q.Name, routingKey, exchange, false, nil); err != nil {
			return fail(fmt.Errorf("绑定Queue失败: %w", err))
		}
	}

	log.Info("消息消费者已创建",
		zap.String("queue", q.Name),
		zap.Strings("routing_keys", routingKeys),
	)

	return &Consumer{
		conn:    conn,
		channel: channel,
		queue:   q.Name,
		log:     log,
	}, nil
}

// Handler 消息处理函数，返回error时消息重新入队
type Handler func(routingKey string, body []byte) error

// Consume 阻塞消费，直到ctx取消或Channel关闭
func (c *Consumer) Consume(ctx context.Context, handler Handler) error {
	// 每次只预取一条，处理完再取下一条
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("设置Qos失败: %w", err)
	}

	msgs, err := c.channel.Consume(
		c.queue,
		"",    // Consumer标签（自动生成）
		false, // AutoAck
		false, // Exclusive
		false, // NoLocal
		false, // NoWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("开始消费失败: %w", err)
	}

	c.log.Info("开始消费消息", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			c.log.Info("消费者退出", zap.String("queue", c.queue))
			return nil

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("消息Channel已关闭")
			}

			if err := handler(msg.RoutingKey, msg.Body); err != nil {
				c.log.Warn("消息处理失败，重新入队",
					zap.String("routing_key", msg.RoutingKey),
					zap.Error(err),
				)
				_ = msg.Nack(false, true)
				continue
			}
			_ = msg.Ack(false)
		}
	}
}

// Close 关闭Channel和连接
func (c *Consumer) Close() error {
	return closeAll(c.channel, c.conn)
}

func declareExchange(channel *amqp.Channel, exchange, exchangeType string) error {
	err := channel.ExchangeDeclare(
		exchange,
		exchangeType,
		true,  // Durable
		false, // AutoDelete
		false, // Internal
		false, // NoWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("声明Exchange失败: %w", err)
	}
	return nil
}

func closeAll(channel *amqp.Channel, conn *amqp.Connection) error {
	var firstErr error
	if channel != nil {
		if err := channel.Close(); err != nil && err != amqp.ErrClosed {
			firstErr = err
		}
	}
	if conn != nil {
		if err := conn.Close(); err != nil && err != amqp.ErrClosed && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
