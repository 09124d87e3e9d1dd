package book

import (
	"context"
	"time"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
)

// BookCache 图书详情缓存(由infrastructure/persistence/redis实现)
//
// Get未命中时返回(nil, version, nil)。回填时把version原样交给Set:
// 如果在此期间Delete使该图书缓存失效过,Set放弃写入,
// 避免把读到的旧记录写回缓存
type BookCache interface {
	Get(ctx context.Context, id uint) (b *book.Book, version string, err error)
	Set(ctx context.Context, b *book.Book, version string) error
	Delete(ctx context.Context, id uint) error
}

// EventPublisher 领域事件发布者(由pkg/mq实现)
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
	Exchange() string
}

// 事件路由键
const (
	RoutingKeyBookCreated = "book.created"
	RoutingKeyBookUpdated = "book.updated"
	RoutingKeyBookDeleted = "book.deleted"
)

// BookEvent 图书变更事件
type BookEvent struct {
	Event      string    `json:"event"`
	BookID     uint      `json:"book_id"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	Year       *int      `json:"year"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newBookEvent(routingKey string, b *book.Book) BookEvent {
	return BookEvent{
		Event:      routingKey,
		BookID:     b.ID,
		Title:      b.Title,
		Author:     b.Author,
		Year:       b.Year,
		OccurredAt: time.Now(),
	}
}

// NoopCache 未启用Redis时的缓存实现:永远未命中
type NoopCache struct{}

func (NoopCache) Get(context.Context, uint) (*book.Book, string, error) { return nil, "", nil }
func (NoopCache) Set(context.Context, *book.Book, string) error { return nil }
func (NoopCache) Delete(context.Context, uint) error { return nil }

// NoopPublisher 未启用RabbitMQ时的事件发布者:丢弃事件
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Exchange() string { return "" }
