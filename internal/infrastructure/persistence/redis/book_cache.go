package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/xiebiao/bookcatalog/internal/domain/book"
	"github.com/xiebiao/bookcatalog/pkg/circuitbreaker"
	apperrors "github.com/xiebiao/bookcatalog/pkg/errors"
)

// BookCache 图书详情缓存（Cache-Aside）
//
// 教学要点：
// 1. 读：先查缓存，未命中再查数据库，然后回填缓存
// 2. 写：更新/删除数据库后删除缓存（不更新缓存，避免并发写导致脏数据）
// 3. 缓存故障不影响主流程，由调用方记录日志后降级到数据库
//
// 回填与失效的竞争：
//
//	Get: 读缓存未命中 → 读数据库(旧值) ............................ 回填旧值 ✗
//	Delete:                            删除数据库 → 删除缓存
//
// 每次失效都给该图书写入一个新的随机版本号，Get未命中时记下当时的版本号，
// 回填时用WATCH/MULTI确认版本号没有变化才写入，否则放弃回填
//
// 只缓存详情，不缓存列表和搜索：
// 列表结果随任意一次写入变化，按前缀批量失效的代价高于直接查库
type BookCache struct {
	client    *redis.Client
	detailTTL time.Duration
	breaker   *circuitbreaker.Breaker // 可选
}

// versionTTL 版本号的保留时间，远大于一次Get从读版本号到回填的耗时
const versionTTL = 24 * time.Hour

// errStaleFill 回填前版本号已变化
var errStaleFill = errors.New("缓存版本已变化")

// NewBookCache 创建图书缓存
func NewBookCache(client *redis.Client, detailTTL time.Duration) *BookCache {
	return &BookCache{
		client:    client,
		detailTTL: detailTTL,
	}
}

// WithBreaker 为缓存调用加上熔断保护
// Redis宕机时熔断器打开,后续调用立即返回错误,调用方直接降级查库
func (c *BookCache) WithBreaker(b *circuitbreaker.Breaker) *BookCache {
	c.breaker = b
	return c
}

// cachedBook 缓存中的JSON结构
// 与领域实体分开定义，实体不需要关心序列化
type cachedBook struct {
	ID        uint      `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Year      *int      `json:"year"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Get 获取图书详情缓存
// 未命中返回(nil, version, nil)，version交给之后的Set做回填检查
// 详情和版本号用一次MGET读取
func (c *BookCache) Get(ctx context.Context, id uint) (*book.Book, string, error) {
	var (
		cached  *book.Book
		version string
	)
	err := c.guard(func() error {
		vals, err := c.client.MGet(ctx, detailKey(id), versionKey(id)).Result()
		if err != nil {
			return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "获取缓存失败")
		}

		version, _ = vals[1].(string)
		val, ok := vals[0].(string)
		if !ok {
			return nil
		}
		cached, err = decodeBook([]byte(val))
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return cached, version, nil
}

// Set 回填图书详情缓存
// 只有版本号仍等于Get时读到的version才写入；期间发生过失效则放弃，不算错误
func (c *BookCache) Set(ctx context.Context, b *book.Book, version string) error {
	val, err := encodeBook(b)
	if err != nil {
		return err
	}

	return c.guard(func() error {
		err := c.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, versionKey(b.ID)).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != version {
				return errStaleFill
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, detailKey(b.ID), val, c.detailTTL)
				return nil
			})
			return err
		}, versionKey(b.ID))

		switch {
		case err == nil, errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
			// TxFailedErr: EXEC前版本号被修改
			return nil
		default:
			return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "设置缓存失败")
		}
	})
}

// Delete 使图书详情缓存失效
// 在同一个MULTI中写入新版本号并删除详情，进行中的回填会因版本号变化而放弃
// key不存在不是错误
func (c *BookCache) Delete(ctx context.Context, id uint) error {
	return c.guard(func() error {
		_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, versionKey(id), uuid.NewString(), versionTTL)
			pipe.Del(ctx, detailKey(id))
			return nil
		})
		if err != nil {
			return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "删除缓存失败")
		}
		return nil
	})
}

func (c *BookCache) guard(fn func() error) error {
	if c.breaker == nil {
		return fn()
	}

	err := c.breaker.Do(fn)
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "缓存服务熔断中")
	}
	return err
}

// detailKey 生成图书详情缓存key
// 格式：catalog:book:{id}
func detailKey(id uint) string {
	return fmt.Sprintf("catalog:book:%d", id)
}

// versionKey 图书缓存版本号key
// 格式：catalog:book:{id}:version
func versionKey(id uint) string {
	return detailKey(id) + ":version"
}

func encodeBook(b *book.Book) ([]byte, error) {
	val, err := json.Marshal(cachedBook{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Year:      b.Year,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	})
	if err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "序列化缓存失败")
	}
	return val, nil
}

func decodeBook(val []byte) (*book.Book, error) {
	var cb cachedBook
	if err := json.Unmarshal(val, &cb); err != nil {
		return nil, apperrors.WrapCode(err, apperrors.ErrCodeRedisError, "反序列化缓存失败")
	}
	return &book.Book{
		ID:        cb.ID,
		Title:     cb.Title,
		Author:    cb.Author,
		Year:      cb.Year,
		CreatedAt: cb.CreatedAt,
		UpdatedAt: cb.UpdatedAt,
	}, nil
}
