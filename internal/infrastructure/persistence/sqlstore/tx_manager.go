package sqlstore

import (
	"context"

	"gorm.io/gorm"
)

// txKey context中事务DB的key
// 使用私有类型，避免与其他包的context key冲突
type txKey struct{}

// TxManager 事务管理器
// 教学要点:
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. 支持嵌套事务(GORM自动使用Savepoint)
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
// fn返回error时自动ROLLBACK,返回nil时自动COMMIT
//
// 使用示例(创建前的重复检查):
//
//	err := txManager.Transaction(ctx, func(ctx context.Context) error {
//	    existing, err := bookRepo.FindByTriple(ctx, title, author, year)
//	    if err != nil {
//	        return err
//	    }
//	    if existing != nil {
//	        return book.ErrBookDuplicate // 自动回滚
//	    }
//	    return bookRepo.Create(ctx, b) // nil则提交
//	})
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	db := getDB(ctx, m.db)
	return db.Transaction(func(tx *gorm.DB) error {
		// 将事务DB注入到Context中
		// Repository的getDB方法会从context提取事务DB
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// getDB 从context中提取事务DB,没有事务时使用默认DB
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}

// inTx 判断当前context是否处于事务中
func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}
