package sqlstore

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xiebiao/bookcatalog/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架，按配置选择MySQL/PostgreSQL/SQLite驱动
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. log_sql开启时打印SQL
// 4. 自动迁移表结构（AutoMigrate）
// 返回的cleanup用于关闭连接池（配合wire的清理函数）
func NewDB(cfg *config.Config, log *zap.Logger) (*gorm.DB, func(), error) {
	dbCfg := cfg.Database

	// 1. 选择驱动
	dialector, err := openDialector(dbCfg)
	if err != nil {
		return nil, nil, err
	}

	// 2. 配置GORM日志
	logLevel := logger.Silent
	if dbCfg.LogSQL {
		logLevel = logger.Info
	}

	// 3. 连接数据库
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			// 统一截断到微秒（PostgreSQL/MySQL datetime(6)的精度）
			return time.Now().Truncate(time.Microsecond)
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	// 4. 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}

	maxOpen := dbCfg.MaxOpenConns
	if dbCfg.Driver == config.DriverSQLite {
		// SQLite同一时刻只允许一个写入者，单连接可以避免SQLITE_BUSY
		maxOpen = 1
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(dbCfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)

	// 5. 测试连接
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	log.Info("数据库连接成功",
		zap.String("driver", dbCfg.Driver),
		zap.String("target", dbCfg.Target()),
	)

	// 6. 自动迁移表结构
	if err := autoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	cleanup := func() {
		if err := sqlDB.Close(); err != nil {
			log.Warn("关闭数据库连接失败", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

func openDialector(dbCfg config.DatabaseConfig) (gorm.Dialector, error) {
	switch dbCfg.Driver {
	case config.DriverMySQL:
		return mysql.Open(dbCfg.DSN()), nil
	case config.DriverPostgres:
		return postgres.Open(dbCfg.DSN()), nil
	case config.DriverSQLite:
		return sqlite.Open(dbCfg.DSN()), nil
	default:
		return nil, fmt.Errorf("驱动 %q 不是SQL数据库", dbCfg.Driver)
	}
}

// autoMigrate 自动迁移表结构
// 学习要点：AutoMigrate只会创建表、添加字段和索引，不会删除或修改现有字段
func autoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&BookModel{})
}

// BookModel GORM图书模型
// 设计说明:
// 1. 这是infrastructure层的数据模型，domain/book/entity.go不依赖GORM
// 2. 物理删除，不使用gorm.DeletedAt
// 3. 书名和作者不限长度，使用TEXT
// 4. 重复检查走triple_hash索引（MySQL下FOR UPDATE会锁住该索引区间），命中后再比较原值
// 5. 显式autoIncrement：SQLite会生成AUTOINCREMENT，保证删除后ID不复用
type BookModel struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	Title      string    `gorm:"type:text;not null;comment:书名"`
	Author     string    `gorm:"type:text;not null;comment:作者"`
	Year       *int      `gorm:"comment:出版年份"`
	TripleHash string    `gorm:"size:64;not null;index:idx_books_triple;comment:(书名,作者,年份)摘要"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (BookModel) TableName() string {
	return "books"
}
