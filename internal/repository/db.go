package repository

import (
	"fmt"
	"path/filepath"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 单用户应用，连接池保持很小
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)

	if err := db.AutoMigrate(&StoredDocument{}); err != nil {
		return nil, fmt.Errorf("迁移 user_documents 失败: %w", err)
	}

	return db, nil
}

// OpenStorage 按配置的后端名称打开存储
func OpenStorage(backend, dataDir, databaseURL string) (Storage, error) {
	switch backend {
	case "", "badger":
		return OpenBadger(filepath.Join(dataDir, "badger"))
	case "postgres":
		db, err := InitDB(databaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresStorage(db), nil
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("未知的存储后端: %s", backend)
	}
}

// Repositories 仓库集合
type Repositories struct {
	Storage  Storage
	Document *DocumentRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(storage Storage, key string) *Repositories {
	return &Repositories{
		Storage:  storage,
		Document: NewDocumentRepository(storage, key),
	}
}

// Close 关闭底层存储
func (r *Repositories) Close() error {
	return r.Storage.Close()
}
