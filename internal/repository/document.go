package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/user/filmdiary/internal/logging"
	"github.com/user/filmdiary/internal/model"
)

// ErrCorruptDocument 存储中的文档无法解析
var ErrCorruptDocument = errors.New("repository: stored document is corrupt")

// CorruptSuffix 损坏文档的备份键后缀
const CorruptSuffix = ".corrupt"

// DocumentRepository 用户文档仓库，整份文档存放在一个键下
type DocumentRepository struct {
	storage Storage
	key     string
}

// NewDocumentRepository 创建文档仓库
func NewDocumentRepository(storage Storage, key string) *DocumentRepository {
	return &DocumentRepository{storage: storage, key: key}
}

// Key 存储键
func (r *DocumentRepository) Key() string {
	return r.key
}

// Load 读取文档
// 键不存在（或值为空）返回 ErrKeyNotFound；内容无法解析时先把原始内容备份到
// <key>.corrupt，再返回 ErrCorruptDocument；其他错误表示存储暂不可读。
func (r *DocumentRepository) Load(ctx context.Context) (*model.UserDocument, error) {
	raw, err := r.storage.Get(ctx, r.key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("读取 %s 失败: %w", r.key, err)
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrKeyNotFound
	}

	doc, err := Decode(trimmed)
	if err != nil {
		if backupErr := r.storage.Set(ctx, r.key+CorruptSuffix, raw); backupErr != nil {
			log := logging.Component("repository")
			log.Error().Err(backupErr).Str("key", r.key).Msg("备份损坏文档失败")
		}
		return nil, fmt.Errorf("%w: %v", ErrCorruptDocument, err)
	}
	return doc, nil
}

// Save 整份写回
func (r *DocumentRepository) Save(ctx context.Context, doc *model.UserDocument) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return r.storage.Set(ctx, r.key, data)
}

// Decode 解析文档 JSON（兼容旧版片单格式）
func Decode(data []byte) (*model.UserDocument, error) {
	var doc model.UserDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Encode 序列化文档
func Encode(doc *model.UserDocument) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("序列化文档失败: %w", err)
	}
	return data, nil
}
