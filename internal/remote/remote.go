package remote

import (
	"context"
	"encoding/json"
)

// Document 是远程存储中的一条文档
type Document struct {
	Key  string          `json:"key"`
	Data json.RawMessage `json:"data"`
}

// BatchOp 是一次批量提交中的单个操作：写入或删除一个键
type BatchOp struct {
	Key    string
	Data   json.RawMessage
	Delete bool
}

// Change 是远程变更通知。Origin 是发起写入的客户端 ID，
// 订阅方据此忽略自己写入产生的回声。
type Change struct {
	Collection string `json:"collection"`
	Origin     string `json:"origin"`
}

// Store 是远程文档存储的契约：按集合读写文档、批量原子提交、
// 以及持续的变更订阅。单个批量提交最多约 500 个操作。
type Store interface {
	// LoadCollection 读取一个集合的全部文档
	LoadCollection(ctx context.Context, collection string) ([]Document, error)
	// CommitBatch 以一次原子提交写入一个集合内的一批操作
	CommitBatch(ctx context.Context, collection string, ops []BatchOp, origin string) error
	// MergeDocument 按字段合并写入单个文档（设置单例用）
	MergeDocument(ctx context.Context, collection string, key string, data json.RawMessage, origin string) error
	// DeleteDocument 显式删除单个文档。
	// 普通集合的同步路径从不推断远程删除，删除必须走这里。
	DeleteDocument(ctx context.Context, collection string, key string, origin string) error
	// Subscribe 订阅所有集合的变更通知，返回取消订阅的函数
	Subscribe(ctx context.Context, handler func(Change)) (func(), error)
}
