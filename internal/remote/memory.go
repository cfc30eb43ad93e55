package remote

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore 是远程存储的内存实现，测试中作为替身使用。
// 变更通知在提交的同一个调用栈里同步派发，便于断言回声抑制。
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]json.RawMessage
	subscribers []func(Change)

	// Commits 按提交顺序记录每个批量提交（集合名和操作列表）
	Commits []RecordedCommit
	// FailCollections 里的集合在提交时返回对应的错误（测试错误隔离用）
	FailCollections map[string]error
}

type RecordedCommit struct {
	Collection string
	Ops        []BatchOp
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections:     make(map[string]map[string]json.RawMessage),
		FailCollections: make(map[string]error),
	}
}

func (s *MemoryStore) LoadCollection(_ context.Context, collection string) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := make([]Document, 0, len(s.collections[collection]))
	for key, data := range s.collections[collection] {
		docs = append(docs, Document{Key: key, Data: data})
	}
	return docs, nil
}

func (s *MemoryStore) CommitBatch(_ context.Context, collection string, ops []BatchOp, origin string) error {
	s.mu.Lock()
	if err := s.FailCollections[collection]; err != nil {
		s.mu.Unlock()
		return err
	}

	s.Commits = append(s.Commits, RecordedCommit{Collection: collection, Ops: ops})

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		s.collections[collection] = docs
	}
	for _, op := range ops {
		if op.Delete {
			delete(docs, op.Key)
			continue
		}
		docs[op.Key] = op.Data
	}
	s.mu.Unlock()

	s.dispatch(Change{Collection: collection, Origin: origin})
	return nil
}

func (s *MemoryStore) MergeDocument(_ context.Context, collection string, key string, data json.RawMessage, origin string) error {
	s.mu.Lock()
	if err := s.FailCollections[collection]; err != nil {
		s.mu.Unlock()
		return err
	}

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		s.collections[collection] = docs
	}

	merged := make(map[string]any)
	if old, ok := docs[key]; ok {
		_ = json.Unmarshal(old, &merged)
	}
	patch := make(map[string]any)
	if err := json.Unmarshal(data, &patch); err != nil {
		s.mu.Unlock()
		return err
	}
	for k, v := range patch {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	docs[key] = out
	s.mu.Unlock()

	s.dispatch(Change{Collection: collection, Origin: origin})
	return nil
}

func (s *MemoryStore) DeleteDocument(_ context.Context, collection string, key string, origin string) error {
	s.mu.Lock()
	if docs, ok := s.collections[collection]; ok {
		delete(docs, key)
	}
	s.mu.Unlock()

	s.dispatch(Change{Collection: collection, Origin: origin})
	return nil
}

func (s *MemoryStore) Subscribe(_ context.Context, handler func(Change)) (func(), error) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, handler)
	index := len(s.subscribers) - 1
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.subscribers[index] = nil
		s.mu.Unlock()
	}, nil
}

// Document 返回某个文档的当前内容（测试断言用）
func (s *MemoryStore) Document(collection string, key string) (json.RawMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.collections[collection][key]
	return data, ok
}

func (s *MemoryStore) dispatch(change Change) {
	s.mu.Lock()
	subs := make([]func(Change), len(s.subscribers))
	copy(subs, s.subscribers)
	s.mu.Unlock()

	for _, fn := range subs {
		if fn != nil {
			fn(change)
		}
	}
}
