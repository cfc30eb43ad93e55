package syncer

import (
	"sync"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
)

// DirtyTracker 记录自上次成功写入远程之后改动过的集合名和排班文档键。
// 快照必须整组地取出并清空，刷新过程中新到的脏键会留给下一次刷新。
type DirtyTracker struct {
	mu          sync.Mutex
	collections map[string]struct{}
	sheetKeys   map[string]struct{}
}

func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{
		collections: make(map[string]struct{}),
		sheetKeys:   make(map[string]struct{}),
	}
}

func (t *DirtyTracker) MarkCollection(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.collections[name] = struct{}{}
}

// MarkSheet 记录单个排班文档键，同时把排班集合整体标脏，
// 这样刷新循环才会进入排班路径。
func (t *DirtyTracker) MarkSheet(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sheetKeys[key] = struct{}{}
	t.collections[domain.CollectionAssignments] = struct{}{}
}

// TakeCollections 取出并清空脏集合名
func (t *DirtyTracker) TakeCollections() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.collections))
	for name := range t.collections {
		names = append(names, name)
	}
	t.collections = make(map[string]struct{})
	return names
}

// TakeSheetKeys 取出并清空脏排班文档键
func (t *DirtyTracker) TakeSheetKeys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := make([]string, 0, len(t.sheetKeys))
	for key := range t.sheetKeys {
		keys = append(keys, key)
	}
	t.sheetKeys = make(map[string]struct{})
	return keys
}

func (t *DirtyTracker) HasDirty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.collections) > 0 || len(t.sheetKeys) > 0
}
