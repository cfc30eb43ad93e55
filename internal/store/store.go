package store

import (
	"sort"
	"sync"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
)

// Store 是内存中的唯一数据源：普通集合、排班文档表和设置单例。
// 原始实现靠跨模块共享可变切片来保证所有读者看到同一份数据，
// 这里改成受控的变更方法加订阅通知，外部拿到的都是快照。
type Store struct {
	mu          sync.Mutex
	collections map[string][]domain.Item
	sheets      map[string]*domain.DaySheet
	settings    domain.Settings

	subsMu sync.Mutex
	subs   []func(collection string)
}

func NewStore() *Store {
	s := &Store{
		collections: make(map[string][]domain.Item),
		sheets:      make(map[string]*domain.DaySheet),
		settings:    make(domain.Settings),
	}
	for _, name := range domain.SyncableCollections {
		s.collections[name] = make([]domain.Item, 0)
	}
	return s
}

// Subscribe 注册一个变更通知回调（用于触发 UI 重新渲染）。
// 回调在锁外调用，不允许在回调里再订阅。
func (s *Store) Subscribe(fn func(collection string)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Store) notify(collection string) {
	s.subsMu.Lock()
	subs := make([]func(string), len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(collection)
	}
}

/**********************************************
 * 普通集合
 **********************************************/

// Items 返回集合内容的快照切片，记录本身仍是共享引用。
// 快照按 sortOrder 稳定排序，没有序号的记录保持写入顺序排在一起
func (s *Store) Items(name string) ([]domain.Item, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.collections[name]
	if !ok {
		return nil, false
	}
	snapshot := make([]domain.Item, len(items))
	copy(snapshot, items)
	sort.SliceStable(snapshot, func(i, j int) bool {
		return snapshot[i].SortOrder() < snapshot[j].SortOrder()
	})
	return snapshot, true
}

// UpsertItem 按 id 替换或追加一条记录（表单保存的语义）
func (s *Store) UpsertItem(name string, item domain.Item) bool {
	s.mu.Lock()
	items, ok := s.collections[name]
	if !ok {
		s.mu.Unlock()
		return false
	}

	replaced := false
	for i := range items {
		if items[i].ID() == item.ID() {
			items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		s.collections[name] = append(items, item)
	}
	s.mu.Unlock()

	s.notify(name)
	return true
}

// RemoveItem 按 id 删除一条记录，返回被删除的记录
func (s *Store) RemoveItem(name string, id string) (domain.Item, bool) {
	s.mu.Lock()
	items, ok := s.collections[name]
	if !ok {
		s.mu.Unlock()
		return nil, false
	}

	for i := range items {
		if items[i].ID() == id {
			removed := items[i]
			s.collections[name] = append(items[:i], items[i+1:]...)
			s.mu.Unlock()
			s.notify(name)
			return removed, true
		}
	}
	s.mu.Unlock()
	return nil, false
}

// ReplaceCollection 用远程数据整体覆盖一个集合（监听器合并路径）
func (s *Store) ReplaceCollection(name string, items []domain.Item) bool {
	s.mu.Lock()
	if _, ok := s.collections[name]; !ok {
		s.mu.Unlock()
		return false
	}
	s.collections[name] = items
	s.mu.Unlock()

	s.notify(name)
	return true
}

/**********************************************
 * 排班文档
 **********************************************/

// SheetShifts 返回某个排班文档的 shifts 副本，文档不存在时返回 false
func (s *Store) SheetShifts(key string) ([]domain.Assignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet, ok := s.sheets[key]
	if !ok {
		return nil, false
	}
	shifts := make([]domain.Assignment, len(sheet.Shifts))
	copy(shifts, sheet.Shifts)
	return shifts, true
}

// PutSheet 写入某个排班文档。shifts 为空时删除整个文档，
// 保证空文档永远不会存在于排班表中。
func (s *Store) PutSheet(key string, shifts []domain.Assignment) {
	s.mu.Lock()
	if len(shifts) == 0 {
		delete(s.sheets, key)
	} else {
		owned := make([]domain.Assignment, len(shifts))
		copy(owned, shifts)
		s.sheets[key] = &domain.DaySheet{Shifts: owned}
	}
	s.mu.Unlock()

	s.notify(domain.CollectionAssignments)
}

func (s *Store) HasSheet(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sheets[key]
	return ok
}

// SheetSnapshot 返回整个排班表的深拷贝（持久化和测试用）
func (s *Store) SheetSnapshot() map[string]*domain.DaySheet {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]*domain.DaySheet, len(s.sheets))
	for key, sheet := range s.sheets {
		snapshot[key] = sheet.Clone()
	}
	return snapshot
}

// ReplaceSheets 用远程数据整体覆盖排班表
func (s *Store) ReplaceSheets(sheets map[string]*domain.DaySheet) {
	s.mu.Lock()
	s.sheets = make(map[string]*domain.DaySheet, len(sheets))
	for key, sheet := range sheets {
		if sheet == nil || len(sheet.Shifts) == 0 {
			// 远程数据里混入的空文档不进入内存
			continue
		}
		s.sheets[key] = sheet.Clone()
	}
	s.mu.Unlock()

	s.notify(domain.CollectionAssignments)
}

/**********************************************
 * 设置单例
 **********************************************/

func (s *Store) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(domain.Settings, len(s.settings))
	for k, v := range s.settings {
		snapshot[k] = v
	}
	return snapshot
}

// MergeSettings 按字段合并设置（与远程侧的合并写入语义一致）
func (s *Store) MergeSettings(patch domain.Settings) {
	s.mu.Lock()
	for k, v := range patch {
		s.settings[k] = v
	}
	s.mu.Unlock()

	s.notify(domain.CollectionSettings)
}

func (s *Store) ReplaceSettings(settings domain.Settings) {
	s.mu.Lock()
	s.settings = make(domain.Settings, len(settings))
	for k, v := range settings {
		s.settings[k] = v
	}
	s.mu.Unlock()

	s.notify(domain.CollectionSettings)
}
