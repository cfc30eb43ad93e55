package syncer

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/localcache"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/remote"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
)

// Engine 把内存里的改动防抖、分块、批量地提交到远程存储。
// UI 入口（命令和表单保存）只调用 CollectionChanged / SheetsChanged，
// 真正的远程写入发生在防抖窗口结束后的 Flush 里。
type Engine struct {
	cfg    *config.Config
	store  *store.Store
	cache  localcache.Cache
	remote remote.Store
	dirty  *DirtyTracker
	sched  *FlushScheduler

	// clientID 标识本客户端发出的远程写入，监听器用它识别回声
	clientID string
}

func NewEngine(cfg *config.Config, st *store.Store, cache localcache.Cache, rs remote.Store) *Engine {
	e := &Engine{
		cfg:      cfg,
		store:    st,
		cache:    cache,
		remote:   rs,
		dirty:    NewDirtyTracker(),
		clientID: uuid.NewString(),
	}
	e.sched = NewFlushScheduler(time.Duration(cfg.Sync.DebounceMs)*time.Millisecond, func() {
		e.Flush(context.Background())
	})
	return e
}

func (e *Engine) ClientID() string {
	return e.clientID
}

func (e *Engine) Scheduler() *FlushScheduler {
	return e.sched
}

/**********************************************
 * 变更入口
 **********************************************/

// CollectionChanged 在某个普通集合被本地修改后调用：
// 立即持久化到本地缓存，标脏并重新开始防抖计时
func (e *Engine) CollectionChanged(name string) {
	e.persistCollection(context.Background(), name)
	e.dirty.MarkCollection(name)
	e.sched.Arm()
}

// SheetsChanged 在排班文档被本地修改后调用（命令的 execute 和 undo 都走这里）
func (e *Engine) SheetsChanged(keys ...string) {
	if len(keys) == 0 {
		return
	}
	e.persistSheets(context.Background())
	for _, key := range keys {
		e.dirty.MarkSheet(key)
	}
	e.sched.Arm()
}

// SettingsChanged 在设置被本地修改后调用
func (e *Engine) SettingsChanged() {
	e.persistSettings(context.Background())
	e.dirty.MarkCollection(domain.CollectionSettings)
	e.sched.Arm()
}

// DeleteItemRemote 显式删除远程的一条集合记录。
// 普通集合的刷新路径只做全量覆盖、从不删除远程文档，
// 本地删除必须通过这里显式传播。
func (e *Engine) DeleteItemRemote(ctx context.Context, collection string, id string) error {
	return e.remote.DeleteDocument(ctx, collection, id, e.clientID)
}

/**********************************************
 * 刷新
 **********************************************/

// Flush 把当前所有脏键提交到远程存储。
// 每个集合的失败单独记录日志，不影响其余集合的刷新。
func (e *Engine) Flush(ctx context.Context) {
	for _, name := range e.dirty.TakeCollections() {
		var err error
		switch name {
		case domain.CollectionAssignments:
			err = e.flushSheets(ctx)
		case domain.CollectionSettings:
			err = e.flushSettings(ctx)
		default:
			err = e.flushCollection(ctx, name)
		}
		if err != nil {
			slog.Error("远程提交失败", "collection", name, "error", err)
		}
	}
}

// flushSheets 提交脏的排班文档：取出脏键快照，按批量上限分块，
// 每块一次原子提交；内存里有班次的键写入，没有的键删除。
// 任何一步失败都把尚未提交的键重新标脏并重新计时，
// 等下一个防抖窗口重试，脏键绝不随错误一起丢掉。
func (e *Engine) flushSheets(ctx context.Context) error {
	keys := e.dirty.TakeSheetKeys()
	if len(keys) == 0 {
		return nil
	}

	for start := 0; start < len(keys); start += e.cfg.Sync.BatchLimit {
		end := min(start+e.cfg.Sync.BatchLimit, len(keys))
		chunk := keys[start:end]

		ops := make([]remote.BatchOp, 0, len(chunk))
		for _, key := range chunk {
			shifts, ok := e.store.SheetShifts(key)
			if !ok || len(shifts) == 0 {
				ops = append(ops, remote.BatchOp{Key: key, Delete: true})
				continue
			}
			data, err := json.Marshal(domain.DaySheet{Shifts: shifts})
			if err != nil {
				return e.requeueSheets(keys[start:], err)
			}
			ops = append(ops, remote.BatchOp{Key: key, Data: data})
		}

		if err := e.remote.CommitBatch(ctx, domain.CollectionAssignments, ops, e.clientID); err != nil {
			return e.requeueSheets(keys[start:], err)
		}
	}

	return nil
}

// requeueSheets 把未提交的键重新标脏并重新开始防抖计时
func (e *Engine) requeueSheets(keys []string, err error) error {
	for _, key := range keys {
		e.dirty.MarkSheet(key)
	}
	e.sched.Arm()
	return err
}

// flushCollection 全量覆盖写入一个普通集合的所有记录，按 id 作为文档键。
// 这条路径从不删除远程文档，远程删除由 DeleteItemRemote 显式完成。
func (e *Engine) flushCollection(ctx context.Context, name string) error {
	items, ok := e.store.Items(name)
	if !ok {
		return nil
	}

	ops := make([]remote.BatchOp, 0, len(items))
	for _, item := range items {
		if item.ID() == "" {
			continue
		}
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}
		ops = append(ops, remote.BatchOp{Key: item.ID(), Data: data})
	}

	for start := 0; start < len(ops); start += e.cfg.Sync.BatchLimit {
		end := min(start+e.cfg.Sync.BatchLimit, len(ops))
		if err := e.remote.CommitBatch(ctx, name, ops[start:end], e.clientID); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) flushSettings(ctx context.Context) error {
	data, err := json.Marshal(e.store.Settings())
	if err != nil {
		return err
	}
	return e.remote.MergeDocument(ctx, domain.CollectionSettings, localcache.KeySettings, data, e.clientID)
}

/**********************************************
 * 本地缓存
 **********************************************/

func (e *Engine) persistCollection(ctx context.Context, name string) {
	items, ok := e.store.Items(name)
	if !ok {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		slog.Error("无法序列化集合", "collection", name, "error", err)
		return
	}
	if err := e.cache.Set(ctx, name, data); err != nil {
		slog.Error("无法写入本地缓存", "key", name, "error", err)
	}
}

func (e *Engine) persistSheets(ctx context.Context) {
	data, err := json.Marshal(e.store.SheetSnapshot())
	if err != nil {
		slog.Error("无法序列化排班表", "error", err)
		return
	}
	if err := e.cache.Set(ctx, localcache.KeyAssignments, data); err != nil {
		slog.Error("无法写入本地缓存", "key", localcache.KeyAssignments, "error", err)
	}
}

func (e *Engine) persistSettings(ctx context.Context) {
	data, err := json.Marshal(e.store.Settings())
	if err != nil {
		slog.Error("无法序列化设置", "error", err)
		return
	}
	if err := e.cache.Set(ctx, localcache.KeySettings, data); err != nil {
		slog.Error("无法写入本地缓存", "key", localcache.KeySettings, "error", err)
	}
}

/**********************************************
 * 启动加载
 **********************************************/

// LoadFromCache 从本地缓存恢复数据，远程数据到达前 UI 就能先渲染。
// 缓存缺失或者内容损坏时退回空数据，绝不报错。
func (e *Engine) LoadFromCache(ctx context.Context) {
	for _, name := range domain.SyncableCollections {
		data, err := e.cache.Get(ctx, name)
		if err != nil || len(data) == 0 {
			continue
		}
		var items []domain.Item
		if err := json.Unmarshal(data, &items); err != nil {
			slog.Warn("本地缓存内容损坏，回退为空集合", "collection", name, "error", err)
			continue
		}
		e.store.ReplaceCollection(name, items)
	}

	if data, err := e.cache.Get(ctx, localcache.KeyAssignments); err == nil && len(data) > 0 {
		var sheets map[string]*domain.DaySheet
		if err := json.Unmarshal(data, &sheets); err != nil {
			slog.Warn("本地缓存内容损坏，回退为空排班表", "error", err)
		} else {
			e.store.ReplaceSheets(sheets)
		}
	}

	if data, err := e.cache.Get(ctx, localcache.KeySettings); err == nil && len(data) > 0 {
		var settings domain.Settings
		if err := json.Unmarshal(data, &settings); err != nil {
			slog.Warn("本地缓存内容损坏，回退为空设置", "error", err)
		} else {
			e.store.ReplaceSettings(settings)
		}
	}
}

// Hydrate 从远程存储拉取全量数据覆盖内存和本地缓存（会话开始时调用）
func (e *Engine) Hydrate(ctx context.Context) error {
	for _, name := range domain.SyncableCollections {
		docs, err := e.remote.LoadCollection(ctx, name)
		if err != nil {
			return err
		}
		items, err := decodeItems(docs)
		if err != nil {
			return err
		}
		e.store.ReplaceCollection(name, items)
		e.persistCollection(ctx, name)
	}

	docs, err := e.remote.LoadCollection(ctx, domain.CollectionAssignments)
	if err != nil {
		return err
	}
	sheets, err := decodeSheets(docs)
	if err != nil {
		return err
	}
	e.store.ReplaceSheets(sheets)
	e.persistSheets(ctx)

	settingsDocs, err := e.remote.LoadCollection(ctx, domain.CollectionSettings)
	if err != nil {
		return err
	}
	for _, doc := range settingsDocs {
		if doc.Key != localcache.KeySettings {
			continue
		}
		var settings domain.Settings
		if err := json.Unmarshal(doc.Data, &settings); err != nil {
			return err
		}
		e.store.ReplaceSettings(settings)
		e.persistSettings(ctx)
	}

	return nil
}

func decodeItems(docs []remote.Document) ([]domain.Item, error) {
	items := make([]domain.Item, 0, len(docs))
	for _, doc := range docs {
		var item domain.Item
		if err := json.Unmarshal(doc.Data, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeSettings(data []byte) (domain.Settings, error) {
	settings := make(domain.Settings)
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func decodeSheets(docs []remote.Document) (map[string]*domain.DaySheet, error) {
	sheets := make(map[string]*domain.DaySheet, len(docs))
	for _, doc := range docs {
		sheet := &domain.DaySheet{}
		if err := json.Unmarshal(doc.Data, sheet); err != nil {
			return nil, err
		}
		sheets[doc.Key] = sheet
	}
	return sheets, nil
}
