package syncer

import (
	"context"
	"log/slog"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/localcache"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/remote"
)

// Listener 订阅远程变更通知，把其他客户端的写入合并进内存和本地缓存。
// 自己发出的写入产生的通知（回声）直接忽略，否则乐观写入会被
// 监听器重复应用一遍，引起多余的重新渲染。
type Listener struct {
	engine *Engine
	cancel func()
}

func NewListener(engine *Engine) *Listener {
	return &Listener{engine: engine}
}

// Start 建立订阅，在认证会话开始时调用一次
func (l *Listener) Start(ctx context.Context) error {
	cancel, err := l.engine.remote.Subscribe(ctx, func(change remote.Change) {
		l.handle(ctx, change)
	})
	if err != nil {
		return err
	}
	l.cancel = cancel
	return nil
}

// Stop 注销全部订阅，登出或进程退出时调用
func (l *Listener) Stop() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

func (l *Listener) handle(ctx context.Context, change remote.Change) {
	if change.Origin == l.engine.clientID {
		// 回声抑制：这条通知来自本客户端尚未确认的写入
		slog.Debug("忽略自身写入的回声", "collection", change.Collection)
		return
	}

	e := l.engine
	switch change.Collection {
	case domain.CollectionAssignments:
		docs, err := e.remote.LoadCollection(ctx, domain.CollectionAssignments)
		if err != nil {
			slog.Error("无法拉取远程排班表", "error", err)
			return
		}
		sheets, err := decodeSheets(docs)
		if err != nil {
			slog.Error("无法解析远程排班表", "error", err)
			return
		}
		e.store.ReplaceSheets(sheets)
		e.persistSheets(ctx)
	case domain.CollectionSettings:
		docs, err := e.remote.LoadCollection(ctx, domain.CollectionSettings)
		if err != nil {
			slog.Error("无法拉取远程设置", "error", err)
			return
		}
		for _, doc := range docs {
			if doc.Key != localcache.KeySettings {
				continue
			}
			settings, err := decodeSettings(doc.Data)
			if err != nil {
				slog.Error("无法解析远程设置", "error", err)
				return
			}
			e.store.ReplaceSettings(settings)
			e.persistSettings(ctx)
		}
	default:
		if !domain.IsSyncableCollection(change.Collection) {
			slog.Warn("收到未知集合的变更通知", "collection", change.Collection)
			return
		}
		docs, err := e.remote.LoadCollection(ctx, change.Collection)
		if err != nil {
			slog.Error("无法拉取远程集合", "collection", change.Collection, "error", err)
			return
		}
		items, err := decodeItems(docs)
		if err != nil {
			slog.Error("无法解析远程集合", "collection", change.Collection, "error", err)
			return
		}
		e.store.ReplaceCollection(change.Collection, items)
		e.persistCollection(ctx, change.Collection)
	}
}
