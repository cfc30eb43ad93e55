package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
)

func (h *Handler) GetCollection(w http.ResponseWriter, r *http.Request) {
	name := r.Context().Value(CollectionCtxKey).(string)

	items, ok := h.store.Items(name)
	if !ok {
		h.errorResponse(w, r, "集合不存在")
		return
	}

	h.successResponse(w, r, "获取成功", items)
}

// SaveCollectionItem 对应表单保存：按 id 新增或整条覆盖一条记录。
// 记录进入内存后立即可见（乐观更新），远程写入由同步引擎异步完成。
func (h *Handler) SaveCollectionItem(w http.ResponseWriter, r *http.Request) {
	name := r.Context().Value(CollectionCtxKey).(string)

	var item domain.Item
	if err := h.readJSON(r, &item); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if item.ID() == "" {
		h.errorResponse(w, r, "记录缺少 id")
		return
	}

	if !h.store.UpsertItem(name, item) {
		h.errorResponse(w, r, "集合不存在")
		return
	}
	h.engine.CollectionChanged(name)

	h.successResponse(w, r, "保存成功", item)
}

// DeleteCollectionItem 删除一条记录。
// 远程侧的删除不会由集合刷新路径推断出来，这里显式调用删除
func (h *Handler) DeleteCollectionItem(w http.ResponseWriter, r *http.Request) {
	name := r.Context().Value(CollectionCtxKey).(string)
	id := chi.URLParam(r, "id")

	removed, ok := h.store.RemoveItem(name, id)
	if !ok {
		h.errorResponse(w, r, "记录不存在")
		return
	}
	h.engine.CollectionChanged(name)

	if err := h.engine.DeleteItemRemote(r.Context(), name, id); err != nil {
		// 远程删除失败不回滚本地状态（乐观策略），只记录日志
		h.logInternalServerError(r, err)
	}

	h.successResponse(w, r, "删除成功", removed)
}
