package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/localcache"
)

/**********************************************
 * 撤销 / 重做
 **********************************************/

// GetHistoryStatus 返回撤销和重做按钮的可用状态
func (h *Handler) GetHistoryStatus(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取成功", map[string]bool{
		"canUndo": h.history.CanUndo(),
		"canRedo": h.history.CanRedo(),
	})
}

func (h *Handler) Undo(w http.ResponseWriter, r *http.Request) {
	if !h.history.Undo() {
		h.errorResponse(w, r, "没有可撤销的操作")
		return
	}
	h.successResponse(w, r, "撤销成功", nil)
}

func (h *Handler) Redo(w http.ResponseWriter, r *http.Request) {
	if !h.history.Redo() {
		h.errorResponse(w, r, "没有可重做的操作")
		return
	}
	h.successResponse(w, r, "重做成功", nil)
}

// ClearHistory 在切换视图时清空历史，避免跨视图撤销造成混乱
func (h *Handler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	h.history.Clear()
	h.successResponse(w, r, "已清空历史", nil)
}

/**********************************************
 * 设置
 **********************************************/

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取成功", h.store.Settings())
}

// UpdateSettings 按字段合并设置并标脏
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.Settings
	if err := h.readJSON(r, &patch); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.store.MergeSettings(patch)
	h.engine.SettingsChanged()

	h.successResponse(w, r, "保存成功", h.store.Settings())
}

/**********************************************
 * UI 状态
 **********************************************/

// UI 状态（如当前视图日期）只进本地缓存，永远不同步到远程
func (h *Handler) GetUIState(w http.ResponseWriter, r *http.Request) {
	data, err := h.cache.Get(r.Context(), localcache.KeyUIState)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if len(data) == 0 {
		h.successResponse(w, r, "获取成功", nil)
		return
	}

	var state map[string]any
	if err := json.Unmarshal(data, &state); err != nil {
		// 缓存内容损坏时当作没有状态，不报错
		h.successResponse(w, r, "获取成功", nil)
		return
	}
	h.successResponse(w, r, "获取成功", state)
}

func (h *Handler) SaveUIState(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var state map[string]any
	if err := json.Unmarshal(body, &state); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.cache.Set(r.Context(), localcache.KeyUIState, body); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "保存成功", nil)
}
