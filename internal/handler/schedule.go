package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/history"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/utils"
)

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取成功", h.store.SheetSnapshot())
}

// SaveAssignment 把一次排班写入包装成可撤销的命令。
// oldAssignment 是 UI 在操作时刻看到的旧记录，新增时为空。
func (h *Handler) SaveAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID      string             `json:"entityId" validate:"required"`
		Date          string             `json:"date" validate:"required"`
		Assignment    domain.Assignment  `json:"assignment" validate:"required"`
		OldAssignment *domain.Assignment `json:"oldAssignment"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateScheduleDate(req.Date); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if err := utils.ValidateAssignment(&req.Assignment); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	h.history.Do(history.NewModify(req.EntityID, req.Date, req.Assignment, req.OldAssignment))

	h.successResponse(w, r, "保存成功", req.Assignment)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityID")
	date := chi.URLParam(r, "date")
	assignmentID := chi.URLParam(r, "assignmentID")

	if err := utils.ValidateScheduleDate(date); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	key := domain.SheetKey(entityID, date)
	if shifts, ok := h.store.SheetShifts(key); !ok || indexOf(shifts, assignmentID) < 0 {
		h.errorResponse(w, r, "排班记录不存在")
		return
	}

	h.history.Do(history.NewDelete(entityID, date, assignmentID))

	h.successResponse(w, r, "删除成功", nil)
}

// DragAssignment 对应拖拽：isCopy 为复制，否则为移动
func (h *Handler) DragAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceEntityID string `json:"sourceEntityId" validate:"required"`
		SourceDate     string `json:"sourceDate" validate:"required"`
		TargetEntityID string `json:"targetEntityId" validate:"required"`
		TargetDate     string `json:"targetDate" validate:"required"`
		AssignmentID   string `json:"assignmentId" validate:"required"`
		IsCopy         bool   `json:"isCopy"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateScheduleDate(req.SourceDate); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}
	if err := utils.ValidateScheduleDate(req.TargetDate); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	// 拖拽的参数是源格里的一条现有记录
	sourceKey := domain.SheetKey(req.SourceEntityID, req.SourceDate)
	shifts, ok := h.store.SheetShifts(sourceKey)
	if !ok {
		h.errorResponse(w, r, "排班记录不存在")
		return
	}
	i := indexOf(shifts, req.AssignmentID)
	if i < 0 {
		h.errorResponse(w, r, "排班记录不存在")
		return
	}

	h.history.Do(history.NewDragDrop(
		req.SourceEntityID, req.SourceDate,
		req.TargetEntityID, req.TargetDate,
		shifts[i], req.IsCopy,
	))

	h.successResponse(w, r, "操作成功", nil)
}

func indexOf(shifts []domain.Assignment, id string) int {
	for i := range shifts {
		if shifts[i].ID == id {
			return i
		}
	}
	return -1
}
