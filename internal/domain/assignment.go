package domain

import "fmt"

type AssignmentType string

const (
	AssignmentShift   AssignmentType = "shift"
	AssignmentTimeOff AssignmentType = "time_off"
)

// Assignment 是撤销/重做的最小单位：某个员工某一天的一条排班或休假记录。
// 命令只会整条替换，不会部分修改其中的字段。
type Assignment struct {
	ID              string         `json:"assignmentId"`
	Type            AssignmentType `json:"type"`
	ShiftTemplateID string         `json:"shiftTemplateId,omitempty"`
	CustomStartTime string         `json:"customStartTime,omitempty"`
	CustomEndTime   string         `json:"customEndTime,omitempty"`
	RoleID          string         `json:"roleId,omitempty"`
}

// DaySheet 是一个员工一天的全部排班。
// 不变量：shifts 为空的 DaySheet 不允许持久化，必须删除整个文档。
type DaySheet struct {
	Shifts []Assignment `json:"shifts"`
}

func (s *DaySheet) Clone() *DaySheet {
	if s == nil {
		return nil
	}
	c := &DaySheet{Shifts: make([]Assignment, len(s.Shifts))}
	copy(c.Shifts, s.Shifts)
	return c
}

// DateLayout 是排班日期的格式（ISO 日期）
const DateLayout = "2006-01-02"

// SheetKey 由员工 ID 和日期确定性地拼出排班文档的键
func SheetKey(entityID string, date string) string {
	return fmt.Sprintf("%s-%s", entityID, date)
}
