package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
)

func ValidateScheduleDate(date string) error {
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return fmt.Errorf("日期 %s 的格式错误，应为 YYYY-MM-DD", date)
	}
	return nil
}

func ValidateAssignment(a *domain.Assignment) error {
	if a.ID == "" {
		return errors.New("排班记录缺少 assignmentId")
	}

	switch a.Type {
	case domain.AssignmentTimeOff:
		return nil
	case domain.AssignmentShift:
		// 班次要么引用一个班次模板，要么带自定义时间和角色
		if a.ShiftTemplateID != "" {
			return nil
		}

		startTime, err := time.Parse("15:04", a.CustomStartTime)
		if err != nil {
			return errors.New("自定义班次的开始时间格式错误")
		}
		endTime, err := time.Parse("15:04", a.CustomEndTime)
		if err != nil {
			return errors.New("自定义班次的结束时间格式错误")
		}
		if endTime.Before(startTime) {
			return errors.New("自定义班次的结束时间不能小于开始时间")
		}
		if a.RoleID == "" {
			return errors.New("自定义班次缺少角色")
		}
		return nil
	default:
		return fmt.Errorf("未知的排班类型 %s", a.Type)
	}
}
