package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/remote"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/utils"
)

// 演示用的基础数据：部门、角色和常用班次模板
var departments = []domain.Item{
	{"id": "dept-front", "name": "前台", "sortOrder": 1},
	{"id": "dept-kitchen", "name": "后厨", "sortOrder": 2},
	{"id": "dept-service", "name": "客服", "sortOrder": 3},
}

var roles = []domain.Item{
	{"id": "role-manager", "name": "值班经理", "sortOrder": 1},
	{"id": "role-staff", "name": "普通员工", "sortOrder": 2},
	{"id": "role-trainee", "name": "实习生", "sortOrder": 3},
}

var shiftTemplates = []domain.Item{
	{"id": "tpl-morning", "name": "早班", "startTime": "09:00", "endTime": "13:00", "sortOrder": 1},
	{"id": "tpl-afternoon", "name": "午班", "startTime": "13:00", "endTime": "18:00", "sortOrder": 2},
	{"id": "tpl-evening", "name": "晚班", "startTime": "18:00", "endTime": "22:00", "sortOrder": 3},
}

// GenerateRandomEmployee 生成一个随机员工记录，用户名由随机中文姓名转拼音得到
func GenerateRandomEmployee(sortOrder int) domain.Item {
	fullName := utils.GenerateRandomChineseName()
	username := utils.GenerateUsernameFromChineseName(fullName)

	return domain.Item{
		"id":           "emp-" + utils.GenerateRandomID(4, 4),
		"username":     username,
		"fullName":     fullName,
		"departmentId": departments[rand.Intn(len(departments))].ID(),
		"roleId":       roles[rand.Intn(len(roles))].ID(),
		"sortOrder":    sortOrder,
	}
}

// Seed 把演示数据写入远程存储
func Seed(ctx context.Context, rs remote.Store, employeeCount int) error {
	collections := map[string][]domain.Item{
		domain.CollectionDepartments:    departments,
		domain.CollectionRoles:          roles,
		domain.CollectionShiftTemplates: shiftTemplates,
	}

	employees := make([]domain.Item, 0, employeeCount)
	for i := 0; i < employeeCount; i++ {
		employees = append(employees, GenerateRandomEmployee(i+1))
	}
	collections[domain.CollectionUsers] = employees

	for name, items := range collections {
		ops := make([]remote.BatchOp, 0, len(items))
		for _, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return fmt.Errorf("无法序列化 %s 的记录: %w", name, err)
			}
			ops = append(ops, remote.BatchOp{Key: item.ID(), Data: data})
		}
		if err := rs.CommitBatch(ctx, name, ops, "seed"); err != nil {
			return fmt.Errorf("无法写入集合 %s: %w", name, err)
		}
	}

	return nil
}
