package domain

// 可同步的集合名称，与远程存储中的集合名以及本地缓存的键一一对应
const (
	CollectionDepartments    = "departments"
	CollectionRoles          = "roles"
	CollectionUsers          = "users"
	CollectionShiftTemplates = "shiftTemplates"
	CollectionEvents         = "events"
	CollectionAssignments    = "scheduleAssignments"
	CollectionSettings       = "settings"
)

// SyncableCollections 是普通集合（不含排班表和设置单例）
var SyncableCollections = []string{
	CollectionDepartments,
	CollectionRoles,
	CollectionUsers,
	CollectionShiftTemplates,
	CollectionEvents,
}

func IsSyncableCollection(name string) bool {
	for _, c := range SyncableCollections {
		if c == name {
			return true
		}
	}
	return false
}

// Item 是普通集合中的一条记录（部门、角色、员工、班次模板、事件）。
// 这些记录由表单直接保存，结构不固定，因此按文档存储的方式保留原始字段。
type Item map[string]any

func (it Item) ID() string {
	id, _ := it["id"].(string)
	return id
}

// SortOrder 返回记录的排序序号，缺失时返回 0。
// JSON 反序列化会把数字解析成 float64，这里两种类型都要兼容。
func (it Item) SortOrder() int {
	switch v := it["sortOrder"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

// Settings 是全局设置单例，远程侧按字段合并写入
type Settings map[string]any
