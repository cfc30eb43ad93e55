package localcache

import "context"

// 本地缓存使用的键：每个普通集合一个键（直接用集合名），
// 外加整个排班表、设置单例和纯 UI 状态各一个键
const (
	KeyAssignments = "scheduleAssignments"
	KeySettings    = "settings"
	KeyUIState     = "uiState"
)

// Cache 是本地持久缓存：字符串键到 JSON 序列化内容的映射，
// 用于启动时不等远程存储就能立即恢复数据。
// 实现方在 Set 时需要做内容相等短路，避免重复的持久化写入。
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
