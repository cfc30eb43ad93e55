package history

import (
	"sync"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
)

// Manager 维护一条线性的命令栈和指针。
// 指针始终落在 [-1, len-1] 内；指针不在栈顶时执行新命令，
// 指针之后的重做历史被丢弃（编辑器的标准撤销语义）。
type Manager struct {
	mu    sync.Mutex
	store *store.Store
	// onApplied 在每次 execute/undo 之后收到被改动的文档键，
	// 由同步引擎标脏并触发重新渲染
	onApplied func(keys ...string)

	stack []*Command
	ptr   int
}

func NewManager(st *store.Store, onApplied func(keys ...string)) *Manager {
	return &Manager{
		store:     st,
		onApplied: onApplied,
		stack:     make([]*Command, 0),
		ptr:       -1,
	}
}

// Do 截断重做历史、入栈并执行命令
func (m *Manager) Do(cmd *Command) {
	m.mu.Lock()
	if m.ptr < len(m.stack)-1 {
		m.stack = m.stack[:m.ptr+1]
	}
	m.stack = append(m.stack, cmd)
	m.ptr++
	keys := cmd.apply(m.store, forward)
	m.mu.Unlock()

	m.applied(keys)
}

// Undo 回退指针处的命令，栈空时什么都不做
func (m *Manager) Undo() bool {
	m.mu.Lock()
	if m.ptr < 0 {
		m.mu.Unlock()
		return false
	}
	keys := m.stack[m.ptr].apply(m.store, backward)
	m.ptr--
	m.mu.Unlock()

	m.applied(keys)
	return true
}

// Redo 重新执行指针后面的命令，指针在栈顶时什么都不做
func (m *Manager) Redo() bool {
	m.mu.Lock()
	if m.ptr >= len(m.stack)-1 {
		m.mu.Unlock()
		return false
	}
	m.ptr++
	keys := m.stack[m.ptr].apply(m.store, forward)
	m.mu.Unlock()

	m.applied(keys)
	return true
}

// Clear 清空整条历史（切换视图边界时调用，限制内存并避免跨上下文撤销）
func (m *Manager) Clear() {
	m.mu.Lock()
	m.stack = m.stack[:0]
	m.ptr = -1
	m.mu.Unlock()
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ptr >= 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ptr < len(m.stack)-1
}

func (m *Manager) applied(keys []string) {
	if m.onApplied != nil && len(keys) > 0 {
		m.onApplied(keys...)
	}
}
