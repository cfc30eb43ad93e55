package history

import (
	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
)

type Kind int

const (
	KindModify Kind = iota + 1
	KindDelete
	KindDragDrop
)

// Command 是一次可逆的排班变更。原始实现里每个命令是一个
// 带 execute/undo 闭包的临时对象，这里改成带判别字段的单一结构体，
// 由 apply 统一解释，穷举检查和测试都更容易。
// 命令只保存重放和回退所需的最小状态，入栈后除 execute/undo 外不再修改。
type Command struct {
	Kind Kind

	// Modify / Delete 的寻址
	EntityID string
	Date     string

	// Modify：New 是新记录，Old 是被替换的旧记录（此前不存在时为 nil）
	New *domain.Assignment
	Old *domain.Assignment

	// Delete：按 id 删除，removed 和 removedIndex 在 execute 时
	// 记下被删除的记录和它在序列里的位置，undo 按原位置还原，
	// 多条班次的文档撤销后顺序不变
	AssignmentID string
	removed      *domain.Assignment
	removedIndex int

	// DragDrop：源地址、目标地址、是否复制。
	// moved 是落到目标格的记录（复制时在构造期就换上新 id，
	// 这样 redo 会产生完全相同的 id）；original 保留源格的原始记录，
	// 移动的 undo 用它在 sourceIndex 处恢复原有的 id 和位置。
	SourceEntityID string
	SourceDate     string
	TargetEntityID string
	TargetDate     string
	IsCopy         bool
	moved          domain.Assignment
	original       domain.Assignment
	sourceIndex    int
}

// NewModify 构造一次写入命令。old 是 UI 在操作时刻看到的旧记录，
// 为 nil 表示这是新增。
func NewModify(entityID string, date string, newAssignment domain.Assignment, old *domain.Assignment) *Command {
	return &Command{
		Kind:     KindModify,
		EntityID: entityID,
		Date:     date,
		New:      &newAssignment,
		Old:      old,
	}
}

func NewDelete(entityID string, date string, assignmentID string) *Command {
	return &Command{
		Kind:         KindDelete,
		EntityID:     entityID,
		Date:         date,
		AssignmentID: assignmentID,
	}
}

// NewDragDrop 构造一次拖拽命令。复制会在这里铸造一个新的 assignmentId，
// 复制完成后源和目标是两条独立的记录；移动保持原有 id 不变，
// 之后的编辑和撤销仍然能按同一个 id 寻址。
func NewDragDrop(sourceEntityID, sourceDate, targetEntityID, targetDate string, assignment domain.Assignment, isCopy bool) *Command {
	cmd := &Command{
		Kind:           KindDragDrop,
		SourceEntityID: sourceEntityID,
		SourceDate:     sourceDate,
		TargetEntityID: targetEntityID,
		TargetDate:     targetDate,
		IsCopy:         isCopy,
		original:       assignment,
		moved:          assignment,
		sourceIndex:    -1,
	}
	if isCopy {
		cmd.moved.ID = uuid.NewString()
	}
	return cmd
}

type direction int

const (
	forward direction = iota
	backward
)

// apply 执行（forward）或回退（backward）一个命令，返回被改动的文档键。
// 寻址失败（文档或记录已经不存在）时不做任何修改也不报错，
// 保证 UI 在状态不同步时仍然可用。
func (c *Command) apply(st *store.Store, dir direction) []string {
	switch c.Kind {
	case KindModify:
		return c.applyModify(st, dir)
	case KindDelete:
		return c.applyDelete(st, dir)
	case KindDragDrop:
		return c.applyDragDrop(st, dir)
	default:
		return nil
	}
}

func (c *Command) applyModify(st *store.Store, dir direction) []string {
	key := domain.SheetKey(c.EntityID, c.Date)
	shifts, _ := st.SheetShifts(key)

	if dir == forward {
		// 按 id 找到旧记录原地整条替换，找不到就追加
		if c.Old != nil {
			if i := indexByID(shifts, c.Old.ID); i >= 0 {
				shifts[i] = *c.New
				st.PutSheet(key, shifts)
				return []string{key}
			}
		}
		st.PutSheet(key, append(shifts, *c.New))
		return []string{key}
	}

	i := indexByID(shifts, c.New.ID)
	if i < 0 {
		return nil
	}
	if c.Old != nil {
		shifts[i] = *c.Old
	} else {
		shifts = append(shifts[:i], shifts[i+1:]...)
	}
	st.PutSheet(key, shifts)
	return []string{key}
}

func (c *Command) applyDelete(st *store.Store, dir direction) []string {
	key := domain.SheetKey(c.EntityID, c.Date)
	shifts, _ := st.SheetShifts(key)

	if dir == forward {
		i := indexByID(shifts, c.AssignmentID)
		if i < 0 {
			return nil
		}
		removed := shifts[i]
		c.removed = &removed
		c.removedIndex = i
		st.PutSheet(key, append(shifts[:i], shifts[i+1:]...))
		return []string{key}
	}

	if c.removed == nil {
		return nil
	}
	st.PutSheet(key, insertAt(shifts, c.removedIndex, *c.removed))
	return []string{key}
}

func (c *Command) applyDragDrop(st *store.Store, dir direction) []string {
	sourceKey := domain.SheetKey(c.SourceEntityID, c.SourceDate)
	targetKey := domain.SheetKey(c.TargetEntityID, c.TargetDate)

	if dir == forward {
		targetShifts, _ := st.SheetShifts(targetKey)
		st.PutSheet(targetKey, append(targetShifts, c.moved))
		if c.IsCopy {
			return []string{targetKey}
		}

		sourceShifts, _ := st.SheetShifts(sourceKey)
		if i := indexByID(sourceShifts, c.original.ID); i >= 0 {
			c.sourceIndex = i
			st.PutSheet(sourceKey, append(sourceShifts[:i], sourceShifts[i+1:]...))
		}
		return []string{targetKey, sourceKey}
	}

	targetShifts, _ := st.SheetShifts(targetKey)
	if i := indexByID(targetShifts, c.moved.ID); i >= 0 {
		st.PutSheet(targetKey, append(targetShifts[:i], targetShifts[i+1:]...))
	}
	if c.IsCopy {
		return []string{targetKey}
	}

	sourceShifts, _ := st.SheetShifts(sourceKey)
	st.PutSheet(sourceKey, insertAt(sourceShifts, c.sourceIndex, c.original))
	return []string{targetKey, sourceKey}
}

func indexByID(shifts []domain.Assignment, id string) int {
	for i := range shifts {
		if shifts[i].ID == id {
			return i
		}
	}
	return -1
}

// insertAt 把记录插回序列中的指定位置，位置越界（包括 -1）时追加到末尾
func insertAt(shifts []domain.Assignment, i int, a domain.Assignment) []domain.Assignment {
	if i < 0 || i > len(shifts) {
		return append(shifts, a)
	}
	shifts = append(shifts, domain.Assignment{})
	copy(shifts[i+1:], shifts[i:])
	shifts[i] = a
	return shifts
}
