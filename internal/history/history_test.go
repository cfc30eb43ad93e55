package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-board/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-board/backend/internal/store"
)

func newAssignment(id string, template string) domain.Assignment {
	return domain.Assignment{
		ID:              id,
		Type:            domain.AssignmentShift,
		ShiftTemplateID: template,
	}
}

func TestManager_AssignUndoRedo(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))

	key := domain.SheetKey("e1", "2024-06-03")
	shifts, ok := st.SheetShifts(key)
	require.True(t, ok)
	require.Len(t, shifts, 1)
	assert.Equal(t, "a1", shifts[0].ID)
	assert.Equal(t, "morning", shifts[0].ShiftTemplateID)

	// 撤销后整个文档消失，而不是留下空文档
	require.True(t, m.Undo())
	assert.False(t, st.HasSheet(key))

	// 重做后记录以完全相同的 id 回来
	require.True(t, m.Redo())
	shifts, ok = st.SheetShifts(key)
	require.True(t, ok)
	require.Len(t, shifts, 1)
	assert.Equal(t, "a1", shifts[0].ID)
}

func TestManager_RoundTripRestoresSnapshot(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	before := st.SheetSnapshot()

	cmds := []*Command{
		NewModify("e1", "2024-06-04", newAssignment("a2", "evening"), nil),
		NewModify("e2", "2024-06-03", newAssignment("a3", "morning"), nil),
		NewDelete("e1", "2024-06-03", "a1"),
		NewDragDrop("e2", "2024-06-03", "e3", "2024-06-05", newAssignment("a3", "morning"), false),
	}
	for _, cmd := range cmds {
		m.Do(cmd)
	}
	for range cmds {
		require.True(t, m.Undo())
	}

	assert.Equal(t, before, st.SheetSnapshot())
}

func TestManager_ModifyReplacesInPlace(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	old := newAssignment("a1", "morning")
	m.Do(NewModify("e1", "2024-06-03", old, nil))
	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "evening"), &old))

	key := domain.SheetKey("e1", "2024-06-03")
	shifts, _ := st.SheetShifts(key)
	require.Len(t, shifts, 1)
	assert.Equal(t, "evening", shifts[0].ShiftTemplateID)

	require.True(t, m.Undo())
	shifts, _ = st.SheetShifts(key)
	require.Len(t, shifts, 1)
	assert.Equal(t, "morning", shifts[0].ShiftTemplateID)
}

func TestManager_DeleteUndoRecreatesDocument(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	m.Do(NewDelete("e1", "2024-06-03", "a1"))

	key := domain.SheetKey("e1", "2024-06-03")
	assert.False(t, st.HasSheet(key))

	require.True(t, m.Undo())
	shifts, ok := st.SheetShifts(key)
	require.True(t, ok)
	require.Len(t, shifts, 1)
	assert.Equal(t, "a1", shifts[0].ID)
}

func TestManager_DeleteFromMiddleRestoresOrder(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	m.Do(NewModify("e1", "2024-06-03", newAssignment("a2", "afternoon"), nil))
	m.Do(NewModify("e1", "2024-06-03", newAssignment("a3", "evening"), nil))
	before := st.SheetSnapshot()

	// 删除中间一条再撤销，序列必须回到原来的顺序而不是把它补在末尾
	m.Do(NewDelete("e1", "2024-06-03", "a2"))
	require.True(t, m.Undo())

	assert.Equal(t, before, st.SheetSnapshot())

	shifts, _ := st.SheetShifts(domain.SheetKey("e1", "2024-06-03"))
	require.Len(t, shifts, 3)
	assert.Equal(t, "a2", shifts[1].ID)
}

func TestManager_MoveFromMiddleUndoRestoresOrder(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	m.Do(NewModify("e1", "2024-06-03", newAssignment("a2", "afternoon"), nil))
	m.Do(NewModify("e1", "2024-06-03", newAssignment("a3", "evening"), nil))
	before := st.SheetSnapshot()

	// 把中间一条移走再撤销，源文档的顺序不变
	source, _ := st.SheetShifts(domain.SheetKey("e1", "2024-06-03"))
	m.Do(NewDragDrop("e1", "2024-06-03", "e2", "2024-06-04", source[1], false))
	require.True(t, m.Undo())

	assert.Equal(t, before, st.SheetSnapshot())
}

func TestManager_DragCopyMintsNewID(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))

	source := domain.SheetKey("e1", "2024-06-03")
	target := domain.SheetKey("e2", "2024-06-04")
	sourceShifts, _ := st.SheetShifts(source)
	m.Do(NewDragDrop("e1", "2024-06-03", "e2", "2024-06-04", sourceShifts[0], true))

	// 源文档不变，目标文档得到一条新 id 的记录
	gotSource, _ := st.SheetShifts(source)
	require.Len(t, gotSource, 1)
	assert.Equal(t, "a1", gotSource[0].ID)

	gotTarget, ok := st.SheetShifts(target)
	require.True(t, ok)
	require.Len(t, gotTarget, 1)
	assert.NotEqual(t, "a1", gotTarget[0].ID)
	assert.NotEmpty(t, gotTarget[0].ID)
	copiedID := gotTarget[0].ID

	// 撤销只移除目标侧，源侧不动
	require.True(t, m.Undo())
	assert.False(t, st.HasSheet(target))
	gotSource, _ = st.SheetShifts(source)
	require.Len(t, gotSource, 1)

	// 重做得到完全相同的复制 id
	require.True(t, m.Redo())
	gotTarget, _ = st.SheetShifts(target)
	require.Len(t, gotTarget, 1)
	assert.Equal(t, copiedID, gotTarget[0].ID)
}

func TestManager_DragMovePreservesID(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))

	source := domain.SheetKey("e1", "2024-06-03")
	target := domain.SheetKey("e2", "2024-06-04")
	sourceShifts, _ := st.SheetShifts(source)
	m.Do(NewDragDrop("e1", "2024-06-03", "e2", "2024-06-04", sourceShifts[0], false))

	// 移动后源文档为空被删除，目标文档保持原 id
	assert.False(t, st.HasSheet(source))
	gotTarget, _ := st.SheetShifts(target)
	require.Len(t, gotTarget, 1)
	assert.Equal(t, "a1", gotTarget[0].ID)

	require.True(t, m.Undo())
	assert.False(t, st.HasSheet(target))
	gotSource, ok := st.SheetShifts(source)
	require.True(t, ok)
	require.Len(t, gotSource, 1)
	assert.Equal(t, "a1", gotSource[0].ID)
}

func TestManager_TruncatesRedoTailOnNewAction(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	m.Do(NewModify("e1", "2024-06-04", newAssignment("a2", "morning"), nil))
	require.True(t, m.Undo())
	require.True(t, m.CanRedo())

	// 指针不在栈顶时执行新命令，重做历史被丢弃
	m.Do(NewModify("e1", "2024-06-05", newAssignment("a3", "morning"), nil))
	assert.False(t, m.CanRedo())
	assert.True(t, m.CanUndo())

	assert.False(t, st.HasSheet(domain.SheetKey("e1", "2024-06-04")))
	assert.True(t, st.HasSheet(domain.SheetKey("e1", "2024-06-05")))
}

func TestManager_UndoRedoOnEmptyStack(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	assert.False(t, m.Undo())
	assert.False(t, m.Redo())
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}

func TestManager_UndoMissingAssignmentIsNoop(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))

	// 外部状态被改掉（模拟与远程不同步），撤销不报错也不做事
	st.PutSheet(domain.SheetKey("e1", "2024-06-03"), []domain.Assignment{newAssignment("other", "evening")})
	require.True(t, m.Undo())

	shifts, _ := st.SheetShifts(domain.SheetKey("e1", "2024-06-03"))
	require.Len(t, shifts, 1)
	assert.Equal(t, "other", shifts[0].ID)
}

func TestManager_Clear(t *testing.T) {
	st := store.NewStore()
	m := NewManager(st, nil)

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	m.Clear()

	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
	// 清空历史不回滚已生效的修改
	assert.True(t, st.HasSheet(domain.SheetKey("e1", "2024-06-03")))
}

func TestManager_AppliedHookReceivesTouchedKeys(t *testing.T) {
	st := store.NewStore()
	var got [][]string
	m := NewManager(st, func(keys ...string) {
		got = append(got, keys)
	})

	m.Do(NewModify("e1", "2024-06-03", newAssignment("a1", "morning"), nil))
	m.Do(NewDragDrop("e1", "2024-06-03", "e2", "2024-06-04", newAssignment("a1", "morning"), false))

	require.Len(t, got, 2)
	assert.Equal(t, []string{domain.SheetKey("e1", "2024-06-03")}, got[0])
	assert.ElementsMatch(t, []string{
		domain.SheetKey("e1", "2024-06-03"),
		domain.SheetKey("e2", "2024-06-04"),
	}, got[1])
}
