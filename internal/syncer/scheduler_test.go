package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 替换真实定时器，测试里手动触发到期
type fakeClock struct {
	timers []*fakeTimer
}

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) newTimer(_ time.Duration, fn func()) stoppable {
	timer := &fakeTimer{fn: fn}
	c.timers = append(c.timers, timer)
	return timer
}

// fire 触发最后一个仍然有效的定时器
func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	last := c.timers[len(c.timers)-1]
	require.False(t, last.stopped, "定时器已被取消")
	last.fn()
}

func TestFlushScheduler_ArmCoalesces(t *testing.T) {
	clock := &fakeClock{}
	flushed := 0
	sched := NewFlushScheduler(3*time.Second, func() { flushed++ })
	sched.newTimer = clock.newTimer

	// 防抖窗口内的多次 Arm 只留下最后一个定时器
	sched.Arm()
	sched.Arm()
	sched.Arm()

	require.Len(t, clock.timers, 3)
	assert.True(t, clock.timers[0].stopped)
	assert.True(t, clock.timers[1].stopped)

	clock.fire(t)
	assert.Equal(t, 1, flushed)
}

func TestFlushScheduler_FlushNow(t *testing.T) {
	clock := &fakeClock{}
	flushed := 0
	sched := NewFlushScheduler(3*time.Second, func() { flushed++ })
	sched.newTimer = clock.newTimer

	sched.Arm()
	sched.FlushNow()

	assert.Equal(t, 1, flushed)
	// 挂起的定时器被取消，不会再触发第二次刷新
	assert.True(t, clock.timers[0].stopped)
}

func TestFlushScheduler_Cancel(t *testing.T) {
	clock := &fakeClock{}
	flushed := 0
	sched := NewFlushScheduler(3*time.Second, func() { flushed++ })
	sched.newTimer = clock.newTimer

	sched.Arm()
	sched.Cancel()

	assert.True(t, clock.timers[0].stopped)
	assert.Equal(t, 0, flushed)
}

func TestFlushScheduler_ArmAfterFireStartsNewWindow(t *testing.T) {
	clock := &fakeClock{}
	flushed := 0
	sched := NewFlushScheduler(3*time.Second, func() { flushed++ })
	sched.newTimer = clock.newTimer

	sched.Arm()
	clock.fire(t)
	sched.Arm()
	clock.fire(t)

	assert.Equal(t, 2, flushed)
}
