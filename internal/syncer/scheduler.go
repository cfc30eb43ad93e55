package syncer

import (
	"sync"
	"time"
)

// FlushScheduler 持有防抖定时器：短时间内的大量小改动合并成一次刷新。
// 定时器句柄由调度器自己管理，而不是散落在全局状态里，
// 定时器的构造可以注入，测试里用假定时器控制触发时机。
type FlushScheduler struct {
	mu    sync.Mutex
	delay time.Duration
	flush func()
	timer stoppable

	newTimer func(d time.Duration, fn func()) stoppable
}

type stoppable interface {
	Stop() bool
}

func NewFlushScheduler(delay time.Duration, flush func()) *FlushScheduler {
	return &FlushScheduler{
		delay: delay,
		flush: flush,
		newTimer: func(d time.Duration, fn func()) stoppable {
			return time.AfterFunc(d, fn)
		},
	}
}

// Arm 重新开始计时，未到期的旧定时器被取消（合并写入风暴）
func (s *FlushScheduler) Arm() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.newTimer(s.delay, func() {
		s.mu.Lock()
		s.timer = nil
		s.mu.Unlock()
		s.flush()
	})
}

// FlushNow 取消挂起的定时器并同步执行一次刷新
func (s *FlushScheduler) FlushNow() {
	s.Cancel()
	s.flush()
}

func (s *FlushScheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
