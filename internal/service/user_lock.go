package service

import (
	"sync"
	"time"
)

// 排期生成是对 schedule_entries 的先删后写，同一用户并发生成会产生
// 重复条目，因此按用户互斥。锁表仅存于进程内存，多实例部署时需要
// 换成共享存储中的租约。
const (
	lockStaleAfter    = 5 * time.Minute
	lockSweepInterval = 60 * time.Second
)

// ScheduleLockManager 进程内的按用户排期锁
type ScheduleLockManager struct {
	mu    sync.Mutex
	locks map[uint]time.Time
}

func NewScheduleLockManager() *ScheduleLockManager {
	return &ScheduleLockManager{
		locks: make(map[uint]time.Time),
	}
}

// Acquire 非阻塞获取锁。存活锁（未超过5分钟）存在时返回 false；
// 不存在或已过期时重新打点并返回 true。
func (m *ScheduleLockManager) Acquire(userID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if stamped, ok := m.locks[userID]; ok && time.Since(stamped) <= lockStaleAfter {
		return false
	}

	m.locks[userID] = time.Now()
	return true
}

// Release 无条件释放
func (m *ScheduleLockManager) Release(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, userID)
}

// Age 返回当前锁的持有时长，锁不存在时第二个返回值为 false
func (m *ScheduleLockManager) Age(userID uint) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamped, ok := m.locks[userID]
	if !ok {
		return 0, false
	}
	return time.Since(stamped), true
}

// Sweep 清理过期锁，返回清理数量。与 Acquire 中的过期判断幂等，
// 仅作为周期性兜底。
func (m *ScheduleLockManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for userID, stamped := range m.locks {
		if time.Since(stamped) > lockStaleAfter {
			delete(m.locks, userID)
			removed++
		}
	}
	return removed
}
