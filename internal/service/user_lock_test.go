package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleLockManager_AcquireRelease(t *testing.T) {
	m := NewScheduleLockManager()

	require.True(t, m.Acquire(1))
	assert.False(t, m.Acquire(1), "存活锁不可重复获取")

	// 不同用户互不影响
	assert.True(t, m.Acquire(2))

	m.Release(1)
	assert.True(t, m.Acquire(1))
}

func TestScheduleLockManager_StaleLockIsOverridden(t *testing.T) {
	m := NewScheduleLockManager()
	m.locks[1] = time.Now().Add(-6 * time.Minute)

	assert.True(t, m.Acquire(1), "超过5分钟的锁视为失效，可被抢占")

	// 抢占后重新打点，再次获取应失败
	assert.False(t, m.Acquire(1))
}

func TestScheduleLockManager_Age(t *testing.T) {
	m := NewScheduleLockManager()

	_, ok := m.Age(1)
	assert.False(t, ok)

	m.locks[1] = time.Now().Add(-90 * time.Second)
	age, ok := m.Age(1)
	require.True(t, ok)
	assert.InDelta(t, 90*time.Second, age, float64(time.Second))
}

func TestScheduleLockManager_Sweep(t *testing.T) {
	m := NewScheduleLockManager()
	m.locks[1] = time.Now().Add(-10 * time.Minute)
	m.locks[2] = time.Now().Add(-4 * time.Minute)
	m.locks[3] = time.Now()

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 0, m.Sweep(), "重复清理幂等")

	_, ok := m.Age(2)
	assert.True(t, ok, "未过期的锁不被清理")
}

func TestScheduleLockManager_ConcurrentAcquire(t *testing.T) {
	m := NewScheduleLockManager()

	const goroutines = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Acquire(7) {
				mu.Lock()
				acquired++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, acquired, "并发下只有一个获取者")
}
