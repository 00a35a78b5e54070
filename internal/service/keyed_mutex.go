package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// Interval for cleaning up stale mutexes
	mutexCleanupInterval = 10 * time.Minute

	// How long a mutex must be unused before cleanup
	mutexStaleThreshold = 10 * time.Minute
)

// KeyedMutex hands out one mutex per key and forgets keys nobody has used for a while.
// Call Stop during graceful shutdown.
type KeyedMutex struct {
	name  string
	log   *logrus.Logger
	locks sync.Map // map[string]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

// mutexWithTimestamp tracks mutex usage for cleanup
type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

func NewKeyedMutex(name string, log *logrus.Logger) *KeyedMutex {
	km := &KeyedMutex{
		name:     name,
		log:      log,
		stopChan: make(chan struct{}),
	}

	km.wg.Add(1)
	go km.cleanupLoop()

	return km
}

// Lock acquires the mutex for key and returns its unlock function
func (km *KeyedMutex) Lock(key string) func() {
	mt := km.get(key)
	mt.mu.Lock()
	return func() {
		mt.lastUsed.Store(time.Now().Unix())
		mt.mu.Unlock()
	}
}

// Stop ends the cleanup goroutine. Safe to call multiple times.
func (km *KeyedMutex) Stop() {
	if km.stopped.CompareAndSwap(false, true) {
		close(km.stopChan)
		km.wg.Wait()
	}
}

func (km *KeyedMutex) get(key string) *mutexWithTimestamp {
	mt, _ := km.locks.LoadOrStore(key, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (km *KeyedMutex) cleanupLoop() {
	defer km.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-km.stopChan:
			km.log.Debugf("Mutex cleanup for %s stopping", km.name)
			return
		case <-ticker.C:
			km.cleanup(time.Now().Add(-mutexStaleThreshold))
		}
	}
}

// cleanup removes mutexes unused since cutoff. TryLock skips anything in use,
// and lastUsed is checked while holding the lock.
func (km *KeyedMutex) cleanup(cutoff time.Time) int {
	var cleaned int

	km.locks.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}

		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoff.Unix() {
				km.locks.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		km.log.Debugf("Cleaned up %d stale %s mutexes", cleaned, km.name)
	}
	return cleaned
}
