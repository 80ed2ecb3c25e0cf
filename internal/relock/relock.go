// Package relock provides a reentrant mutual-exclusion lock.
//
// Hook dispatch and hook registration share a single exclusive lock, and a
// hook body is allowed to register further hooks or fire nested events. A
// plain sync.Mutex deadlocks in that case, so the observer and subscriber
// registries lock through a Mutex that tracks the owning goroutine and a
// re-entrancy depth.
package relock

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// Mutex is a mutual-exclusion lock that may be acquired repeatedly by the
// goroutine that already holds it. The zero value is an unlocked Mutex.
//
// Unlock must be called once per Lock, from the owning goroutine.
type Mutex struct {
	mu    sync.Mutex
	owner atomic.Int64
	depth int
}

// Lock acquires the mutex, blocking until it is available unless the calling
// goroutine already holds it, in which case the re-entrancy depth is bumped
// and Lock returns immediately.
func (m *Mutex) Lock() {
	id := goroutineID()
	if m.owner.Load() == id {
		m.depth++
		return
	}
	m.mu.Lock()
	m.owner.Store(id)
	m.depth = 1
}

// Unlock releases one level of the lock. The mutex becomes available to other
// goroutines only when the outermost Lock is balanced.
func (m *Mutex) Unlock() {
	if m.owner.Load() != goroutineID() {
		panic("relock: unlock by goroutine that does not hold the mutex")
	}
	if m.depth > 1 {
		m.depth--
		return
	}
	m.depth = 0
	m.owner.Store(0)
	m.mu.Unlock()
}

// Held reports whether the calling goroutine currently holds the mutex.
func (m *Mutex) Held() bool {
	return m.owner.Load() == goroutineID()
}

var goroutinePrefix = []byte("goroutine ")

// goroutineID extracts the current goroutine's id from its stack header.
// The header has the fixed form "goroutine N [state]:".
func goroutineID() int64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, goroutinePrefix)
	i := bytes.IndexByte(buf, ' ')
	if i < 0 {
		return -1
	}
	id, err := strconv.ParseInt(string(buf[:i]), 10, 64)
	if err != nil {
		return -1
	}
	return id
}
