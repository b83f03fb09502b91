// ABOUTME: Process-wide flush callback registry
// ABOUTME: Lets non-UI subsystems trigger buffer flushes without holding the engine
package player

import "sync"

var (
	flushMu sync.Mutex
	flushFn func(vfoNum int)
)

// RegisterFlushFunc installs fn as the process-wide flush callback.
// The engine registers itself on Initialize and unregisters on Stop.
func RegisterFlushFunc(fn func(vfoNum int)) {
	flushMu.Lock()
	defer flushMu.Unlock()
	flushFn = fn
}

// UnregisterFlushFunc removes the flush callback
func UnregisterFlushFunc() {
	flushMu.Lock()
	defer flushMu.Unlock()
	flushFn = nil
}

// TriggerFlush flushes one VFO's buffers, or all when vfoNum is AllVFOs.
// No-op when no engine is registered.
func TriggerFlush(vfoNum int) {
	flushMu.Lock()
	fn := flushFn
	flushMu.Unlock()

	if fn != nil {
		fn(vfoNum)
	}
}
