package sdk

import "sync"

// CancellationHandle lets a caller abort an in-flight call. The executor wires
// the handle to the request as soon as the request is built; an Abort issued
// before that moment has nothing to act on and is lost. A handle reused for a
// later call is rewired to that call.
type CancellationHandle struct {
	mu    sync.Mutex
	abort func()
}

func NewCancellationHandle() *CancellationHandle {
	return &CancellationHandle{}
}

// Abort cancels the request currently wired to the handle, if any. The call
// fails with a transport error matching context.Canceled.
func (h *CancellationHandle) Abort() {
	h.mu.Lock()
	abort := h.abort
	h.mu.Unlock()

	if abort != nil {
		abort()
	}
}

func (h *CancellationHandle) wire(abort func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.abort = abort
}
