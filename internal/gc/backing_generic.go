package gc

// heapBackingStore allocates arena buffers on the Go heap. Used
// unconditionally on non-unix platforms, and on unix whenever
// Config.BackingStore is BackingHeap (the default).
type heapBackingStore struct{}

func (heapBackingStore) alloc(n uintptr) []byte { return make([]byte, n) }

func (heapBackingStore) free(buf []byte) {}
