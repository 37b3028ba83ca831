// Package pools provides a pooled byte buffer for the HTTP response
// path, cutting allocations on status-polling and list endpoints that
// get hit every second by a dashboard or a scheduler's health check.
package pools

import (
	"bytes"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 4096))
	},
}

// GetBuffer returns a reset buffer from the pool.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool, discarding ones that grew
// unusually large so the pool doesn't pin down memory indefinitely.
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1<<20 {
		return
	}
	bufferPool.Put(buf)
}
