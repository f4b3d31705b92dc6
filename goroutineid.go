package atomix

import (
	"bytes"
	"runtime"
	"strconv"
)

// goroutineID extracts the calling goroutine's numeric id from its stack
// trace header. It backs Context.checkThread -- there is no supported way
// to obtain a goroutine id in Go, but the runtime always prints one at the
// head of a stack dump, so parsing it is the standard (if informal) trick
// for asserting single-goroutine ownership.
func goroutineID() uint64 {
	buf := make([]byte, 64)
	buf = buf[:runtime.Stack(buf, false)]
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	buf = buf[:bytes.IndexByte(buf, ' ')]
	id, _ := strconv.ParseUint(string(buf), 10, 64)
	return id
}
