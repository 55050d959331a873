package bf

import (
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// write and read are the two host functions the JIT-compiled machine code
// calls into for OpOut/OpIn, minted once as C-callable function pointers via
// purego.NewCallback and reused by every JITExec invocation afterward.
// purego's trampoline generation is not cheap, so callbackAddrs caches the
// two addresses for the process's lifetime instead of minting them per call.
//
// A returned non-zero value is the address of a heap-allocated *CallbackError.
// The JITted caller treats it as opaque and never frees it; runtime.Pinner
// keeps the GC from moving or collecting it out from under that raw pointer.
var (
	ioMu sync.Mutex

	callbackOnce sync.Once
	writeAddr    uintptr
	readAddr     uintptr
	errPinner    runtime.Pinner
)

func callbackAddrs() (write, read uintptr) {
	callbackOnce.Do(func() {
		writeAddr = purego.NewCallback(writeTrampoline)
		readAddr = purego.NewCallback(readTrampoline)
	})
	return writeAddr, readAddr
}

// writeTrampoline is called from JIT-compiled code with the cell value
// zero-extended into the argument register. Its signature is restricted to
// purego-compatible scalar types.
func writeTrampoline(v uintptr) uintptr {
	ioMu.Lock()
	defer ioMu.Unlock()

	if err := writeByte(byte(v)); err != nil {
		return boxCallbackError("write", err)
	}
	return 0
}

// readTrampoline is called from JIT-compiled code with a pointer to the
// destination cell. EOF is success: it stores 0 and returns a null error
// pointer, matching Interpret's policy.
func readTrampoline(dst uintptr) uintptr {
	ioMu.Lock()
	defer ioMu.Unlock()

	b, eof, err := readByte()
	if err != nil {
		return boxCallbackError("read", err)
	}
	if eof {
		b = 0
	}
	*(*byte)(unsafe.Pointer(dst)) = b
	return 0
}

func boxCallbackError(op string, err error) uintptr {
	ce := &CallbackError{Op: op, Err: err}
	errPinner.Pin(ce)
	return uintptr(unsafe.Pointer(ce))
}
