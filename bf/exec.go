package bf

import (
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
	"golang.org/x/sys/unix"
)

// JITExec runs the machine code produced by a prior JITCompile call against
// this ProgramState's tape. It maps an anonymous, writable page, copies the
// compiled bytes in, flips the page to read+execute, and invokes it via
// purego.SyscallN. The whole executable mapping lives only for the
// duration of this call and is unmapped before it returns.
//
// It returns 1 if the compiled function returned a non-null error pointer,
// 0 otherwise. If JITCompile was never called (or produced no code),
// JITExec is a no-op success.
func (p *ProgramState) JITExec(emitIR bool) (int32, error) {
	if len(p.jitCode) == 0 {
		return 0, nil
	}
	if len(p.heap) == 0 {
		return 0, fmt.Errorf("bf: JITExec requires a non-empty tape")
	}

	mapping, err := unix.Mmap(-1, 0, len(p.jitCode), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return 0, fmt.Errorf("bf: mmap executable page: %w", err)
	}
	defer unix.Munmap(mapping)

	copy(mapping, p.jitCode)

	if err := unix.Mprotect(mapping, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return 0, fmt.Errorf("bf: mprotect executable page: %w", err)
	}

	codeAddr := uintptr(unsafe.Pointer(&mapping[0]))
	tapeBase := uintptr(unsafe.Pointer(&p.heap[0]))

	ret, _, _ := purego.SyscallN(codeAddr, tapeBase)
	if emitIR {
		fmt.Printf("jit: return value = %#x\n", ret)
	}
	if ret != 0 {
		return 1, nil
	}
	return 0, nil
}
