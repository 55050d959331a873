package bf

import (
	"bufio"
	"errors"
	"io"
	"os"
)

// wrapIndex normalises ptr+d into [0, heapLen), handling negative d:
// disp = ((L + (d mod L)) mod L); ptr = (ptr + disp) mod L.
func wrapIndex(ptr int, d int64, heapLen int) int {
	L := int64(heapLen)
	disp := (L + (d % L)) % L
	return int((int64(ptr) + disp) % L)
}

var stdinReader = bufio.NewReader(os.Stdin)

// readByte reads one byte from stdin. It reports eof=true (not an error) on
// io.EOF, matching the JIT callback's EOF policy: EOF on input is success
// yielding a zero cell, not a failure.
func readByte() (b byte, eof bool, err error) {
	v, err := stdinReader.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, true, nil
		}
		return 0, false, err
	}
	return v, false, nil
}

func writeByte(b byte) error {
	_, err := os.Stdout.Write([]byte{b})
	return err
}

// Interpret dispatches over the IR until pc reaches len(txt). It returns
// ErrStdioRead on a genuine (non-EOF) stdin read failure, and nil otherwise,
// including on normal termination.
func (p *ProgramState) Interpret() error {
	txt := p.txt
	heap := p.heap
	L := len(heap)

	for p.pc < len(txt) {
		instr := txt[p.pc]
		if p.profile != nil {
			p.profile.bump(p.pc)
		}

		switch instr.Op {
		case OpIncr:
			heap[p.ptr] += byte(instr.Arg)
			p.pc++

		case OpMv:
			p.ptr = wrapIndex(p.ptr, instr.Arg, L)
			p.pc++

		case OpOut:
			// No flushing contract beyond process exit; a write failure here
			// has no corresponding reported error kind.
			_ = writeByte(heap[p.ptr])
			p.pc++

		case OpIn:
			b, eof, err := readByte()
			if err != nil {
				return ErrStdioRead
			}
			if eof {
				heap[p.ptr] = 0
			} else {
				heap[p.ptr] = b
			}
			p.pc++

		case OpJmp:
			if heap[p.ptr] == 0 {
				p.pc = int(instr.Arg)
			} else {
				p.pc++
			}

		case OpRet:
			if p.profile != nil {
				p.profile.bumpLoop(int(instr.Arg), p.pc+1)
			}
			if heap[p.ptr] != 0 {
				p.pc = int(instr.Arg) + 1
			} else {
				p.pc++
			}

		case OpLoopSetZero:
			heap[p.ptr] = 0
			p.pc++

		case OpLoopMvData:
			to := wrapIndex(p.ptr, instr.Arg, L)
			heap[to] += heap[p.ptr]
			heap[p.ptr] = 0
			p.pc++

		case OpLoopMvPtr:
			for heap[p.ptr] != 0 {
				p.ptr = wrapIndex(p.ptr, instr.Arg, L)
			}
			p.pc++
		}
	}

	return nil
}
