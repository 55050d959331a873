package bf

// loopFrame is pushed on '[' and popped on ']', pairing the IR index of the
// placeholder OpJmp with the source byte position (for NestingError
// reporting).
type loopFrame struct {
	codeIndex int
	srcPos    int
}

// parseSource folds the byte stream into IR in a single pass, coalescing
// runs of '+'/'-' and '>'/'<', and recognises the three loop idioms at each
// ']'. Non-Brainfuck bytes are skipped. Displacement payloads are
// normalised mod heapSz once parsing completes.
func parseSource(src []byte, heapSz int) (Program, error) {
	code := make(Program, 0, len(src))
	var stack []loopFrame

	for pos := 0; pos < len(src); pos++ {
		switch src[pos] {
		case '+':
			foldIncr(&code, 1)
		case '-':
			foldIncr(&code, -1)
		case '>':
			foldMv(&code, 1)
		case '<':
			foldMv(&code, -1)
		case '.':
			code = append(code, Instruction{Op: OpOut})
		case ',':
			code = append(code, Instruction{Op: OpIn})
		case '[':
			stack = append(stack, loopFrame{codeIndex: len(code), srcPos: pos})
			code = append(code, Instruction{Op: OpJmp, Arg: 0})
		case ']':
			if len(stack) == 0 {
				return nil, &NestingError{Kind: "] @", Pos: pos}
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			// Patch the placeholder so the forward branch targets the index
			// the matching OpRet is about to occupy. If a peephole idiom
			// matches below, the Jmp itself is replaced by the collapsed
			// instruction and this target is discarded.
			code[top.codeIndex] = Instruction{Op: OpJmp, Arg: int64(len(code))}
			code = closeLoopPeephole(code, top.codeIndex)
		default:
			// comment byte, ignored
		}
	}

	if len(stack) > 0 {
		top := stack[len(stack)-1]
		return nil, &NestingError{Kind: "[ @", Pos: top.srcPos}
	}

	normalizeDisplacements(code, heapSz)
	return code, nil
}

// foldIncr appends an OpIncr, coalescing with a trailing OpIncr in place
// (byte-wise wrapping).
func foldIncr(code *Program, delta int) {
	c := *code
	if n := len(c); n > 0 && c[n-1].Op == OpIncr {
		c[n-1].Arg = int64(uint8(c[n-1].Arg) + uint8(delta))
		return
	}
	*code = append(c, Instruction{Op: OpIncr, Arg: int64(uint8(delta))})
}

// foldMv appends an OpMv, coalescing with a trailing OpMv in place (signed
// displacement, not normalised until the whole source has been folded).
func foldMv(code *Program, delta int64) {
	c := *code
	if n := len(c); n > 0 && c[n-1].Op == OpMv {
		c[n-1].Arg += delta
		return
	}
	*code = append(c, Instruction{Op: OpMv, Arg: delta})
}

// closeLoopPeephole examines the tail of code starting at retAddr (the
// just-patched OpJmp placeholder) and rewrites it to one of the three loop
// idioms when it matches, trying LoopSetZero, LoopMvData and LoopMvPtr in
// that order; otherwise it appends the plain OpRet.
func closeLoopPeephole(code Program, retAddr int) Program {
	tail := code[retAddr:]

	// Pattern 1: [ +-odd ]  ->  LoopSetZero
	if len(tail) == 2 && tail[1].Op == OpIncr && uint8(tail[1].Arg)%2 == 1 {
		return append(code[:retAddr], Instruction{Op: OpLoopSetZero})
	}

	// Pattern 2: [-(>d)+(<d)]  ->  LoopMvData(d)
	if len(tail) == 5 &&
		tail[1].Op == OpIncr && uint8(tail[1].Arg) == 255 &&
		tail[2].Op == OpMv &&
		tail[3].Op == OpIncr && uint8(tail[3].Arg) == 1 &&
		tail[4].Op == OpMv &&
		tail[2].Arg == -tail[4].Arg {
		return append(code[:retAddr], Instruction{Op: OpLoopMvData, Arg: tail[2].Arg})
	}

	// Pattern 3: [(>d)] or [(<d)]  ->  LoopMvPtr(d)
	if len(tail) == 2 && tail[1].Op == OpMv {
		return append(code[:retAddr], Instruction{Op: OpLoopMvPtr, Arg: tail[1].Arg})
	}

	// Default: plain loop, keep the Jmp and append the matching Ret.
	return append(code, Instruction{Op: OpRet, Arg: int64(retAddr)})
}

// normalizeDisplacements reduces every Mv/LoopMvData/LoopMvPtr payload mod
// heapSz into (-heapSz, heapSz), keeping the JIT's single-comparison wrap
// (which assumes |d| < heapSz) always sound.
func normalizeDisplacements(code Program, heapSz int) {
	if heapSz <= 0 {
		return
	}
	L := int64(heapSz)
	for i := range code {
		switch code[i].Op {
		case OpMv, OpLoopMvData, OpLoopMvPtr:
			code[i].Arg = code[i].Arg % L
		}
	}
}
