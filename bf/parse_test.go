package bf

import "testing"

func parse(t *testing.T, src string, heapSz int) Program {
	code, err := parseSource([]byte(src), heapSz)
	assert(t, err == nil, "parseSource(%q) failed: %s", src, err)
	return code
}

func TestFoldsRunsOfIncrAndMv(t *testing.T) {
	code := parse(t, "+++>>><<", 2048)
	assert(t, len(code) == 2, "expected 2 folded instructions, got %d: %v", len(code), code)
	assert(t, code[0].Op == OpIncr && code[0].Arg == 3, "expected Incr(3), got %s", code[0])
	assert(t, code[1].Op == OpMv && code[1].Arg == 1, "expected Mv(1), got %s", code[1])
}

func TestIncrWrapsModulo256(t *testing.T) {
	src := ""
	for i := 0; i < 300; i++ {
		src += "+"
	}
	code := parse(t, src, 2048)
	assert(t, len(code) == 1, "expected a single folded Incr, got %d", len(code))
	assert(t, code[0].Arg == 300%256, "expected wrapped addend %d, got %d", 300%256, code[0].Arg)
}

func TestIgnoresNonBrainfuckBytes(t *testing.T) {
	code := parse(t, "+. this is a comment .", 2048)
	assert(t, len(code) == 3, "expected comment bytes to be skipped, got %v", code)
	assert(t, code[0].Op == OpIncr && code[1].Op == OpOut && code[2].Op == OpOut,
		"expected Incr, Out, Out, got %v", code)
}

func TestLoopSetZeroPeephole(t *testing.T) {
	code := parse(t, "[-]", 2048)
	assert(t, len(code) == 1, "expected [-] to fold to a single instruction, got %v", code)
	assert(t, code[0].Op == OpLoopSetZero, "expected OpLoopSetZero, got %s", code[0])

	code = parse(t, "[+]", 2048)
	assert(t, code[0].Op == OpLoopSetZero, "expected [+] to also fold (odd increment), got %s", code[0])
}

func TestLoopMvDataPeephole(t *testing.T) {
	code := parse(t, "[->>+<<]", 2048)
	assert(t, len(code) == 1, "expected [->>+<<] to fold to a single instruction, got %v", code)
	assert(t, code[0].Op == OpLoopMvData, "expected OpLoopMvData, got %s", code[0])
	assert(t, code[0].Arg == 2, "expected destination displacement 2, got %d", code[0].Arg)
}

func TestLoopMvDataRejectsMismatchedDisplacement(t *testing.T) {
	// The +/- displacements don't cancel, so this is not the recognised
	// idiom and must fall back to a plain Jmp/Ret pair.
	code := parse(t, "[->>+<]", 2048)
	hasRet := false
	for _, ins := range code {
		if ins.Op == OpRet {
			hasRet = true
		}
		assert(t, ins.Op != OpLoopMvData, "did not expect OpLoopMvData for a mismatched displacement")
	}
	assert(t, hasRet, "expected a plain loop (OpJmp/OpRet), got %v", code)
}

func TestLoopMvPtrPeephole(t *testing.T) {
	code := parse(t, "[>>>]", 2048)
	assert(t, len(code) == 1, "expected [>>>] to fold to a single instruction, got %v", code)
	assert(t, code[0].Op == OpLoopMvPtr, "expected OpLoopMvPtr, got %s", code[0])
	assert(t, code[0].Arg == 3, "expected stride 3, got %d", code[0].Arg)
}

func TestPlainLoopJmpRetPairing(t *testing.T) {
	// "[.]" is not any of the three idioms (Out isn't a fold target), so it
	// stays a real loop: OpJmp, OpOut, OpRet.
	code := parse(t, "[.]", 2048)
	assert(t, len(code) == 3, "expected 3 instructions, got %v", code)
	assert(t, code[0].Op == OpJmp, "expected OpJmp at 0, got %s", code[0])
	assert(t, code[2].Op == OpRet, "expected OpRet at 2, got %s", code[2])

	// Jmp's target is the Ret's index; Ret's target is the Jmp's index.
	assert(t, code[0].Arg == 2, "expected Jmp to target index 2 (the Ret), got %d", code[0].Arg)
	assert(t, code[2].Arg == 0, "expected Ret to target index 0 (the Jmp), got %d", code[2].Arg)
}

func TestNestedLoopsPairCorrectly(t *testing.T) {
	code := parse(t, "[.[.]]", 2048)
	// index: 0 Jmp(outer) 1 Out 2 Jmp(inner) 3 Out 4 Ret(inner) 5 Ret(outer)
	assert(t, len(code) == 6, "expected 6 instructions, got %v", code)
	assert(t, code[0].Op == OpJmp && code[0].Arg == 5, "outer Jmp should target 5, got %s", code[0])
	assert(t, code[2].Op == OpJmp && code[2].Arg == 4, "inner Jmp should target 4, got %s", code[2])
	assert(t, code[4].Op == OpRet && code[4].Arg == 2, "inner Ret should target 2, got %s", code[4])
	assert(t, code[5].Op == OpRet && code[5].Arg == 0, "outer Ret should target 0, got %s", code[5])
}

func TestDisplacementsAreNormalizedModHeapSize(t *testing.T) {
	code := parse(t, ">", 10)
	assert(t, code[0].Arg == 1, "expected unchanged displacement under heapSz, got %d", code[0].Arg)

	code = parse(t, "[>>>>>>>>>>>>]", 10)
	assert(t, code[0].Op == OpLoopMvPtr, "expected OpLoopMvPtr, got %s", code[0])
	assert(t, code[0].Arg == 12%10, "expected stride normalised mod heap size, got %d", code[0].Arg)
}
