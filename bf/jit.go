package bf

import "fmt"

// emitWrapToReg computes, into RCX, (ptrReg + d) wrapped into [0, heapSz),
// using a branchless compare-then-CMOVcc select instead of a local jump, so
// no extra block or label is needed for a single displacement add. Callers
// that need the wrapped value back in ptrReg itself (OpMv, OpLoopMvPtr) move
// RCX into ptrReg afterward; OpLoopMvData instead uses RCX directly as the
// destination cell's index register.
func emitWrapToReg(asm *amd64Asm, d int64, heapSz int) {
	if d == 0 {
		asm.movRegReg64(regRCX, ptrReg)
		return
	}

	L := int32(heapSz)
	d32 := int32(d)

	asm.leaRegR12Disp32(regRCX, d32) // tgt = ptr + d

	if d32 > 0 {
		wrapped := d32 - L
		asm.leaRegR12Disp32(regRDX, wrapped)
		asm.cmpRegImm32(regRCX, L)
		asm.cmovcc(ccGE, regRCX, regRDX) // tgt >= L -> wrapped
	} else {
		wrapped := d32 + L
		asm.leaRegR12Disp32(regRDX, wrapped)
		asm.cmpRegImm32(regRCX, 0)
		asm.cmovcc(ccL, regRCX, regRDX) // tgt < 0 -> wrapped
	}
}

// JITCompile lowers the parsed IR into a self-contained x86-64 function
// buffer and stores it on the ProgramState for a later JITExec. The
// compiled function takes one argument (a pointer to the tape, passed in
// RDI on entry) and returns a pointer-sized value: null on success, or the
// address of a boxed *CallbackError from a failed OpOut/OpIn.
//
// emitIR, when true, prints the folded IR before assembling it, useful
// alongside -v for comparing what the interpreter and the JIT each saw.
func (p *ProgramState) JITCompile(emitIR bool) error {
	if emitIR {
		for i, instr := range p.txt {
			fmt.Printf("%d: %s\n", i, instr)
		}
	}

	heapSz := len(p.heap)
	asm := newAmd64Asm()
	cfg := newCFGBuilder()

	entry := cfg.newBlock()
	exitBlock := cfg.newBlock()
	cfg.seal(entry)
	cur := entry

	asm.bind(entry)
	asm.emitPrologue()

	writeAddr, readAddr := callbackAddrs()

	for _, instr := range p.txt {
		switch instr.Op {
		case OpIncr:
			asm.addMemImm8(ptrReg, byte(instr.Arg))

		case OpLoopSetZero:
			asm.movMemImm8(ptrReg, 0)

		case OpMv:
			emitWrapToReg(asm, instr.Arg, heapSz)
			asm.movRegReg64(ptrReg, regRCX)

		case OpLoopMvData:
			asm.movzxRegMem8(regRAX, ptrReg)
			emitWrapToReg(asm, instr.Arg, heapSz)
			asm.addMemReg8(regRCX, regRAX)
			asm.movMemImm8(ptrReg, 0)

		case OpLoopMvPtr:
			loopBB := cfg.newBlock()
			loopExit := cfg.newBlock()

			asm.testMemImm8(ptrReg, 0xFF)
			asm.jcc(ccZ, loopExit)
			cfg.addPred(loopBB, cur)
			cfg.addPred(loopExit, cur)

			asm.bind(loopBB)
			emitWrapToReg(asm, instr.Arg, heapSz)
			asm.movRegReg64(ptrReg, regRCX)
			asm.testMemImm8(ptrReg, 0xFF)
			asm.jcc(ccNZ, loopBB)
			cfg.addPred(loopBB, loopBB)
			cfg.addPred(loopExit, loopBB)
			cfg.seal(loopBB)
			cfg.seal(loopExit)

			asm.bind(loopExit)
			cur = loopExit

		case OpOut:
			asm.movzxRegMem8(regRAX, ptrReg)
			asm.movRegReg32(regRDI, regRAX)
			asm.movRegImm64(regRAX, uint64(writeAddr))
			asm.callReg(regRAX)
			asm.movRegReg64(errReg, regRAX)
			asm.testRegReg64(regRAX, regRAX)
			asm.jcc(ccNZ, exitBlock)

			after := cfg.newBlock()
			cfg.addPred(after, cur)
			cfg.seal(after)
			asm.bind(after)
			cur = after

		case OpIn:
			asm.leaRegBaseIndex(regRDI)
			asm.movRegImm64(regRAX, uint64(readAddr))
			asm.callReg(regRAX)
			asm.movRegReg64(errReg, regRAX)
			asm.testRegReg64(regRAX, regRAX)
			asm.jcc(ccNZ, exitBlock)

			after := cfg.newBlock()
			cfg.addPred(after, cur)
			cfg.seal(after)
			asm.bind(after)
			cur = after

		case OpJmp:
			lb := cfg.openLoop(cur)
			asm.testMemImm8(ptrReg, 0xFF)
			asm.jcc(ccZ, lb.after)
			asm.bind(lb.body)
			cur = lb.body

		case OpRet:
			lb, err := cfg.closeLoop(cur)
			if err != nil {
				return err
			}
			asm.testMemImm8(ptrReg, 0xFF)
			asm.jcc(ccNZ, lb.body)
			asm.bind(lb.after)
			cur = lb.after
		}
	}

	asm.emitReturnZero()

	asm.bind(exitBlock)
	asm.emitReturnErr()
	cfg.seal(exitBlock)

	code := asm.resolve()
	p.jitCode = append([]byte(nil), code...)

	if emitIR {
		fmt.Printf("jit: compiled code buffer = %v\n", p.jitCode)
	}

	return nil
}
