package bf

import "encoding/binary"

// amd64 register encodings (low 4 bits of the register number; values 8-15
// need REX.R/X/B to reach R8-R15).
const (
	regRAX = 0
	regRCX = 1
	regRDX = 2
	regRBX = 3
	regRSP = 4
	regRBP = 5
	regRDI = 7
	regR12 = 12
	regR13 = 13
)

// Fixed register assignment for the whole compiled function: ptr lives in
// ptrReg for the function's entire lifetime, so no spill code and no phi
// nodes are ever needed.
const (
	baseReg = regR13 // tape base pointer
	ptrReg  = regR12 // data pointer offset
	errReg  = regRBX // error pointer, valid once control reaches exitBlock
)

// condition codes for Jcc/CMOVcc, 0F 8x / 0F 4x.
const (
	ccZ  = 0x4 // ZF=1 (equal / zero)
	ccNZ = 0x5 // ZF=0 (not equal / not zero)
	ccL  = 0xC // SF != OF (signed less)
	ccGE = 0xD // SF == OF (signed greater-or-equal)
)

type fixup struct {
	patchAt int // offset of the rel32 field
	target  blockID
}

// amd64Asm is a small x86-64 encoder and label/fixup table, grounded on the
// fixup-list/resolve pattern of lcox74-bfcc's internal/codegen/linux
// X86_64Generator.
type amd64Asm struct {
	code   []byte
	labels map[blockID]int
	fixups []fixup
}

func newAmd64Asm() *amd64Asm {
	return &amd64Asm{labels: make(map[blockID]int)}
}

func (a *amd64Asm) emit(b ...byte) { a.code = append(a.code, b...) }

func (a *amd64Asm) emitImm32(v int32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(v))
	a.emit(buf[:]...)
}

func (a *amd64Asm) emitImm64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	a.emit(buf[:]...)
}

// bind records the current code offset as block b's address. Must be called
// exactly once per block, at the point control first reaches it.
func (a *amd64Asm) bind(b blockID) {
	a.labels[b] = len(a.code)
}

func rex(w, r, x, b bool) byte {
	v := byte(0x40)
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func ext(reg byte) bool { return reg >= 8 }

func modrmReg(mod, reg, rm byte) byte {
	return mod<<6 | (reg&7)<<3 | (rm & 7)
}

// --- register-to-register / immediate forms (no memory operand) ---

func (a *amd64Asm) movRegReg64(dst, src byte) {
	a.emit(rex(true, ext(src), false, ext(dst)), 0x89, modrmReg(3, src, dst))
}

func (a *amd64Asm) movRegReg32(dst, src byte) {
	r := rex(false, ext(src), false, ext(dst))
	if r != 0x40 {
		a.emit(r)
	}
	a.emit(0x89, modrmReg(3, src, dst))
}

func (a *amd64Asm) xorReg32(dst, src byte) {
	r := rex(false, ext(src), false, ext(dst))
	if r != 0x40 {
		a.emit(r)
	}
	a.emit(0x31, modrmReg(3, src, dst))
}

func (a *amd64Asm) cmpRegImm32(dst byte, imm int32) {
	a.emit(rex(true, false, false, ext(dst)), 0x81, modrmReg(3, 7, dst))
	a.emitImm32(imm)
}

func (a *amd64Asm) cmovcc(cc, dst, src byte) {
	a.emit(rex(true, ext(dst), false, ext(src)), 0x0F, 0x40+cc, modrmReg(3, dst, src))
}

func (a *amd64Asm) testRegReg64(a_, b_ byte) {
	a.emit(rex(true, ext(a_), false, ext(b_)), 0x85, modrmReg(3, a_, b_))
}

// leaRegR12Disp32 computes dst = r12 + disp.
func (a *amd64Asm) leaRegR12Disp32(dst byte, disp int32) {
	a.emit(rex(true, ext(dst), false, true), 0x8D, modrmReg(2, dst, 4), 0x24)
	a.emitImm32(disp)
}

func (a *amd64Asm) pushReg(reg byte) {
	if ext(reg) {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x50 + (reg & 7))
}

func (a *amd64Asm) popReg(reg byte) {
	if ext(reg) {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x58 + (reg & 7))
}

func (a *amd64Asm) addRspImm8(n int8) {
	a.emit(rex(true, false, false, false), 0x83, modrmReg(3, 0, regRSP), byte(n))
}

func (a *amd64Asm) subRspImm8(n int8) {
	a.emit(rex(true, false, false, false), 0x83, modrmReg(3, 5, regRSP), byte(n))
}

func (a *amd64Asm) movRegImm64(dst byte, v uint64) {
	a.emit(rex(true, false, false, ext(dst)), 0xB8+(dst&7))
	a.emitImm64(v)
}

func (a *amd64Asm) callReg(reg byte) {
	a.emit(rex(true, false, false, ext(reg)), 0xFF, modrmReg(3, 2, reg))
}

func (a *amd64Asm) ret() { a.emit(0xC3) }

// --- tape-cell memory operand forms: byte [r13 + index] ---

// memModRMSIB returns the ModRM/SIB/disp8 bytes and whether REX.X must be
// set, for a [r13 + index*1 + 0] operand with the given ModRM.reg field
// (either the source/dest register, or an opcode extension digit).
func memModRMSIB(regField, index byte) (modrm, sib byte, needX bool) {
	modrm = modrmReg(1, regField, 4) // mod=01 (disp8; r13's base field forces this), rm=100 (SIB follows)
	sib = 0<<6 | (index&7)<<3 | (baseReg & 7)
	return modrm, sib, ext(index)
}

func (a *amd64Asm) addMemImm8(index, imm byte) {
	modrm, sib, needX := memModRMSIB(0, index)
	a.emit(rex(false, false, needX, true), 0x80, modrm, sib, 0x00, imm)
}

func (a *amd64Asm) movMemImm8(index, imm byte) {
	modrm, sib, needX := memModRMSIB(0, index)
	a.emit(rex(false, false, needX, true), 0xC6, modrm, sib, 0x00, imm)
}

func (a *amd64Asm) testMemImm8(index, imm byte) {
	modrm, sib, needX := memModRMSIB(0, index)
	a.emit(rex(false, false, needX, true), 0xF6, modrm, sib, 0x00, imm)
}

func (a *amd64Asm) movzxRegMem8(dst, index byte) {
	modrm, sib, needX := memModRMSIB(dst, index)
	a.emit(rex(false, ext(dst), needX, true), 0x0F, 0xB6, modrm, sib, 0x00)
}

func (a *amd64Asm) addMemReg8(index, src byte) {
	modrm, sib, needX := memModRMSIB(src, index)
	a.emit(rex(false, ext(src), needX, true), 0x00, modrm, sib, 0x00)
}

// leaRegBaseIndex computes dst = r13 + r12 (the current tape cell's address),
// for handing a *byte to the read callback.
func (a *amd64Asm) leaRegBaseIndex(dst byte) {
	modrm, sib, _ := memModRMSIB(dst, ptrReg)
	a.emit(rex(true, ext(dst), true, true), 0x8D, modrm, sib, 0x00)
}

// emitPrologue saves the callee-saved registers the function repurposes,
// keeps the stack 16-byte aligned across the CALLs OpOut/OpIn emit, loads
// the tape base from the first argument register, and zeroes ptr.
func (a *amd64Asm) emitPrologue() {
	a.pushReg(regRBP)
	a.movRegReg64(regRBP, regRSP)
	a.pushReg(errReg)
	a.pushReg(ptrReg)
	a.pushReg(baseReg)
	a.subRspImm8(8)
	a.movRegReg64(baseReg, regRDI)
	a.xorReg32(ptrReg, ptrReg)
}

func (a *amd64Asm) emitEpilogue() {
	a.addRspImm8(8)
	a.popReg(baseReg)
	a.popReg(ptrReg)
	a.popReg(errReg)
	a.popReg(regRBP)
	a.ret()
}

// emitReturnZero returns a null pointer: normal termination.
func (a *amd64Asm) emitReturnZero() {
	a.xorReg32(regRAX, regRAX)
	a.emitEpilogue()
}

// emitReturnErr returns errReg: set on the path that jumped to exitBlock.
func (a *amd64Asm) emitReturnErr() {
	a.movRegReg64(regRAX, errReg)
	a.emitEpilogue()
}

// --- control flow: Jcc to a (possibly not-yet-bound) block label ---

func (a *amd64Asm) jcc(cc byte, target blockID) {
	a.emit(0x0F, 0x80+cc)
	patchAt := len(a.code)
	a.emitImm32(0)
	a.fixups = append(a.fixups, fixup{patchAt: patchAt, target: target})
}

// resolve patches every recorded fixup now that all blocks are bound. An
// unbound target is an internal bug (a block the lowering pass forgot to
// bind), not a user-facing JitError.
func (a *amd64Asm) resolve() []byte {
	for _, f := range a.fixups {
		target, ok := a.labels[f.target]
		if !ok {
			panic("bf/jit: unbound block label; internal compiler error")
		}
		rel := int32(target - (f.patchAt + 4))
		binary.LittleEndian.PutUint32(a.code[f.patchAt:], uint32(rel))
	}
	return a.code
}
