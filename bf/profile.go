package bf

// LoopRange is the half-open IR index range [Start, End) that keys a loop
// body's occurrence count: [Jmp_index, Ret_index+1).
type LoopRange struct {
	Start, End int
}

// Profile holds per-instruction and per-loop execution counters. It is
// feature-gated by ProgramState.EnableProfile and only ever populated by
// Interpret — folded loop bodies (LoopSetZero/LoopMvData/LoopMvPtr) have no
// Jmp/Ret index range left to key by, so their frequencies are not
// recorded.
type Profile struct {
	// Counts is indexed by IR instruction index; Counts[pc] is the number of
	// times that instruction was dispatched.
	Counts []uint64

	// Loops maps a loop body's [Jmp_index, Ret_index+1) range to the number
	// of times its closing OpRet was executed.
	Loops map[LoopRange]uint64
}

func newProfile(n int) *Profile {
	return &Profile{
		Counts: make([]uint64, n),
		Loops:  make(map[LoopRange]uint64),
	}
}

func (p *Profile) bump(pc int) {
	p.Counts[pc]++
}

func (p *Profile) bumpLoop(start, end int) {
	p.Loops[LoopRange{Start: start, End: end}]++
}
