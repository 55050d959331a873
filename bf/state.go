package bf

// ProgramState is the complete execution state for one Brainfuck program:
// the folded IR, the tape, the data pointer, the program counter, and the
// (optional) compiled machine code and profile counters. One ProgramState
// is meant to be driven by exactly one of Interpret or JITCompile+JITExec.
type ProgramState struct {
	ptr int
	pc  int

	heap []byte
	txt  Program

	jitCode []byte

	profile *Profile
}

// NewProgramState parses src into IR over a tape of heapSz bytes. A heapSz
// below 1 is clamped to 1. Returns a *NestingError if src contains unmatched
// '[' or ']'.
func NewProgramState(src []byte, heapSz int) (*ProgramState, error) {
	if heapSz < 1 {
		heapSz = 1
	}

	txt, err := parseSource(src, heapSz)
	if err != nil {
		return nil, err
	}

	return &ProgramState{
		heap: make([]byte, heapSz),
		txt:  txt,
	}, nil
}

// EnableProfile turns on per-instruction and per-loop occurrence counting.
// Must be called before Interpret; JITCompile/JITExec never profile.
func (p *ProgramState) EnableProfile() {
	p.profile = newProfile(len(p.txt))
}

// Program returns the parsed, immutable IR for diagnostic printing.
func (p *ProgramState) Program() Program { return p.txt }

// Profile returns the profile counters, or nil if EnableProfile was never
// called.
func (p *ProgramState) Profile() *Profile { return p.profile }

// Heap returns the tape for inspection. Callers must not retain a mutable
// view across further execution if they care about a consistent snapshot.
func (p *ProgramState) Heap() []byte { return p.heap }

// Ptr returns the current data pointer.
func (p *ProgramState) Ptr() int { return p.ptr }

// PC returns the current instruction pointer.
func (p *ProgramState) PC() int { return p.pc }

// HasCompiledCode reports whether a prior JITCompile call produced machine
// code still held by this state.
func (p *ProgramState) HasCompiledCode() bool { return p.jitCode != nil }
