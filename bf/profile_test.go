package bf

import "testing"

func TestProfileCountsLoopOccurrences(t *testing.T) {
	// "[.-]" contains an Out, so it is not peephole-eligible and stays a
	// plain Jmp/Out/Incr/Ret loop; it runs exactly 3 times (cell 3 -> 0).
	p, err := NewProgramState([]byte("+++[.-]"), 2048)
	assert(t, err == nil, "unexpected error: %s", err)
	p.EnableProfile()
	assert(t, p.Interpret() == nil, "unexpected interpret error")

	foundLoop := false
	for rng, count := range p.Profile().Loops {
		assert(t, count == 3, "expected loop range %v to have run 3 times, got %d", rng, count)
		foundLoop = true
	}
	assert(t, foundLoop, "expected at least one profiled loop range")
}

func TestProfileSkipsFoldedLoops(t *testing.T) {
	p, err := NewProgramState([]byte("+++[-]"), 2048)
	assert(t, err == nil, "unexpected error: %s", err)
	p.EnableProfile()
	assert(t, p.Interpret() == nil, "unexpected interpret error")
	assert(t, len(p.Profile().Loops) == 0, "expected no loop ranges for a folded LoopSetZero, got %v", p.Profile().Loops)
}
