package bf

import (
	"fmt"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	if !cond {
		t.Fatalf(fmt.Sprintf("%v %s", cond, format), args...)
	}
}

func TestNewProgramStateClampsHeapSize(t *testing.T) {
	p, err := NewProgramState([]byte("+"), 0)
	assert(t, err == nil, "unexpected error: %s", err)
	assert(t, len(p.Heap()) == 1, "expected heap size clamped to 1, got %d", len(p.Heap()))
}

func TestNewProgramStateRejectsUnmatchedOpen(t *testing.T) {
	_, err := NewProgramState([]byte("[+"), 30000)
	var nerr *NestingError
	assert(t, err != nil, "expected a NestingError")
	ok := false
	if e, isNest := err.(*NestingError); isNest {
		nerr = e
		ok = true
	}
	assert(t, ok, "expected *NestingError, got %T", err)
	assert(t, nerr.Pos == 0, "expected unmatched '[' reported at byte 0, got %d", nerr.Pos)
}

func TestNewProgramStateRejectsUnmatchedClose(t *testing.T) {
	_, err := NewProgramState([]byte("+]"), 30000)
	nerr, ok := err.(*NestingError)
	assert(t, ok, "expected *NestingError, got %T", err)
	assert(t, nerr.Pos == 1, "expected unmatched ']' reported at byte 1, got %d", nerr.Pos)
}

func TestEnableProfileSizesCountsToProgram(t *testing.T) {
	p, err := NewProgramState([]byte("+.[-]"), 2048)
	assert(t, err == nil, "unexpected error: %s", err)
	p.EnableProfile()
	assert(t, len(p.Profile().Counts) == len(p.Program()), "Counts should be sized to the IR length")
}
