package main

import (
	"flag"
	"fmt"
	"os"

	"bfjit/bf"
)

const defaultHeapSize = 30000

var (
	engine   = flag.String("e", "interpreter", "execution engine: interpreter or jit")
	verbose  = flag.Bool("v", false, "print the folded IR (and, for -e jit, the compiled buffer's return value)")
	heapSize = flag.Int("heap", defaultHeapSize, "tape size in cells")
)

func init() {
	flag.Parse()
}

func main() {
	args := os.Args[len(os.Args)-flag.NArg():]
	if len(args) == 0 {
		fmt.Println("Usage: bfjit [-e interpreter|jit] [-v] [-heap N] <file 1> [file 2] ... [file N]")
		os.Exit(1)
	}

	if *engine != "interpreter" && *engine != "jit" {
		fmt.Println("Unknown engine:", *engine, "(want interpreter or jit)")
		os.Exit(1)
	}

	failed := false
	for _, path := range args {
		if err := runFile(path); err != nil {
			fmt.Printf("%s: %s\n", path, err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}

// runFile parses and executes one source file start to finish, recovering
// from any internal compiler/codegen panic so one bad file never aborts the
// rest of the batch.
func runFile(path string) (runErr error) {
	defer func() {
		if r := recover(); r != nil {
			runErr = fmt.Errorf("internal error: %v", r)
		}
	}()

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	p, err := bf.NewProgramState(src, *heapSize)
	if err != nil {
		return err
	}

	if *verbose && *engine == "interpreter" {
		for i, instr := range p.Program() {
			fmt.Printf("%d: %s\n", i, instr)
		}
	}

	switch *engine {
	case "interpreter":
		return p.Interpret()
	case "jit":
		if err := p.JITCompile(*verbose); err != nil {
			return err
		}
		code, err := p.JITExec(*verbose)
		if err != nil {
			return err
		}
		if code != 0 {
			return fmt.Errorf("jit run returned a nonzero status (%d)", code)
		}
		return nil
	}
	return nil
}
