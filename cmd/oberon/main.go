// Command oberon compiles and runs an Oberon-0 source module.
package main

import (
	"errors"
	"flag"
	"log"
	"os"

	"github.com/oberon0/risc0/pkg/config"
	"github.com/oberon0/risc0/pkg/isa"
	"github.com/oberon0/risc0/pkg/oberon"
	"github.com/oberon0/risc0/pkg/vm"
)

func main() {
	log.SetFlags(0)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	filename := flag.String("f", "", "Oberon-0 source file to compile and run")
	verbose := flag.Bool("v", cfg.Execution.EnableTrace, "trace every executed instruction")
	maxCycles := flag.Uint64("max-cycles", cfg.Execution.MaxCycles, "cycle bound before aborting")
	stackBase := flag.Int64("stack-base", int64(cfg.Execution.StackBase), "initial value of the frame-base register (R14)")
	dumpVars := flag.Bool("vars", true, "print declared variables after the run")
	flag.Parse()
	if *filename == "" {
		log.Fatal("usage: oberon [-v] [-vars] -f <source-file>")
	}

	source, err := os.ReadFile(*filename)
	if err != nil {
		log.Fatal(err)
	}

	result, err := oberon.Compile(string(source))
	if err != nil {
		log.Fatal(err)
	}

	machine := vm.New()
	if *verbose {
		machine.SetTracer(func(pc uint32, ins isa.Instruction) {
			log.Printf("vm: pc=%04d %s", pc, vm.Disassemble(ins))
		})
	}
	if err := machine.Load(result.Instructions); err != nil {
		log.Fatal(err)
	}
	machine.Start(int32(*stackBase))

	runErr := machine.Execute(int(*maxCycles))
	if runErr != nil && !errors.Is(runErr, vm.ErrMaxCycleReached) {
		log.Fatal(runErr)
	}
	if runErr != nil {
		log.Printf("oberon: %v", runErr)
	}

	if *dumpVars {
		printVariables(machine, result, int32(*stackBase))
	}
}

// printVariables reads each declared variable back out of memory.
// Generated code addresses a variable as frame_base + sym.Address (see
// pkg/codegen), so the read must apply the same offset the VM's frame-base
// register (R14) was seeded with at Start.
func printVariables(machine *vm.VM, result oberon.Result, stackBase int32) {
	for _, name := range result.Scope.Names() {
		sym := result.Scope.Lookup(name)
		words, err := machine.Memory(int(stackBase)+sym.Address, sym.Size)
		if err != nil {
			log.Printf("%s: %v", name, err)
			continue
		}
		if sym.Size == 1 {
			log.Printf("%s = %d", name, words[0])
		} else {
			log.Printf("%s = %v", name, words)
		}
	}
}
