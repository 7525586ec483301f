// Command vm runs a file of assembled machine-code words (one
// hex-encoded 32-bit word per line, as produced by cmd/asm) to
// completion.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/oberon0/risc0/pkg/config"
	"github.com/oberon0/risc0/pkg/isa"
	"github.com/oberon0/risc0/pkg/vm"
)

func main() {
	log.SetFlags(0)
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	filename := flag.String("f", "", "machine-code file to run")
	verbose := flag.Bool("v", cfg.Execution.EnableTrace, "trace every executed instruction")
	maxCycles := flag.Uint64("max-cycles", cfg.Execution.MaxCycles, "cycle bound before aborting")
	stackBase := flag.Int64("stack-base", int64(cfg.Execution.StackBase), "initial value of the frame-base register (R14)")
	flag.Parse()
	if *filename == "" {
		log.Fatal("usage: vm [-v] -f <machine-code-file>")
	}

	instructions, err := readWords(*filename)
	if err != nil {
		log.Fatal(err)
	}

	machine := vm.New()
	if *verbose {
		machine.SetTracer(func(pc uint32, ins isa.Instruction) {
			log.Printf("vm: pc=%04d %s", pc, vm.Disassemble(ins))
		})
	}
	if err := machine.Load(instructions); err != nil {
		log.Fatal(err)
	}
	machine.Start(int32(*stackBase))

	if err := machine.Execute(int(*maxCycles)); err != nil {
		if errors.Is(err, vm.ErrMaxCycleReached) {
			log.Printf("vm: %v", err)
			return
		}
		log.Fatal(err)
	}
}

func readWords(filename string) ([]isa.Instruction, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	var out []isa.Instruction
	scanner := bufio.NewScanner(fp)
	for lineIndex := 0; scanner.Scan(); lineIndex++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		word, err := strconv.ParseUint(line, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineIndex+1, err)
		}
		ins, err := isa.Decode(uint32(word))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineIndex+1, err)
		}
		out = append(out, ins)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
