// Command asm assembles a RISC assembly source file into its
// machine-code words.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/oberon0/risc0/pkg/asm"
	"github.com/oberon0/risc0/pkg/isa"
)

func main() {
	log.SetFlags(0)
	filename := flag.String("f", "", "assembly source file to assemble")
	output := flag.String("o", "", "output file (default: stdout)")
	flag.Parse()
	if *filename == "" {
		log.Fatal("usage: asm -f <assembly-file> [-o <output-file>]")
	}

	fp, err := os.Open(*filename)
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	defer w.Flush()

	for result := range asm.StartAssembler(fp) {
		if result.Err != nil {
			log.Fatalf("line %d: %v", result.LineIndex+1, result.Err)
		}
		word, err := isa.Encode(result.Instruction)
		if err != nil {
			log.Fatalf("line %d: %v", result.LineIndex+1, err)
		}
		fmt.Fprintf(w, "%08x\n", word)
	}
}
