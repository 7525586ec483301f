// Package asm assembles the textual mnemonic language described in
// spec.md §4.3 into isa.Instruction values.
//
// Assembly is two-pass, the way bassosimone-risc32/pkg/asm drives its
// lexer and parser over a channel: pass one walks every line once to
// record the instruction index of every label; pass two walks the lines
// again, this time resolving operands (registers, named constants, and
// label references) against the tables pass one built.
package asm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oberon0/risc0/pkg/isa"
)

// ErrSyntax is the sentinel every SyntaxError wraps.
var ErrSyntax = errors.New("asm: syntax error")

// SyntaxError reports a line the assembler could not parse.
type SyntaxError struct {
	LineIndex int
	Line      string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("asm: syntax error at line %d: %q", e.LineIndex, e.Line)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

// Result is either a successfully assembled instruction or the error that
// occurred assembling its source line.
type Result struct {
	Instruction isa.Instruction
	Err         error
	LineIndex   int
}

// StartAssembler starts the assembler in a background goroutine and
// returns a channel of results, one per source instruction.
func StartAssembler(r io.Reader) <-chan Result {
	out := make(chan Result)
	go AssemblerAsync(r, out)
	return out
}

// AssemblerAsync runs the two-pass assembler, reading source lines from r
// and writing one Result per emitted instruction (or the first error) to
// out. It closes out before returning.
func AssemblerAsync(r io.Reader, out chan<- Result) {
	defer close(out)

	lines, err := readLines(r)
	if err != nil {
		out <- Result{Err: err}
		return
	}

	labels, constants, err := firstPass(lines)
	if err != nil {
		out <- Result{Err: err}
		return
	}

	index := 0
	for lineIndex, raw := range lines {
		body, isInstruction := stripLine(raw)
		if !isInstruction {
			continue
		}
		if rest, ok := stripLabel(body); ok {
			body = rest
		}
		ins, err := parseInstruction(body, index, labels, constants)
		if err != nil {
			out <- Result{Err: &SyntaxError{LineIndex: lineIndex, Line: raw}, LineIndex: lineIndex}
			return
		}
		out <- Result{Instruction: ins, LineIndex: lineIndex}
		index++
	}
}

// Assemble runs the assembler synchronously over text and returns the
// fully resolved instruction sequence, or the first error encountered.
func Assemble(text string) ([]isa.Instruction, error) {
	out := StartAssembler(strings.NewReader(text))
	var program []isa.Instruction
	for r := range out {
		if r.Err != nil {
			return nil, r.Err
		}
		program = append(program, r.Instruction)
	}
	return program, nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("asm: cannot read source: %w", err)
	}
	return lines, nil
}

// firstPass records the instruction index of every @LABEL and the value
// of every #CONSTANT definition, without resolving any operand.
func firstPass(lines []string) (labels map[string]int, constants map[string]int32, err error) {
	labels = make(map[string]int)
	constants = make(map[string]int32)
	index := 0
	for lineIndex, raw := range lines {
		body, isInstruction := stripLine(raw)
		if !isInstruction {
			continue
		}
		if strings.HasPrefix(body, "#") {
			name, value, ok := parseConstantDef(body)
			if !ok {
				return nil, nil, &SyntaxError{LineIndex: lineIndex, Line: raw}
			}
			constants[name] = value
			continue
		}
		if name, ok := labelName(body); ok {
			labels[name] = index
		}
		index++
	}
	return labels, constants, nil
}

// stripLine strips comments and trailing whitespace from a raw source
// line, returning the remaining body and whether it still holds an
// instruction or constant definition (false for blank lines and full-line
// comments starting with '*').
func stripLine(raw string) (string, bool) {
	line := raw
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "*") {
		return "", false
	}
	return line, true
}

func parseConstantDef(body string) (string, int32, bool) {
	fields := strings.Fields(body)
	if len(fields) != 2 {
		return "", 0, false
	}
	value, err := strconv.ParseInt(fields[1], 10, 32)
	if err != nil {
		return "", 0, false
	}
	return fields[0], int32(value), true
}

// labelName reports the @NAME prefixing an instruction line, if any.
func labelName(body string) (string, bool) {
	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "@") {
		return "", false
	}
	return fields[0], true
}

// stripLabel removes a leading @NAME token from an instruction line.
func stripLabel(body string) (string, bool) {
	fields := strings.Fields(body)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "@") {
		return body, false
	}
	return strings.TrimSpace(strings.TrimPrefix(body, fields[0])), true
}

func parseInstruction(body string, index int, labels map[string]int, constants map[string]int32) (isa.Instruction, error) {
	fields := strings.SplitN(body, " ", 2)
	fields[0] = strings.TrimSpace(fields[0])
	if len(fields) < 2 {
		return isa.Instruction{}, fmt.Errorf("missing operands")
	}
	op := fields[0]
	params := strings.TrimSpace(fields[1])

	if opcode, ok := registerOpcode(op); ok {
		return parseRegisterForm(opcode, params, constants)
	}
	if op == "LDW" || op == "STW" {
		return parseMemoryForm(op == "STW", params, constants)
	}
	if cond, link, ok := branchMnemonic(op); ok {
		return parseBranchForm(cond, link, params, index, labels, constants)
	}
	return isa.Instruction{}, fmt.Errorf("unrecognized mnemonic %q", op)
}

func parseRegisterForm(op isa.Opcode, params string, constants map[string]int32) (isa.Instruction, error) {
	fields := strings.Split(params, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	if op == isa.MOV && len(fields) == 2 {
		if c, err := parseRegister(fields[1]); err == nil {
			a, err := parseRegister(fields[0])
			if err != nil {
				return isa.Instruction{}, err
			}
			return isa.NewRegister(op, a, 0, c), nil
		}
		a, err := parseRegister(fields[0])
		if err != nil {
			return isa.Instruction{}, err
		}
		imm, err := parseImmediate(fields[1], constants)
		if err != nil {
			return isa.Instruction{}, err
		}
		return isa.NewRegisterImmediate(op, a, 0, imm), nil
	}

	if len(fields) == 3 {
		a, errA := parseRegister(fields[0])
		b, errB := parseRegister(fields[1])
		if errA == nil && errB == nil {
			if c, err := parseRegister(fields[2]); err == nil {
				return isa.NewRegister(op, a, b, c), nil
			}
			imm, err := parseImmediate(fields[2], constants)
			if err != nil {
				return isa.Instruction{}, err
			}
			return isa.NewRegisterImmediate(op, a, b, imm), nil
		}
	}
	return isa.Instruction{}, fmt.Errorf("malformed operands %q for %s", params, op)
}

func parseMemoryForm(store bool, params string, constants map[string]int32) (isa.Instruction, error) {
	fields := strings.Split(params, ",")
	if len(fields) != 3 {
		return isa.Instruction{}, fmt.Errorf("malformed memory operands %q", params)
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	a, err := parseRegister(fields[0])
	if err != nil {
		return isa.Instruction{}, err
	}
	b, err := parseRegister(fields[1])
	if err != nil {
		return isa.Instruction{}, err
	}
	offset, err := parseImmediate(fields[2], constants)
	if err != nil {
		return isa.Instruction{}, err
	}
	if offset < 0 {
		return isa.Instruction{}, fmt.Errorf("negative memory offset %d", offset)
	}
	return isa.NewMemory(store, a, b, uint32(offset)), nil
}

func parseBranchForm(cond isa.Condition, link bool, params string, index int, labels map[string]int, constants map[string]int32) (isa.Instruction, error) {
	if c, err := parseRegister(params); err == nil {
		return isa.NewBranchToRegister(cond, c, link), nil
	}
	offset, err := parseBranchOffset(params, index, labels, constants)
	if err != nil {
		return isa.Instruction{}, err
	}
	return isa.NewBranchByOffset(cond, offset, link), nil
}

func parseRegister(s string) (uint8, error) {
	if len(s) < 2 || s[0] != 'R' {
		return 0, fmt.Errorf("not a register: %q", s)
	}
	n, err := strconv.ParseUint(s[1:], 10, 8)
	if err != nil || n > 15 {
		return 0, fmt.Errorf("not a register: %q", s)
	}
	return uint8(n), nil
}

// parseImmediate resolves a #NAME constant reference or a bare signed
// integer literal.
func parseImmediate(s string, constants map[string]int32) (int32, error) {
	if v, ok := constants[s]; ok {
		return v, nil
	}
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an immediate: %q", s)
	}
	return int32(v), nil
}

// parseBranchOffset resolves @NAME to a PC-relative displacement, falls
// back to a #NAME constant, then to a bare integer literal.
//
// The VM increments PC before executing a branch, so by the time a
// BranchByOffset instruction at index i fires, PC already holds i+1. The
// stored displacement must therefore be (label index) − (i + 1), not a
// plain label−current difference, for the target to land on the labeled
// instruction.
func parseBranchOffset(s string, index int, labels map[string]int, constants map[string]int32) (int32, error) {
	if target, ok := labels[s]; ok {
		return int32(target - index - 1), nil
	}
	return parseImmediate(s, constants)
}

func registerOpcode(s string) (isa.Opcode, bool) {
	switch s {
	case "MOV":
		return isa.MOV, true
	case "LSL":
		return isa.LSL, true
	case "ASR":
		return isa.ASR, true
	case "ROR":
		return isa.ROR, true
	case "AND":
		return isa.AND, true
	case "ANN":
		return isa.ANN, true
	case "IOR":
		return isa.IOR, true
	case "XOR":
		return isa.XOR, true
	case "ADD":
		return isa.ADD, true
	case "SUB":
		return isa.SUB, true
	case "MUL":
		return isa.MUL, true
	case "DIV":
		return isa.DIV, true
	case "MOD":
		return isa.MOD, true
	default:
		return 0, false
	}
}

func branchMnemonic(s string) (isa.Condition, bool, bool) {
	switch s {
	case "BMI":
		return isa.MI, false, true
	case "BEQ":
		return isa.EQ, false, true
	case "BLT":
		return isa.LT, false, true
	case "BLE":
		return isa.LE, false, true
	case "B":
		return isa.AW, false, true
	case "BPL":
		return isa.PL, false, true
	case "BNE":
		return isa.NE, false, true
	case "BGE":
		return isa.GE, false, true
	case "BGT":
		return isa.GT, false, true
	case "BMIL":
		return isa.MI, true, true
	case "BEQL":
		return isa.EQ, true, true
	case "BLTL":
		return isa.LT, true, true
	case "BLEL":
		return isa.LE, true, true
	case "BL":
		return isa.AW, true, true
	case "BPLL":
		return isa.PL, true, true
	case "BNEL":
		return isa.NE, true, true
	case "BGEL":
		return isa.GE, true, true
	case "BGTL":
		return isa.GT, true, true
	default:
		return 0, false, false
	}
}
