// Package vm implements the virtual machine that executes isa.Instruction
// values: a fixed-size register file, a flat word-addressed memory, the
// fetch/decode/execute loop, and the Z/N condition flags that branches
// consult.
//
// The VM owns its registers and memory exclusively; callers only ever see
// them through the read-only Registers and Memory views. The VM is not
// goroutine safe — a single goroutine should drive it, as in
// bassosimone-risc32/pkg/vm.
package vm

import (
	"errors"
	"fmt"

	"github.com/oberon0/risc0/pkg/isa"
)

// MemorySize is the number of 32-bit words of addressable memory.
const MemorySize = 4096

// NumRegisters is the number of general-purpose registers.
const NumRegisters = 16

// FrameBaseReg is the conventional frame-base register (R14) that
// generated code addresses locals against.
const FrameBaseReg = 14

// LinkReg is the conventional link register (R15).
const LinkReg = 15

// The following errors may be returned by VM operations.
var (
	// ErrMaxCycleReached indicates that Execute ran max_cycles
	// instructions without the program branching through a zero
	// register. This is an expected outcome, not an internal error.
	ErrMaxCycleReached = errors.New("vm: max cycle count reached")

	// ErrFault is the root of every fatal in-process condition: an
	// out-of-range memory access, a division or modulo by zero, or an
	// undecodable instruction word.
	ErrFault = errors.New("vm: fault")
)

// VM is a virtual machine instance.
type VM struct {
	regs [NumRegisters]int32
	mem  [MemorySize]int32
	pc   uint32

	z bool // last result == 0
	n bool // last result < 0

	tracer func(pc uint32, ins isa.Instruction)
}

// New returns a freshly zeroed VM.
func New() *VM {
	return &VM{}
}

// SetTracer installs a hook invoked before executing each fetched
// instruction. Pass nil to disable tracing. This keeps pkg/vm free of any
// I/O package: callers (CLI drivers) decide how to render a trace.
func (v *VM) SetTracer(tracer func(pc uint32, ins isa.Instruction)) {
	v.tracer = tracer
}

// Load writes each encoded instruction starting at memory word 0.
func (v *VM) Load(instructions []isa.Instruction) error {
	if len(instructions) > MemorySize {
		return fmt.Errorf("%w: program of %d words does not fit in %d words of memory", ErrFault, len(instructions), MemorySize)
	}
	for i, ins := range instructions {
		w, err := isa.Encode(ins)
		if err != nil {
			return fmt.Errorf("vm: cannot load instruction %d: %w", i, err)
		}
		v.mem[i] = int32(w)
	}
	return nil
}

// Start resets the program counter to zero and initializes the frame-base
// register (R14) to stackBase.
func (v *VM) Start(stackBase int32) {
	v.pc = 0
	v.regs[FrameBaseReg] = stackBase
}

// Registers returns a read-only snapshot of the register file.
func (v *VM) Registers() [NumRegisters]int32 {
	return v.regs
}

// PC returns the current program counter.
func (v *VM) PC() uint32 {
	return v.pc
}

// Flags returns the current Z (zero) and N (negative) condition flags.
func (v *VM) Flags() (z, n bool) {
	return v.z, v.n
}

// Memory returns a read-only copy of count words of memory starting at
// start. It is a fatal error to request a range outside [0, MemorySize).
func (v *VM) Memory(start, count int) ([]int32, error) {
	if start < 0 || count < 0 || start+count > MemorySize {
		return nil, fmt.Errorf("%w: memory view [%d,%d) out of range", ErrFault, start, start+count)
	}
	out := make([]int32, count)
	copy(out, v.mem[start:start+count])
	return out, nil
}

// Execute runs fetch/decode/execute until the program terminates (branches
// through a register holding zero, observed as PC becoming 0) or until
// maxCycles instructions have executed, whichever comes first. It returns
// ErrMaxCycleReached in the latter case — an expected outcome, not a
// fault — leaving VM state inspectable either way.
func (v *VM) Execute(maxCycles int) error {
	v.pc = 0
	for cycles := 0; ; cycles++ {
		if cycles >= maxCycles {
			return ErrMaxCycleReached
		}
		done, err := v.ExecuteNext()
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
}

// ExecuteNext fetches and executes exactly one instruction. It returns
// true when this step caused the program to terminate (PC became 0 after
// the instruction executed).
func (v *VM) ExecuteNext() (bool, error) {
	if v.pc >= MemorySize {
		return false, fmt.Errorf("%w: program counter %d out of range", ErrFault, v.pc)
	}
	raw := uint32(v.mem[v.pc])
	ins, err := isa.Decode(raw)
	if err != nil {
		return false, fmt.Errorf("%w: cannot decode instruction at pc=%d: %v", ErrFault, v.pc, err)
	}
	if v.tracer != nil {
		v.tracer(v.pc, ins)
	}
	v.pc++
	if err := v.execute(ins); err != nil {
		return false, err
	}
	return v.pc == 0, nil
}

func (v *VM) execute(ins isa.Instruction) error {
	switch {
	case ins.IsRegister():
		return v.executeRegister(ins.Opcode, ins.A, ins.B, v.regs[ins.C])
	case ins.IsRegisterImmediate():
		return v.executeRegister(ins.Opcode, ins.A, ins.B, ins.Imm)
	case ins.IsMemory():
		return v.executeMemory(ins)
	case ins.IsBranchToRegister():
		return v.executeBranch(ins.Cond, ins.Link, v.regs[ins.C])
	case ins.IsBranchByOffset():
		return v.executeBranch(ins.Cond, ins.Link, int32(v.pc)+ins.BOffset)
	default:
		return fmt.Errorf("%w: unrecognized instruction", ErrFault)
	}
}

func (v *VM) executeRegister(op isa.Opcode, a, b uint8, operand int32) error {
	rb := v.regs[b]
	var result int32
	switch op {
	case isa.MOV:
		result = operand
	case isa.LSL:
		result = rb << uint32(operand)
	case isa.ASR:
		result = rb >> uint32(operand)
	case isa.ROR:
		if operand >= 0 {
			result = int32(rotateRight(uint32(rb), uint32(operand)))
		} else {
			result = int32(rotateLeft(uint32(rb), uint32(-operand)))
		}
	case isa.AND:
		result = rb & operand
	case isa.ANN:
		result = rb &^ operand
	case isa.IOR:
		result = rb | operand
	case isa.XOR:
		result = rb ^ operand
	case isa.ADD:
		result = rb + operand
	case isa.SUB:
		result = rb - operand
	case isa.MUL:
		result = rb * operand
	case isa.DIV:
		if operand == 0 {
			return fmt.Errorf("%w: division by zero", ErrFault)
		}
		result = rb / operand
	case isa.MOD:
		if operand == 0 {
			return fmt.Errorf("%w: modulo by zero", ErrFault)
		}
		result = rb % operand
	default:
		return fmt.Errorf("%w: unrecognized opcode %v", ErrFault, op)
	}
	v.regs[a] = result
	v.updateFlags(a)
	return nil
}

func (v *VM) executeMemory(ins isa.Instruction) error {
	addr := v.regs[ins.B] + int32(ins.Offset)
	if addr < 0 || int(addr) >= MemorySize {
		return fmt.Errorf("%w: memory address %d out of range", ErrFault, addr)
	}
	if ins.Store {
		v.mem[addr] = v.regs[ins.A]
		return nil
	}
	v.regs[ins.A] = v.mem[addr]
	v.updateFlags(ins.A)
	return nil
}

func (v *VM) executeBranch(cond isa.Condition, link bool, target int32) error {
	if !cond.Holds(v.z, v.n) {
		return nil
	}
	if link {
		v.regs[LinkReg] = int32(v.pc)
	}
	v.pc = uint32(target)
	return nil
}

func (v *VM) updateFlags(a uint8) {
	v.z = v.regs[a] == 0
	v.n = v.regs[a] < 0
}

func rotateRight(v uint32, n uint32) uint32 {
	n %= 32
	return (v >> n) | (v << (32 - n))
}

func rotateLeft(v uint32, n uint32) uint32 {
	n %= 32
	return (v << n) | (v >> (32 - n))
}
