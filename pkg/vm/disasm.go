package vm

import (
	"fmt"

	"github.com/oberon0/risc0/pkg/isa"
)

// Disassemble renders a single decoded instruction back into assembly
// text, in the same mnemonic surface pkg/asm accepts. It is a read-only
// debugging aid — grounded in bassosimone-risc32/pkg/vm's Disassemble —
// used by CLI tracing, never by the VM itself.
func Disassemble(ins isa.Instruction) string {
	switch {
	case ins.IsRegister():
		return fmt.Sprintf("%s R%d,R%d,R%d", ins.Opcode, ins.A, ins.B, ins.C)
	case ins.IsRegisterImmediate():
		return fmt.Sprintf("%s R%d,R%d,%d", ins.Opcode, ins.A, ins.B, ins.Imm)
	case ins.IsMemory():
		mnemonic := "LDW"
		if ins.Store {
			mnemonic = "STW"
		}
		return fmt.Sprintf("%s R%d,R%d,%d", mnemonic, ins.A, ins.B, ins.Offset)
	case ins.IsBranchToRegister():
		return fmt.Sprintf("%s%s R%d", branchMnemonic(ins.Cond), linkSuffix(ins.Link), ins.C)
	case ins.IsBranchByOffset():
		return fmt.Sprintf("%s%s %d", branchMnemonic(ins.Cond), linkSuffix(ins.Link), ins.BOffset)
	default:
		return "<invalid instruction>"
	}
}

func linkSuffix(link bool) string {
	if link {
		return "L"
	}
	return ""
}

func branchMnemonic(cond isa.Condition) string {
	switch cond {
	case isa.AW:
		return "B"
	default:
		return "B" + cond.String()
	}
}
