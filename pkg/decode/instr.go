// Package decode implements the instruction decoder: a pure function from a
// 32-bit instruction word to a tagged Instr value with all fields already
// extracted, so the executor never has to re-inspect the raw word. This is
// the teacher's DecodeOpcode/DecodeRA/DecodeRB/DecodeRC/Decode approach
// (pkg/vm/vm.go) generalized from the 3-register-field RiSC-32 formats to
// the five RISC-V immediate encodings (I, S, B, U, J) and the full
// RV32IMA_Zicsr_Zifencei opcode space.
package decode

import "fmt"

// Kind tags which instruction variant was decoded.
type Kind int

const (
	KindIllegal Kind = iota

	KindLUI
	KindAUIPC
	KindJAL
	KindJALR

	KindBEQ
	KindBNE
	KindBLT
	KindBGE
	KindBLTU
	KindBGEU

	KindLB
	KindLH
	KindLW
	KindLBU
	KindLHU

	KindSB
	KindSH
	KindSW

	KindADDI
	KindSLTI
	KindSLTIU
	KindXORI
	KindORI
	KindANDI
	KindSLLI
	KindSRLI
	KindSRAI

	KindADD
	KindSUB
	KindSLL
	KindSLT
	KindSLTU
	KindXOR
	KindSRL
	KindSRA
	KindOR
	KindAND

	KindFENCE
	KindFENCEI

	KindECALL
	KindEBREAK
	KindMRET
	KindSRET
	KindWFI
	KindSFENCEVMA

	KindCSRRW
	KindCSRRS
	KindCSRRC
	KindCSRRWI
	KindCSRRSI
	KindCSRRCI

	KindMUL
	KindMULH
	KindMULHSU
	KindMULHU
	KindDIV
	KindDIVU
	KindREM
	KindREMU

	KindLRW
	KindSCW
	KindAMOSWAPW
	KindAMOADDW
	KindAMOXORW
	KindAMOANDW
	KindAMOORW
	KindAMOMINW
	KindAMOMAXW
	KindAMOMINUW
	KindAMOMAXUW
)

var kindNames = map[Kind]string{
	KindIllegal:   "illegal",
	KindLUI:       "lui",
	KindAUIPC:     "auipc",
	KindJAL:       "jal",
	KindJALR:      "jalr",
	KindBEQ:       "beq",
	KindBNE:       "bne",
	KindBLT:       "blt",
	KindBGE:       "bge",
	KindBLTU:      "bltu",
	KindBGEU:      "bgeu",
	KindLB:        "lb",
	KindLH:        "lh",
	KindLW:        "lw",
	KindLBU:       "lbu",
	KindLHU:       "lhu",
	KindSB:        "sb",
	KindSH:        "sh",
	KindSW:        "sw",
	KindADDI:      "addi",
	KindSLTI:      "slti",
	KindSLTIU:     "sltiu",
	KindXORI:      "xori",
	KindORI:       "ori",
	KindANDI:      "andi",
	KindSLLI:      "slli",
	KindSRLI:      "srli",
	KindSRAI:      "srai",
	KindADD:       "add",
	KindSUB:       "sub",
	KindSLL:       "sll",
	KindSLT:       "slt",
	KindSLTU:      "sltu",
	KindXOR:       "xor",
	KindSRL:       "srl",
	KindSRA:       "sra",
	KindOR:        "or",
	KindAND:       "and",
	KindFENCE:     "fence",
	KindFENCEI:    "fence.i",
	KindECALL:     "ecall",
	KindEBREAK:    "ebreak",
	KindMRET:      "mret",
	KindSRET:      "sret",
	KindWFI:       "wfi",
	KindSFENCEVMA: "sfence.vma",
	KindCSRRW:     "csrrw",
	KindCSRRS:     "csrrs",
	KindCSRRC:     "csrrc",
	KindCSRRWI:    "csrrwi",
	KindCSRRSI:    "csrrsi",
	KindCSRRCI:    "csrrci",
	KindMUL:       "mul",
	KindMULH:      "mulh",
	KindMULHSU:    "mulhsu",
	KindMULHU:     "mulhu",
	KindDIV:       "div",
	KindDIVU:      "divu",
	KindREM:       "rem",
	KindREMU:      "remu",
	KindLRW:       "lr.w",
	KindSCW:       "sc.w",
	KindAMOSWAPW:  "amoswap.w",
	KindAMOADDW:   "amoadd.w",
	KindAMOXORW:   "amoxor.w",
	KindAMOANDW:   "amoand.w",
	KindAMOORW:    "amoor.w",
	KindAMOMINW:   "amomin.w",
	KindAMOMAXW:   "amomax.w",
	KindAMOMINUW:  "amominu.w",
	KindAMOMAXUW:  "amomaxu.w",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsCSR reports whether k is one of the six CSRRW/S/C[,I] variants.
func (k Kind) IsCSR() bool {
	return k >= KindCSRRW && k <= KindCSRRCI
}

// IsAMO reports whether k is LR.W, SC.W, or one of the AMO*.W variants.
func (k Kind) IsAMO() bool {
	return k >= KindLRW && k <= KindAMOMAXUW
}

// Instr is a fully decoded instruction: the kind plus every field the
// executor might need, already extracted and sign-extended where the ISA
// calls for it. Unused fields for a given Kind are simply left zero.
type Instr struct {
	Kind   Kind
	Raw    uint32
	RD     uint32
	RS1    uint32
	RS2    uint32
	Imm    int32
	Shamt  uint32
	CSR    uint32
	ZImm   uint32 // 5-bit zero-extended source for CSRR{W,S,C}I
}

// String renders a disassembly-style line for tracing, grounded in the
// teacher's vm.Disassemble.
func (in Instr) String() string {
	switch {
	case in.Kind == KindIllegal:
		return fmt.Sprintf("<illegal: 0x%08x>", in.Raw)
	case in.Kind.IsCSR():
		if in.Kind == KindCSRRWI || in.Kind == KindCSRRSI || in.Kind == KindCSRRCI {
			return fmt.Sprintf("%s x%d, 0x%03x, %d", in.Kind, in.RD, in.CSR, in.ZImm)
		}
		return fmt.Sprintf("%s x%d, 0x%03x, x%d", in.Kind, in.RD, in.CSR, in.RS1)
	case in.Kind == KindLUI || in.Kind == KindAUIPC:
		return fmt.Sprintf("%s x%d, 0x%x", in.Kind, in.RD, uint32(in.Imm)>>12)
	case in.Kind == KindJAL:
		return fmt.Sprintf("%s x%d, %d", in.Kind, in.RD, in.Imm)
	case in.Kind == KindJALR:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Kind, in.RD, in.RS1, in.Imm)
	case in.Kind >= KindBEQ && in.Kind <= KindBGEU:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Kind, in.RS1, in.RS2, in.Imm)
	case in.Kind >= KindLB && in.Kind <= KindLHU:
		return fmt.Sprintf("%s x%d, %d(x%d)", in.Kind, in.RD, in.Imm, in.RS1)
	case in.Kind >= KindSB && in.Kind <= KindSW:
		return fmt.Sprintf("%s x%d, %d(x%d)", in.Kind, in.RS2, in.Imm, in.RS1)
	case in.Kind >= KindSLLI && in.Kind <= KindSRAI:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Kind, in.RD, in.RS1, in.Shamt)
	case in.Kind >= KindADDI && in.Kind <= KindANDI:
		return fmt.Sprintf("%s x%d, x%d, %d", in.Kind, in.RD, in.RS1, in.Imm)
	case in.Kind >= KindADD && in.Kind <= KindAND, in.Kind >= KindMUL && in.Kind <= KindREMU:
		return fmt.Sprintf("%s x%d, x%d, x%d", in.Kind, in.RD, in.RS1, in.RS2)
	case in.Kind == KindLRW:
		return fmt.Sprintf("%s x%d, (x%d)", in.Kind, in.RD, in.RS1)
	case in.Kind.IsAMO():
		return fmt.Sprintf("%s x%d, x%d, (x%d)", in.Kind, in.RD, in.RS2, in.RS1)
	default:
		return in.Kind.String()
	}
}
