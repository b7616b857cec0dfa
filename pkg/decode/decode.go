package decode

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// Opcodes, per spec.md §4.1.
const (
	opOP      = 0b0110011
	opOPIMM   = 0b0010011
	opLUI     = 0b0110111
	opAUIPC   = 0b0010111
	opLOAD    = 0b0000011
	opSTORE   = 0b0100011
	opJAL     = 0b1101111
	opJALR    = 0b1100111
	opBRANCH  = 0b1100011
	opMISCMEM = 0b0001111
	opSYSTEM  = 0b1110011
	opAMO     = 0b0101111
)

func bits(word uint32, hi, lo uint) uint32 {
	return (word >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func signExtend(value uint32, signBit uint) int32 {
	shift := 31 - signBit
	return int32(value<<shift) >> shift
}

func immI(word uint32) int32 { return signExtend(word>>20, 11) }

func immS(word uint32) int32 {
	v := bits(word, 31, 25)<<5 | bits(word, 11, 7)
	return signExtend(v, 11)
}

func immB(word uint32) int32 {
	v := bits(word, 31, 31)<<12 | bits(word, 7, 7)<<11 |
		bits(word, 30, 25)<<5 | bits(word, 11, 8)<<1
	return signExtend(v, 12)
}

func immU(word uint32) int32 {
	return int32(word & 0xffff_f000)
}

func immJ(word uint32) int32 {
	v := bits(word, 31, 31)<<20 | bits(word, 19, 12)<<12 |
		bits(word, 20, 20)<<11 | bits(word, 30, 21)<<1
	return signExtend(v, 20)
}

func illegal(word uint32) (Instr, error) {
	return Instr{Kind: KindIllegal, Raw: word}, trapcause.Exception(trapcause.IllegalInstr, word)
}

// Decode decodes a 32-bit instruction word into a tagged Instr, or returns
// an IllegalInstr trap when the opcode/funct3/funct7 combination is outside
// the recognized RV32IMA_Zicsr_Zifencei set. Pure function: it performs no
// side effects and consults no CPU state, per spec.md §4.1.
func Decode(word uint32) (Instr, error) {
	opcode := bits(word, 6, 0)
	rd := bits(word, 11, 7)
	funct3 := bits(word, 14, 12)
	rs1 := bits(word, 19, 15)
	rs2 := bits(word, 24, 20)
	funct7 := bits(word, 31, 25)

	base := Instr{Raw: word, RD: rd, RS1: rs1, RS2: rs2}

	switch opcode {
	case opLUI:
		base.Kind = KindLUI
		base.Imm = immU(word)
		return base, nil

	case opAUIPC:
		base.Kind = KindAUIPC
		base.Imm = immU(word)
		return base, nil

	case opJAL:
		base.Kind = KindJAL
		base.Imm = immJ(word)
		return base, nil

	case opJALR:
		if funct3 != 0 {
			return illegal(word)
		}
		base.Kind = KindJALR
		base.Imm = immI(word)
		return base, nil

	case opBRANCH:
		kinds := map[uint32]Kind{0: KindBEQ, 1: KindBNE, 4: KindBLT, 5: KindBGE, 6: KindBLTU, 7: KindBGEU}
		kind, ok := kinds[funct3]
		if !ok {
			return illegal(word)
		}
		base.Kind = kind
		base.Imm = immB(word)
		return base, nil

	case opLOAD:
		kinds := map[uint32]Kind{0: KindLB, 1: KindLH, 2: KindLW, 4: KindLBU, 5: KindLHU}
		kind, ok := kinds[funct3]
		if !ok {
			return illegal(word)
		}
		base.Kind = kind
		base.Imm = immI(word)
		return base, nil

	case opSTORE:
		kinds := map[uint32]Kind{0: KindSB, 1: KindSH, 2: KindSW}
		kind, ok := kinds[funct3]
		if !ok {
			return illegal(word)
		}
		base.Kind = kind
		base.Imm = immS(word)
		return base, nil

	case opOPIMM:
		return decodeOpImm(base, word, funct3, funct7)

	case opOP:
		return decodeOp(base, funct3, funct7)

	case opMISCMEM:
		switch funct3 {
		case 0:
			base.Kind = KindFENCE
		case 1:
			base.Kind = KindFENCEI
		default:
			return illegal(word)
		}
		return base, nil

	case opSYSTEM:
		return decodeSystem(base, word, funct3, funct7, rs1, rs2, rd)

	case opAMO:
		return decodeAMO(base, word, funct3, funct7, rs2)

	default:
		return illegal(word)
	}
}

func decodeOpImm(base Instr, word uint32, funct3, funct7 uint32) (Instr, error) {
	switch funct3 {
	case 0:
		base.Kind = KindADDI
	case 2:
		base.Kind = KindSLTI
	case 3:
		base.Kind = KindSLTIU
	case 4:
		base.Kind = KindXORI
	case 6:
		base.Kind = KindORI
	case 7:
		base.Kind = KindANDI
	case 1:
		if funct7 != 0 {
			return illegal(word)
		}
		base.Kind = KindSLLI
		base.Shamt = bits(word, 24, 20)
		return base, nil
	case 5:
		switch funct7 {
		case 0x00:
			base.Kind = KindSRLI
		case 0x20:
			base.Kind = KindSRAI
		default:
			return illegal(word)
		}
		base.Shamt = bits(word, 24, 20)
		return base, nil
	default:
		return illegal(word)
	}
	base.Imm = immI(word)
	return base, nil
}

func decodeOp(base Instr, funct3, funct7 uint32) (Instr, error) {
	switch funct7 {
	case 0x00:
		kinds := map[uint32]Kind{0: KindADD, 1: KindSLL, 2: KindSLT, 3: KindSLTU, 4: KindXOR, 5: KindSRL, 6: KindOR, 7: KindAND}
		kind, ok := kinds[funct3]
		if !ok {
			return illegal(base.Raw)
		}
		base.Kind = kind
	case 0x20:
		switch funct3 {
		case 0:
			base.Kind = KindSUB
		case 5:
			base.Kind = KindSRA
		default:
			return illegal(base.Raw)
		}
	case 0x01:
		kinds := map[uint32]Kind{0: KindMUL, 1: KindMULH, 2: KindMULHSU, 3: KindMULHU, 4: KindDIV, 5: KindDIVU, 6: KindREM, 7: KindREMU}
		kind, ok := kinds[funct3]
		if !ok {
			return illegal(base.Raw)
		}
		base.Kind = kind
	default:
		return illegal(base.Raw)
	}
	return base, nil
}

func decodeSystem(base Instr, word uint32, funct3, funct7, rs1, rs2, rd uint32) (Instr, error) {
	if funct3 == 0 {
		switch {
		case funct7 == 0x00 && rs2 == 0 && rs1 == 0 && rd == 0:
			base.Kind = KindECALL
		case funct7 == 0x00 && rs2 == 1 && rs1 == 0 && rd == 0:
			base.Kind = KindEBREAK
		case funct7 == 0x08 && rs2 == 2 && rd == 0:
			base.Kind = KindSRET
		case funct7 == 0x08 && rs2 == 5 && rd == 0:
			base.Kind = KindWFI
		case funct7 == 0x18 && rs2 == 2 && rd == 0:
			base.Kind = KindMRET
		case funct7 == 0x09 && rd == 0:
			base.Kind = KindSFENCEVMA
		default:
			return illegal(word)
		}
		return base, nil
	}
	kinds := map[uint32]Kind{1: KindCSRRW, 2: KindCSRRS, 3: KindCSRRC, 5: KindCSRRWI, 6: KindCSRRSI, 7: KindCSRRCI}
	kind, ok := kinds[funct3]
	if !ok {
		return illegal(word)
	}
	base.Kind = kind
	base.CSR = bits(word, 31, 20)
	base.ZImm = rs1
	return base, nil
}

func decodeAMO(base Instr, word uint32, funct3, funct7, rs2 uint32) (Instr, error) {
	if funct3 != 2 {
		return illegal(word)
	}
	funct5 := bits(word, 31, 27)
	kinds := map[uint32]Kind{
		0b00010: KindLRW,
		0b00011: KindSCW,
		0b00001: KindAMOSWAPW,
		0b00000: KindAMOADDW,
		0b00100: KindAMOXORW,
		0b01100: KindAMOANDW,
		0b01000: KindAMOORW,
		0b10000: KindAMOMINW,
		0b10100: KindAMOMAXW,
		0b11000: KindAMOMINUW,
		0b11100: KindAMOMAXUW,
	}
	kind, ok := kinds[funct5]
	if !ok {
		return illegal(word)
	}
	if kind == KindLRW && rs2 != 0 {
		return illegal(word)
	}
	_ = funct7
	base.Kind = kind
	return base, nil
}
