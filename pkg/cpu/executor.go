package cpu

import (
	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/csr"
	"github.com/bassosimone/rv32sim/pkg/decode"
	"github.com/bassosimone/rv32sim/pkg/mmu"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// execute implements spec.md §4.3: the per-class semantic effect of a
// decoded instruction. It advances PC by 4 for every straight-line
// instruction; branches, jumps, trap-return and CSR instructions update PC
// themselves.
func (h *Hart) execute(in decode.Instr) error {
	switch {
	case in.Kind == decode.KindLUI:
		h.Regs.Set(in.RD, uint32(in.Imm))
		return h.advance()

	case in.Kind == decode.KindAUIPC:
		h.Regs.Set(in.RD, h.Regs.PC+uint32(in.Imm))
		return h.advance()

	case in.Kind == decode.KindJAL:
		return h.executeJump(in.RD, h.Regs.PC+uint32(in.Imm))

	case in.Kind == decode.KindJALR:
		target := (h.Regs.Get(in.RS1) + uint32(in.Imm)) &^ 1
		return h.executeJump(in.RD, target)

	case in.Kind >= decode.KindBEQ && in.Kind <= decode.KindBGEU:
		return h.executeBranch(in)

	case in.Kind >= decode.KindLB && in.Kind <= decode.KindLHU:
		return h.executeLoad(in)

	case in.Kind >= decode.KindSB && in.Kind <= decode.KindSW:
		return h.executeStore(in)

	case in.Kind >= decode.KindADDI && in.Kind <= decode.KindANDI:
		h.Regs.Set(in.RD, opImm(in.Kind, h.Regs.Get(in.RS1), uint32(in.Imm)))
		return h.advance()

	case in.Kind == decode.KindSLLI:
		h.Regs.Set(in.RD, h.Regs.Get(in.RS1)<<in.Shamt)
		return h.advance()
	case in.Kind == decode.KindSRLI:
		h.Regs.Set(in.RD, h.Regs.Get(in.RS1)>>in.Shamt)
		return h.advance()
	case in.Kind == decode.KindSRAI:
		h.Regs.Set(in.RD, uint32(int32(h.Regs.Get(in.RS1))>>in.Shamt))
		return h.advance()

	case in.Kind >= decode.KindADD && in.Kind <= decode.KindAND:
		h.Regs.Set(in.RD, opReg(in.Kind, h.Regs.Get(in.RS1), h.Regs.Get(in.RS2)))
		return h.advance()

	case in.Kind >= decode.KindMUL && in.Kind <= decode.KindREMU:
		h.Regs.Set(in.RD, mulDiv(in.Kind, h.Regs.Get(in.RS1), h.Regs.Get(in.RS2)))
		return h.advance()

	case in.Kind == decode.KindFENCE || in.Kind == decode.KindFENCEI:
		return h.advance()

	case in.Kind == decode.KindECALL:
		return h.ecall()
	case in.Kind == decode.KindEBREAK:
		return trapcause.Exception(trapcause.Breakpoint, 0)
	case in.Kind == decode.KindMRET:
		if h.Privilege != csr.M {
			return illegal(in.Raw)
		}
		h.popTrapM()
		return nil
	case in.Kind == decode.KindSRET:
		if h.Privilege == csr.U {
			return illegal(in.Raw)
		}
		if h.Privilege == csr.S && h.CSR.TSR {
			return illegal(in.Raw)
		}
		h.popTrapS()
		return nil
	case in.Kind == decode.KindWFI:
		if h.Privilege != csr.M && h.CSR.TW {
			return illegal(in.Raw)
		}
		return h.advance()
	case in.Kind == decode.KindSFENCEVMA:
		if h.Privilege == csr.U {
			return illegal(in.Raw)
		}
		if h.Privilege == csr.S && h.CSR.TVM {
			return illegal(in.Raw)
		}
		return h.advance()

	case in.Kind.IsCSR():
		return h.executeCSR(in)

	case in.Kind == decode.KindLRW:
		return h.executeLR(in)
	case in.Kind == decode.KindSCW:
		return h.executeSC(in)
	case in.Kind.IsAMO():
		return h.executeAMO(in)

	default:
		return illegal(in.Raw)
	}
}

func illegal(word uint32) error {
	return trapcause.Exception(trapcause.IllegalInstr, word)
}

// advance moves PC to the next straight-line instruction.
func (h *Hart) advance() error {
	h.Regs.PC += 4
	return nil
}

// ecall raises the exception matching the current privilege; mtval is 0.
func (h *Hart) ecall() error {
	switch h.Privilege {
	case csr.U:
		return trapcause.Exception(trapcause.EcallFromU, 0)
	case csr.S:
		return trapcause.Exception(trapcause.EcallFromS, 0)
	default:
		return trapcause.Exception(trapcause.EcallFromM, 0)
	}
}

// executeJump writes PC+4 into rd after computing target, so JALR with
// rs1 == rd is well-defined; checks the 4-alignment of target first.
func (h *Hart) executeJump(rd, target uint32) error {
	if target&0x3 != 0 {
		return trapcause.Exception(trapcause.InstrAddrMisaligned, target)
	}
	link := h.Regs.PC + 4
	h.Regs.PC = target
	h.Regs.Set(rd, link)
	return nil
}

func (h *Hart) executeBranch(in decode.Instr) error {
	taken := branchTaken(in.Kind, h.Regs.Get(in.RS1), h.Regs.Get(in.RS2))
	var next uint32
	if taken {
		next = h.Regs.PC + uint32(in.Imm)
	} else {
		next = h.Regs.PC + 4
	}
	if next&0x3 != 0 {
		return trapcause.Exception(trapcause.InstrAddrMisaligned, next)
	}
	h.Regs.PC = next
	return nil
}

func branchTaken(kind decode.Kind, a, b uint32) bool {
	switch kind {
	case decode.KindBEQ:
		return a == b
	case decode.KindBNE:
		return a != b
	case decode.KindBLT:
		return int32(a) < int32(b)
	case decode.KindBGE:
		return int32(a) >= int32(b)
	case decode.KindBLTU:
		return a < b
	default: // KindBGEU
		return a >= b
	}
}

func loadWidth(kind decode.Kind) bus.Width {
	switch kind {
	case decode.KindLB, decode.KindLBU:
		return bus.Byte
	case decode.KindLH, decode.KindLHU:
		return bus.HalfWord
	default:
		return bus.Word
	}
}

func storeWidth(kind decode.Kind) bus.Width {
	switch kind {
	case decode.KindSB:
		return bus.Byte
	case decode.KindSH:
		return bus.HalfWord
	default:
		return bus.Word
	}
}

func (h *Hart) executeLoad(in decode.Instr) error {
	va := h.Regs.Get(in.RS1) + uint32(in.Imm)
	width := loadWidth(in.Kind)
	if !width.Align(va) {
		return trapcause.Exception(bus.AccessLoad.Misaligned(), va)
	}
	attr := bus.Attr{Type: bus.AccessLoad, Width: width}
	pa, err := mmu.Translate(h.Bus, h.CSR, va, attr, h.Privilege)
	if err != nil {
		return err
	}
	raw, err := h.Bus.Read(pa, attr)
	if err != nil {
		return err
	}
	h.Regs.Set(in.RD, signExtendLoad(in.Kind, raw))
	return h.advance()
}

func signExtendLoad(kind decode.Kind, raw uint32) uint32 {
	switch kind {
	case decode.KindLB:
		return uint32(int32(int8(raw)))
	case decode.KindLH:
		return uint32(int32(int16(raw)))
	default:
		return raw
	}
}

func (h *Hart) executeStore(in decode.Instr) error {
	va := h.Regs.Get(in.RS1) + uint32(in.Imm)
	width := storeWidth(in.Kind)
	if !width.Align(va) {
		return trapcause.Exception(bus.AccessStore.Misaligned(), va)
	}
	attr := bus.Attr{Type: bus.AccessStore, Width: width}
	pa, err := mmu.Translate(h.Bus, h.CSR, va, attr, h.Privilege)
	if err != nil {
		return err
	}
	value := h.Regs.Get(in.RS2)
	if width == bus.Byte {
		value &= 0xff
	} else if width == bus.HalfWord {
		value &= 0xffff
	}
	if err := h.Bus.Write(pa, value, attr); err != nil {
		return err
	}
	return h.advance()
}

func opImm(kind decode.Kind, a uint32, imm uint32) uint32 {
	switch kind {
	case decode.KindADDI:
		return a + imm
	case decode.KindSLTI:
		return boolToU32(int32(a) < int32(imm))
	case decode.KindSLTIU:
		return boolToU32(a < imm)
	case decode.KindXORI:
		return a ^ imm
	case decode.KindORI:
		return a | imm
	default: // KindANDI
		return a & imm
	}
}

func opReg(kind decode.Kind, a, b uint32) uint32 {
	switch kind {
	case decode.KindADD:
		return a + b
	case decode.KindSUB:
		return a - b
	case decode.KindSLL:
		return a << (b & 0x1f)
	case decode.KindSLT:
		return boolToU32(int32(a) < int32(b))
	case decode.KindSLTU:
		return boolToU32(a < b)
	case decode.KindXOR:
		return a ^ b
	case decode.KindSRL:
		return a >> (b & 0x1f)
	case decode.KindSRA:
		return uint32(int32(a) >> (b & 0x1f))
	default: // KindOR, KindAND handled below
		if kind == decode.KindOR {
			return a | b
		}
		return a & b
	}
}

func boolToU32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

func mulDiv(kind decode.Kind, a, b uint32) uint32 {
	switch kind {
	case decode.KindMUL:
		return a * b
	case decode.KindMULH:
		return uint32((int64(int32(a)) * int64(int32(b))) >> 32)
	case decode.KindMULHSU:
		return uint32((int64(int32(a)) * int64(uint64(b))) >> 32)
	case decode.KindMULHU:
		return uint32((uint64(a) * uint64(b)) >> 32)
	case decode.KindDIV:
		sa, sb := int32(a), int32(b)
		if sb == 0 {
			return 0xffffffff
		}
		if sa == -0x80000000 && sb == -1 {
			return uint32(sa)
		}
		return uint32(sa / sb)
	case decode.KindDIVU:
		if b == 0 {
			return 0xffffffff
		}
		return a / b
	case decode.KindREM:
		sa, sb := int32(a), int32(b)
		if sb == 0 {
			return a
		}
		if sa == -0x80000000 && sb == -1 {
			return 0
		}
		return uint32(sa % sb)
	default: // KindREMU
		if b == 0 {
			return a
		}
		return a % b
	}
}
