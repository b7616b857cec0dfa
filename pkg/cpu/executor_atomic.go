package cpu

import (
	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/decode"
	"github.com/bassosimone/rv32sim/pkg/mmu"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// executeLR implements spec.md §4.3's LR.W: translate for Load, read the
// word, record the reservation, write rd.
func (h *Hart) executeLR(in decode.Instr) error {
	va := h.Regs.Get(in.RS1)
	if !bus.Word.Align(va) {
		return trapcause.Exception(bus.AccessLoad.Misaligned(), va)
	}
	attr := bus.Attr{Type: bus.AccessLoad, Width: bus.Word, LRSC: true}
	pa, err := mmu.Translate(h.Bus, h.CSR, va, attr, h.Privilege)
	if err != nil {
		return err
	}
	val, err := h.Bus.Read(pa, attr)
	if err != nil {
		return err
	}
	h.Bus.SetReservation(pa)
	h.Regs.Set(in.RD, val)
	return h.advance()
}

// executeSC implements spec.md §4.3's SC.W: translate for Store; commit
// only if the reservation still matches, otherwise still validate the
// address so a faulty store address still raises a fault. Every outcome
// clears the reservation.
func (h *Hart) executeSC(in decode.Instr) error {
	va := h.Regs.Get(in.RS1)
	if !bus.Word.Align(va) {
		h.Bus.ClearReservation()
		return trapcause.Exception(bus.AccessStore.Misaligned(), va)
	}
	attr := bus.Attr{Type: bus.AccessStore, Width: bus.Word, LRSC: true}
	pa, err := mmu.Translate(h.Bus, h.CSR, va, attr, h.Privilege)
	if err != nil {
		h.Bus.ClearReservation()
		return err
	}

	if h.Bus.CheckReservation(pa) {
		if err := h.Bus.Write(pa, h.Regs.Get(in.RS2), attr); err != nil {
			h.Bus.ClearReservation()
			return err
		}
		h.Bus.ClearReservation()
		h.Regs.Set(in.RD, 0)
		return h.advance()
	}

	if _, err := h.Bus.Read(pa, bus.Attr{Type: bus.AccessStore, Width: bus.Word}); err != nil {
		h.Bus.ClearReservation()
		return err
	}
	h.Bus.ClearReservation()
	h.Regs.Set(in.RD, 1)
	return h.advance()
}

// executeAMO implements spec.md §4.3's AMO.W.*: translate for Store (AMOs
// count as stores for fault classification), read-modify-write in that
// strict order, write the pre-modification value into rd.
func (h *Hart) executeAMO(in decode.Instr) error {
	va := h.Regs.Get(in.RS1)
	if !bus.Word.Align(va) {
		return trapcause.Exception(bus.AccessStore.Misaligned(), va)
	}
	attr := bus.Attr{Type: bus.AccessStore, Width: bus.Word, AMO: true}
	pa, err := mmu.Translate(h.Bus, h.CSR, va, attr, h.Privilege)
	if err != nil {
		return err
	}
	old, err := h.Bus.Read(pa, attr)
	if err != nil {
		return err
	}
	operand := h.Regs.Get(in.RS2)
	newVal := amoCompute(in.Kind, old, operand)
	if err := h.Bus.Write(pa, newVal, attr); err != nil {
		return err
	}
	h.Regs.Set(in.RD, old)
	return h.advance()
}

func amoCompute(kind decode.Kind, old, operand uint32) uint32 {
	switch kind {
	case decode.KindAMOSWAPW:
		return operand
	case decode.KindAMOADDW:
		return old + operand
	case decode.KindAMOXORW:
		return old ^ operand
	case decode.KindAMOANDW:
		return old & operand
	case decode.KindAMOORW:
		return old | operand
	case decode.KindAMOMINW:
		if int32(old) < int32(operand) {
			return old
		}
		return operand
	case decode.KindAMOMAXW:
		if int32(old) > int32(operand) {
			return old
		}
		return operand
	case decode.KindAMOMINUW:
		if old < operand {
			return old
		}
		return operand
	default: // KindAMOMAXUW
		if old > operand {
			return old
		}
		return operand
	}
}
