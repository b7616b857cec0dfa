package cpu

import (
	"github.com/bassosimone/rv32sim/pkg/csr"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// handleTrap routes trap to M or S per spec.md §4.6 ("Trap routing") and
// pushes the corresponding trap frame. It always clears the bus
// reservation, per spec.md §3.
func (h *Hart) handleTrap(trap *trapcause.Trap) {
	h.Bus.ClearReservation()

	delegated := h.Privilege != csr.M && h.isDelegated(trap.Cause)
	if delegated {
		h.pushTrapS(trap)
	} else {
		h.pushTrapM(trap)
	}
}

func (h *Hart) isDelegated(cause trapcause.Cause) bool {
	bit := uint32(1) << uint(cause.Code)
	if cause.Interrupt {
		return h.CSR.MIDeleg&bit != 0
	}
	return h.CSR.MEDeleg&bit != 0
}

// pushTrapM implements spec.md §4.6's push_trap_m.
func (h *Hart) pushTrapM(trap *trapcause.Trap) {
	b := h.CSR
	b.MPIE = b.MIE
	b.MPP = h.Privilege

	b.MIE = false
	h.Privilege = csr.M

	b.MEPC = h.Regs.PC
	b.MCause = trap.Cause
	b.MTval = trap.Val

	h.Regs.PC = trapTarget(b.MTVecBase, b.MTVecMode, trap.Cause)
}

// popTrapM implements spec.md §4.6's pop_trap_m (MRET).
func (h *Hart) popTrapM() {
	b := h.CSR
	b.MIE = b.MPIE
	h.Privilege = b.MPP

	b.MPIE = true
	b.MPP = csr.U

	if h.Privilege != csr.M {
		b.MPRV = false
	}

	h.Regs.PC = b.MEPC
	h.Bus.ClearReservation()
}

// pushTrapS implements spec.md §4.6's push_trap_s.
func (h *Hart) pushTrapS(trap *trapcause.Trap) {
	b := h.CSR
	b.SPIE = b.SIE
	if h.Privilege == csr.S {
		b.SPP = csr.S
	} else {
		b.SPP = csr.U
	}

	b.SIE = false
	h.Privilege = csr.S

	b.SEPC = h.Regs.PC
	b.SCause = trap.Cause
	b.STval = trap.Val

	h.Regs.PC = trapTarget(b.STVecBase, b.STVecMode, trap.Cause)
}

// popTrapS implements spec.md §4.6's pop_trap_s (SRET). SRET never
// returns to M, so MPRV is unconditionally cleared.
func (h *Hart) popTrapS() {
	b := h.CSR
	b.SIE = b.SPIE
	h.Privilege = b.SPP

	b.SPIE = true
	b.SPP = csr.U
	b.MPRV = false

	h.Regs.PC = b.SEPC
	h.Bus.ClearReservation()
}

// trapTarget computes the new PC for a trap vector: base for Direct mode
// or for any exception, base + 4*code for Vectored mode and an interrupt.
func trapTarget(base uint32, mode csr.TVecMode, cause trapcause.Cause) uint32 {
	if mode == csr.Vectored && cause.Interrupt {
		return base + 4*uint32(cause.Code)
	}
	return base
}
