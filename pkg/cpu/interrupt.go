package cpu

import (
	"github.com/bassosimone/rv32sim/pkg/csr"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// interruptPriority is the fixed arbitration order from spec.md §4.7.
var interruptPriority = []trapcause.Code{
	trapcause.MExt,
	trapcause.MSoft,
	trapcause.MTimer,
	trapcause.SExt,
	trapcause.SSoft,
	trapcause.STimer,
}

// pendingInterrupt implements the arbiter of spec.md §4.7: the first
// interrupt in priority order whose ie/ip bits are both set and whose
// enabling condition (cond_s if mideleg delegates it, else cond_m) holds.
// Returns nil when nothing is deliverable.
func pendingInterrupt(bank *csr.Bank, priv csr.Privilege) *trapcause.Trap {
	condM := priv != csr.M || bank.MIE
	condS := priv == csr.U || (priv == csr.S && bank.SIE)

	for _, code := range interruptPriority {
		bit := uint32(1) << uint(code)
		if bank.IE&bit == 0 || bank.IP&bit == 0 {
			continue
		}
		cond := condM
		if bank.MIDeleg&bit != 0 {
			cond = condS
		}
		if cond {
			return trapcause.Interrupt(code, 0)
		}
	}
	return nil
}
