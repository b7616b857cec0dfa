package cpu

import "github.com/bassosimone/rv32sim/pkg/decode"

// executeCSR implements the CSRRW/S/C[,I] read-modify-write contract of
// spec.md §4.2: RW skips the CSR read entirely when rd is x0 (to avoid
// read side effects); S/C always read but skip the write when the source
// mask is zero; immediate forms use the 5-bit zero-extended rs1 field as
// the mask/value.
func (h *Hart) executeCSR(in decode.Instr) error {
	var src uint32
	switch in.Kind {
	case decode.KindCSRRWI, decode.KindCSRRSI, decode.KindCSRRCI:
		src = in.ZImm
	default:
		src = h.Regs.Get(in.RS1)
	}

	switch in.Kind {
	case decode.KindCSRRW, decode.KindCSRRWI:
		var old uint32
		if in.RD != 0 {
			v, err := h.CSR.Read(in.CSR, h.Privilege)
			if err != nil {
				return err
			}
			old = v
		}
		if err := h.CSR.Write(in.CSR, src, h.Privilege); err != nil {
			return err
		}
		h.Regs.Set(in.RD, old)
		return h.advance()

	default: // CSRRS/CSRRSI/CSRRC/CSRRCI
		old, err := h.CSR.Read(in.CSR, h.Privilege)
		if err != nil {
			return err
		}
		if src != 0 {
			var newVal uint32
			if in.Kind == decode.KindCSRRS || in.Kind == decode.KindCSRRSI {
				newVal = old | src
			} else {
				newVal = old &^ src
			}
			if err := h.CSR.Write(in.CSR, newVal, h.Privilege); err != nil {
				return err
			}
		}
		h.Regs.Set(in.RD, old)
		return h.advance()
	}
}
