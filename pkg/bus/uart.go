package bus

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// UART register offsets, classic 8250 layout.
const (
	regRBRTHR = 0 // DLAB=0: receiver buffer (read) / transmitter holding (write)
	regDLL    = 0 // DLAB=1: divisor latch low
	regIER    = 1 // DLAB=0: interrupt enable
	regDLH    = 1 // DLAB=1: divisor latch high
	regISR    = 2 // interrupt status (read); FCR (write, not modeled)
	regLCR    = 3 // line control
	regMCR    = 4 // modem control
	regLSR    = 5 // line status
	regMSR    = 6 // modem status
	regSPR    = 7 // scratch pad
)

const (
	lcrDLAB = 1 << 7

	// lsrFixed is the fixed LSR value this subset always reports: transmit
	// holding register empty, transmitter empty, data ready. Per spec.md
	// §4.5 ("returns fixed 0b0110_0001").
	lsrFixed = 0b0110_0001

	// isrNoInterrupt is the ISR value reported unconditionally; see spec.md
	// §9 open question (c).
	isrNoInterrupt = 0b0001
)

// UART is an 8250-subset serial port: THR/RBR, IER, ISR, LCR, MCR, LSR,
// MSR, SPR, and a divisor latch behind LCR.DLAB. Byte accesses only; no
// LR/SC, no AMO, load/store only (spec.md §4.5).
type UART struct {
	Base    uint32
	console Console

	ier byte
	lcr byte
	mcr byte
	spr byte
	dll byte
	dlh byte
}

// NewUART creates a UART with no attached console; reads of RBR then
// yield 0 without blocking, matching an idle/disconnected line.
func NewUART(base uint32) *UART {
	return &UART{Base: base}
}

// Attach wires a host Console to the UART's THR/RBR registers.
func (u *UART) Attach(c Console) {
	u.console = c
}

func (u *UART) checkByteAccess(off uint32, attr Attr) error {
	if attr.Type == AccessInstr || attr.LRSC || attr.AMO {
		return trapcause.Exception(attr.Type.AccessFault(), u.Base+off)
	}
	if attr.Width != Byte {
		return trapcause.Exception(attr.Type.AccessFault(), u.Base+off)
	}
	if off >= 8 {
		return trapcause.Exception(attr.Type.AccessFault(), u.Base+off)
	}
	return nil
}

// Read reads the UART register at region-local offset off.
func (u *UART) Read(off uint32, attr Attr) (uint32, error) {
	if err := u.checkByteAccess(off, attr); err != nil {
		return 0, err
	}
	dlab := u.lcr&lcrDLAB != 0
	switch off {
	case regRBRTHR:
		if dlab {
			return uint32(u.dll), nil
		}
		return uint32(u.readByte()), nil
	case regIER:
		if dlab {
			return uint32(u.dlh), nil
		}
		return uint32(u.ier), nil
	case regISR:
		return isrNoInterrupt, nil
	case regLCR:
		return uint32(u.lcr), nil
	case regMCR:
		return uint32(u.mcr), nil
	case regLSR:
		return lsrFixed, nil
	case regMSR:
		return 0, nil
	case regSPR:
		return uint32(u.spr), nil
	default:
		return 0, nil
	}
}

// Write writes value to the UART register at region-local offset off.
func (u *UART) Write(off uint32, value uint32, attr Attr) error {
	if err := u.checkByteAccess(off, attr); err != nil {
		return err
	}
	b := byte(value)
	dlab := u.lcr&lcrDLAB != 0
	switch off {
	case regRBRTHR:
		if dlab {
			u.dll = b
			return nil
		}
		return u.writeByte(b)
	case regIER:
		if dlab {
			u.dlh = b
		} else {
			u.ier = b
		}
	case regISR:
		// FCR: FIFO control is not modeled; writes are accepted and ignored.
	case regLCR:
		u.lcr = b
	case regMCR:
		u.mcr = b
	case regLSR, regMSR:
		// read-only status registers; writes are silently ignored.
	case regSPR:
		u.spr = b
	}
	return nil
}

func (u *UART) readByte() byte {
	if u.console == nil {
		return 0
	}
	b, err := u.console.ReadByte()
	if err != nil {
		return 0
	}
	return b
}

func (u *UART) writeByte(b byte) error {
	if u.console == nil {
		return nil
	}
	return u.console.WriteByte(b)
}
