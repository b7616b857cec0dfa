// Package trapcause defines the vocabulary shared by the decoder, the Sv32
// translator, the CSR bank and the executor for describing a trap: either a
// synchronous exception raised by the instruction currently being processed
// or an asynchronous interrupt raised by the arbiter.
//
// A Trap implements the error interface so it flows through the pipeline
// using ordinary Go error returns (decode/translate/execute all return
// (value, error), with the error unwrapped via errors.As when a stage needs
// to inspect it). This mirrors how reference RISC-V cores in Go model
// exceptions as an error-returning helper rather than a distinct sum type.
package trapcause

import (
	"errors"
	"fmt"
)

// Code is an exception or interrupt code, i.e. the low 31 bits of mcause/
// scause before the interrupt flag is applied.
type Code uint32

// Exception codes, per the RISC-V privileged specification. Codes 10, 14,
// 16 and 17 are reserved and unsupported by this simulator.
const (
	InstrAddrMisaligned Code = 0
	InstrAccessFault    Code = 1
	IllegalInstr        Code = 2
	Breakpoint          Code = 3
	LoadAddrMisaligned  Code = 4
	LoadAccessFault     Code = 5
	StoreAddrMisaligned Code = 6
	StoreAccessFault    Code = 7
	EcallFromU          Code = 8
	EcallFromS          Code = 9
	EcallFromM          Code = 11
	InstrPageFault      Code = 12
	LoadPageFault       Code = 13
	StorePageFault      Code = 15
)

// Interrupt codes, per the RISC-V privileged specification.
const (
	SSoft  Code = 1
	MSoft  Code = 3
	STimer Code = 5
	MTimer Code = 7
	SExt   Code = 9
	MExt   Code = 11
)

// Cause is a decoded mcause/scause value: whether it is an interrupt and
// which code within that axis it names.
type Cause struct {
	Interrupt bool
	Code      Code
}

// Encode composes the 32-bit mcause/scause representation: bit 31 is the
// interrupt flag, the low 31 bits are the code.
func (c Cause) Encode() uint32 {
	v := uint32(c.Code)
	if c.Interrupt {
		v |= 1 << 31
	}
	return v
}

// DecodeCause decomposes a 32-bit mcause/scause value into a Cause.
func DecodeCause(v uint32) Cause {
	return Cause{Interrupt: (v >> 31) != 0, Code: Code(v & 0x7fffffff)}
}

// exceptionNames and interruptNames back String for diagnostics; any code
// outside these tables prints numerically.
var exceptionNames = map[Code]string{
	InstrAddrMisaligned: "instruction-address-misaligned",
	InstrAccessFault:    "instruction-access-fault",
	IllegalInstr:        "illegal-instruction",
	Breakpoint:          "breakpoint",
	LoadAddrMisaligned:  "load-address-misaligned",
	LoadAccessFault:     "load-access-fault",
	StoreAddrMisaligned: "store/amo-address-misaligned",
	StoreAccessFault:    "store/amo-access-fault",
	EcallFromU:          "ecall-from-u-mode",
	EcallFromS:          "ecall-from-s-mode",
	EcallFromM:          "ecall-from-m-mode",
	InstrPageFault:      "instruction-page-fault",
	LoadPageFault:       "load-page-fault",
	StorePageFault:      "store/amo-page-fault",
}

var interruptNames = map[Code]string{
	SSoft:  "s-software-interrupt",
	MSoft:  "m-software-interrupt",
	STimer: "s-timer-interrupt",
	MTimer: "m-timer-interrupt",
	SExt:   "s-external-interrupt",
	MExt:   "m-external-interrupt",
}

// IsKnownException reports whether code decodes to a recognized,
// unreserved exception. Used by the CSR bank to validate mcause writes.
func IsKnownException(code Code) bool {
	_, ok := exceptionNames[code]
	return ok
}

// IsKnownInterrupt reports whether code decodes to a recognized interrupt.
// Used by the CSR bank to validate mcause writes.
func IsKnownInterrupt(code Code) bool {
	_, ok := interruptNames[code]
	return ok
}

func (c Cause) String() string {
	names := exceptionNames
	if c.Interrupt {
		names = interruptNames
	}
	if name, ok := names[c.Code]; ok {
		return name
	}
	kind := "exception"
	if c.Interrupt {
		kind = "interrupt"
	}
	return fmt.Sprintf("reserved-%s-%d", kind, c.Code)
}

// Trap is the unified representation of a synchronous exception or an
// asynchronous interrupt, carrying the architectural cause and the
// associated mtval/stval payload.
type Trap struct {
	Cause Cause
	Val   uint32
}

// Error implements the error interface so a *Trap can be returned and
// matched anywhere in the pipeline with errors.As.
func (t *Trap) Error() string {
	return fmt.Sprintf("trap: %s (val=0x%08x)", t.Cause, t.Val)
}

// Exception constructs a synchronous-exception trap.
func Exception(code Code, val uint32) *Trap {
	return &Trap{Cause: Cause{Code: code}, Val: val}
}

// Interrupt constructs an asynchronous-interrupt trap.
func Interrupt(code Code, val uint32) *Trap {
	return &Trap{Cause: Cause{Interrupt: true, Code: code}, Val: val}
}

// As reports whether err is (or wraps) a *Trap, returning it for inspection.
// Thin convenience wrapper kept next to the type it unwraps.
func As(err error) (*Trap, bool) {
	var t *Trap
	ok := errors.As(err, &t)
	return t, ok
}
