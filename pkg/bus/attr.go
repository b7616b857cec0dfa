// Package bus implements the simulator's physical memory map: dispatch of
// physical addresses to RAM, the read-only device-tree ROM, the timer, and
// the UART, with per-region width/access-rule enforcement and the single
// reservation used by LR.W/SC.W. This generalizes the teacher's
// vm.VM.Memory single-array dispatch (pkg/vm/vm.go) into several
// independently addressed devices, in the style the rest of the retrieved
// corpus uses for MMIO (e.g. rcornwell-S370's per-device bus).
package bus

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// AccessType classifies why an address is being touched.
type AccessType int

const (
	AccessInstr AccessType = iota
	AccessLoad
	AccessStore
)

// String implements fmt.Stringer for trace output.
func (t AccessType) String() string {
	switch t {
	case AccessInstr:
		return "instr"
	case AccessLoad:
		return "load"
	case AccessStore:
		return "store"
	default:
		return "unknown"
	}
}

// Misaligned returns the AddrMisaligned exception code matching this
// access type.
func (t AccessType) Misaligned() trapcause.Code {
	switch t {
	case AccessInstr:
		return trapcause.InstrAddrMisaligned
	case AccessStore:
		return trapcause.StoreAddrMisaligned
	default:
		return trapcause.LoadAddrMisaligned
	}
}

// AccessFault returns the AccessFault exception code matching this access
// type.
func (t AccessType) AccessFault() trapcause.Code {
	switch t {
	case AccessInstr:
		return trapcause.InstrAccessFault
	case AccessStore:
		return trapcause.StoreAccessFault
	default:
		return trapcause.LoadAccessFault
	}
}

// PageFault returns the PageFault exception code matching this access type.
// Used by pkg/mmu.
func (t AccessType) PageFault() trapcause.Code {
	switch t {
	case AccessInstr:
		return trapcause.InstrPageFault
	case AccessStore:
		return trapcause.StorePageFault
	default:
		return trapcause.LoadPageFault
	}
}

// Width is the size, in bytes, of a memory access.
type Width int

const (
	Byte     Width = 1
	HalfWord Width = 2
	Word     Width = 4
)

// Align reports whether addr satisfies this width's natural alignment.
func (w Width) Align(addr uint32) bool {
	return addr&uint32(w-1) == 0
}

// Attr carries the full access-attribute tuple consulted by every region:
// the access type, the width, and whether the access is an LR/SC or an AMO.
type Attr struct {
	Type  AccessType
	Width Width
	LRSC  bool
	AMO   bool
}
