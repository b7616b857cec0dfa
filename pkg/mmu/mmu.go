// Package mmu implements the Sv32 virtual-to-physical translator: a
// two-level page walk over satp.ppn, with effective-privilege selection,
// permission-encoding validation, A/D bit write-back, and 4 MiB superpage
// support. Grounded on the teacher's straight-line fetch/decode/execute
// pipeline (pkg/vm/vm.go), generalized with an extra indirection stage the
// teacher never needed because it has no virtual memory.
package mmu

import (
	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/csr"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// pteAttr and pteWriteAttr are the access attributes used to fetch and
// write back a page-table entry: always a word, never an instruction fetch,
// never an LR/SC or AMO.
var pteAttr = bus.Attr{Type: bus.AccessLoad, Width: bus.Word}
var pteWriteAttr = bus.Attr{Type: bus.AccessStore, Width: bus.Word}

const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

func ptePPN(pte uint32) uint32 { return pte >> 10 }

// goodPerm validates the R/W/X encoding table from spec.md §3: 000 is a
// non-leaf pointer, 100/101/111/001/011 are the legal leaf permission
// triples, everything else faults.
func goodPerm(pte uint32) bool {
	switch (pte >> 1) & 0x7 {
	case 0b000, 0b001, 0b011, 0b100, 0b101, 0b111:
		return true
	default:
		return false
	}
}

func isLeaf(pte uint32) bool {
	return pte&(pteR|pteW|pteX) != 0
}

// Bus is the subset of *bus.Bus the translator needs to walk page tables.
// Declared as an interface so pkg/mmu's tests can use a stub; *bus.Bus
// satisfies it and is what pkg/cpu passes in.
type Bus interface {
	Read(pa uint32, attr bus.Attr) (uint32, error)
	Write(pa uint32, value uint32, attr bus.Attr) error
}

// EffectivePrivilege implements spec.md §3: "the effective privilege used
// for data translation is either the current mode or, when mstatus.MPRV is
// set and the access is not an instruction fetch, mstatus.MPP."
func EffectivePrivilege(bank *csr.Bank, current csr.Privilege, accessType bus.AccessType) csr.Privilege {
	if accessType != bus.AccessInstr && bank.MPRV {
		return bank.MPP
	}
	return current
}

// Translate converts a virtual address into a physical address, per
// spec.md §4.4. In M-mode (effective privilege) or when satp.mode is Bare,
// translation is the identity function.
func Translate(b Bus, bank *csr.Bank, va uint32, attr bus.Attr, current csr.Privilege) (uint32, error) {
	effective := EffectivePrivilege(bank, current, attr.Type)
	if effective == csr.M || bank.SatpMode == csr.Bare {
		return va, nil
	}

	vpn1 := uint64(va>>22) & 0x3ff
	vpn0 := uint64(va>>12) & 0x3ff
	pageOff := va & 0xfff

	// Page-table-entry and final physical addresses are computed in
	// uint64: satp.ppn is 22 bits wide and the PTE's own ppn field is 22
	// bits wide, so "ppn << 12 | index" can reach 34 bits, per spec.md
	// §4.4's "34-bit physical address (stored in a 64-bit value)". This
	// bus only implements a 32-bit physical space, so any address that
	// doesn't fit in uint32 is simply unreachable memory: a page fault,
	// not a wrapped-around alias onto low memory.
	pte1Addr64 := (uint64(bank.SatpPPN) << 12) | (vpn1 << 2)
	pte1Addr, ok := truncate32(pte1Addr64)
	if !ok {
		return 0, pageFault(attr, va)
	}
	pte1, err := b.Read(pte1Addr, pteAttr)
	if err != nil {
		return 0, pageFault(attr, va)
	}
	if pte1&pteV == 0 || !goodPerm(pte1) {
		return 0, pageFault(attr, va)
	}

	var leaf uint32
	var leafPPN uint64
	isSuper := false

	if isLeaf(pte1) {
		if uint64(ptePPN(pte1))&0x3ff != 0 {
			return 0, pageFault(attr, va) // misaligned superpage
		}
		leaf = pte1
		leafPPN = uint64(ptePPN(pte1))
		isSuper = true
	} else {
		pte0Addr64 := (uint64(ptePPN(pte1)) << 12) | (vpn0 << 2)
		pte0Addr, ok := truncate32(pte0Addr64)
		if !ok {
			return 0, pageFault(attr, va)
		}
		pte0, err := b.Read(pte0Addr, pteAttr)
		if err != nil {
			return 0, pageFault(attr, va)
		}
		if pte0&pteV == 0 || !goodPerm(pte0) || !isLeaf(pte0) {
			return 0, pageFault(attr, va)
		}
		leaf = pte0
		leafPPN = uint64(ptePPN(pte0))
	}

	if !hasPermission(leaf, attr.Type, bank.MXR) {
		return 0, pageFault(attr, va)
	}
	if leaf&pteU == 0 {
		if effective == csr.U {
			return 0, pageFault(attr, va)
		}
	} else if effective == csr.S && !bank.SUM {
		return 0, pageFault(attr, va)
	}

	updated := leaf
	needsWrite := false
	if updated&pteA == 0 {
		updated |= pteA
		needsWrite = true
	}
	if attr.Type == bus.AccessStore && updated&pteD == 0 {
		updated |= pteD
		needsWrite = true
	}
	if needsWrite {
		addr := pte1Addr
		if !isSuper {
			addr64 := (uint64(ptePPN(pte1)) << 12) | (vpn0 << 2)
			pte0Addr, ok := truncate32(addr64)
			if !ok {
				return 0, pageFault(attr, va)
			}
			addr = pte0Addr
		}
		if err := b.Write(addr, updated, pteWriteAttr); err != nil {
			return 0, trapcause.Exception(attr.Type.AccessFault(), va)
		}
	}

	var pa64 uint64
	if isSuper {
		// leafPPN's low 10 bits are verified zero above, so ppn[21:10]
		// (the superpage's physical frame number) is leafPPN>>10; placing
		// it at pa[33:22] and masking it through a 32-bit constant would
		// silently drop bits 33:32 for any ppn >= 0x400 (1 GiB+), the same
		// class of wraparound this fix removes from the PTE-address math.
		pa64 = (leafPPN>>10)<<22 | uint64(va&0x003fffff)
	} else {
		pa64 = (leafPPN << 12) | uint64(pageOff)
	}
	pa, ok := truncate32(pa64)
	if !ok {
		return 0, pageFault(attr, va)
	}
	return pa, nil
}

// truncate32 reports whether v fits in the 32-bit physical address space
// this bus implements, returning the truncated value when it does. A
// computed PTE or final physical address wider than 32 bits (possible
// since satp.ppn and a PTE's own ppn field are each 22 bits, per spec.md
// §4.4) is simply out of implemented physical memory, not a value to wrap
// around via uint32 overflow.
func truncate32(v uint64) (uint32, bool) {
	if v > 0xffff_ffff {
		return 0, false
	}
	return uint32(v), true
}

// hasPermission implements spec.md §4.4 step 7: Instr needs X; Load needs
// R, or (mxr and X); Store needs W.
func hasPermission(pte uint32, t bus.AccessType, mxr bool) bool {
	switch t {
	case bus.AccessInstr:
		return pte&pteX != 0
	case bus.AccessStore:
		return pte&pteW != 0
	default:
		return pte&pteR != 0 || (mxr && pte&pteX != 0)
	}
}

func pageFault(attr bus.Attr, va uint32) error {
	return trapcause.Exception(attr.Type.PageFault(), va)
}
