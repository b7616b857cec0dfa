// Package csr implements the machine- and supervisor-level control and
// status register bank: a flat record of named fields (not a raw
// 4096-register array) from which each architectural CSR is synthesized on
// read and into which it is decomposed on write, per spec.md §3/§4.2/§9.
// This follows the teacher's convention of keeping related state in a
// single plain struct (vm.VM's GPR/S arrays) but splits the single
// "status register" of the teacher into one field per architectural bit,
// so masking/WARL rules sit directly next to the fields they govern.
package csr

import (
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// Privilege is the hart's current privilege mode.
type Privilege int

const (
	U Privilege = iota
	S
	M
)

func (p Privilege) String() string {
	switch p {
	case U:
		return "U"
	case S:
		return "S"
	case M:
		return "M"
	default:
		return "?"
	}
}

// TVecMode is the mode field of mtvec/stvec.
type TVecMode int

const (
	Direct TVecMode = iota
	Vectored
)

// SatpMode is the mode field of satp.
type SatpMode int

const (
	Bare SatpMode = iota
	Sv32
)

// misa advertises RV32IMASU: MXL=1 (32-bit), extensions I, M, A, S, U.
const misaValue = (1 << 30) | (1 << 8) | (1 << 12) | (1 << 0) | (1 << 18) | (1 << 20)

// Bank is the CSR bank for one hart.
type Bank struct {
	HartID uint32

	// mstatus/sstatus bits, per spec.md §3.
	SIE, MIE   bool
	SPIE, MPIE bool
	SPP        Privilege // only U or S is architecturally meaningful
	MPP        Privilege
	MPRV       bool
	SUM        bool
	MXR        bool
	TVM        bool
	TW         bool
	TSR        bool

	// Trap vectors.
	MTVecBase uint32
	MTVecMode TVecMode
	STVecBase uint32
	STVecMode TVecMode

	// Trap frames.
	MEPC, MTval uint32
	MCause      trapcause.Cause
	SEPC, STval uint32
	SCause      trapcause.Cause

	// Delegation bitmaps, already masked to their legal subset.
	MEDeleg uint32
	MIDeleg uint32

	// Interrupt control bitmaps (mie/mip bit layout).
	IE uint32
	IP uint32

	// Counters.
	MCycle        uint64
	MInstret      uint64
	MCounterEn    uint32
	SCounterEn    uint32
	MCountInhibit uint32

	// Paging.
	SatpMode SatpMode
	SatpPPN  uint32

	// Scratch.
	MScratch, SScratch uint32

	// Environment configuration (menvcfg/senvcfg): only the FIOM bit is
	// modeled, the rest of the CSR is WARL-zero.
	MFIOM, SFIOM bool

	// TimeSource reads the free-running timer for the time/timeh CSRs;
	// spec.md §3 ("time is read through the timer device").
	TimeSource func() uint64
}

// New creates a CSR bank reset to its architectural defaults: M-mode,
// counters and delegation all clear, satp Bare.
func New(hartID uint32, timeSource func() uint64) *Bank {
	return &Bank{HartID: hartID, TimeSource: timeSource, MPP: M}
}

func illegalCSR(addr uint32) error {
	return trapcause.Exception(trapcause.IllegalInstr, addr)
}

func (b *Bank) requireM(priv Privilege, addr uint32) error {
	if priv != M {
		return illegalCSR(addr)
	}
	return nil
}

func (b *Bank) requireS(priv Privilege, addr uint32) error {
	if priv < S {
		return illegalCSR(addr)
	}
	return nil
}

// requireCounter enforces "privilege = M OR (mcounteren[bit] AND
// (privilege = S OR scounteren[bit]))" for the U-mode counter shadow CSRs.
func (b *Bank) requireCounter(bit uint32, priv Privilege, addr uint32) error {
	if priv == M {
		return nil
	}
	if b.MCounterEn&bit == 0 {
		return illegalCSR(addr)
	}
	if priv == S || b.SCounterEn&bit != 0 {
		return nil
	}
	return illegalCSR(addr)
}

func (b *Bank) mstatusBits() uint32 {
	var v uint32
	if b.SIE {
		v |= 1 << 1
	}
	if b.MIE {
		v |= 1 << 3
	}
	if b.SPIE {
		v |= 1 << 5
	}
	if b.MPIE {
		v |= 1 << 7
	}
	if b.SPP == S {
		v |= 1 << 8
	}
	v |= uint32(b.MPP) << 11
	if b.MPRV {
		v |= 1 << 17
	}
	if b.SUM {
		v |= 1 << 18
	}
	if b.MXR {
		v |= 1 << 19
	}
	if b.TVM {
		v |= 1 << 20
	}
	if b.TW {
		v |= 1 << 21
	}
	if b.TSR {
		v |= 1 << 22
	}
	return v
}

// sstatusMask is the subset of mstatus bits visible through sstatus.
const sstatusMask = (1 << 1) | (1 << 5) | (1 << 8) | (1 << 18) | (1 << 19)

func (b *Bank) writeMstatusBits(v uint32) {
	b.SIE = v&(1<<1) != 0
	b.MIE = v&(1<<3) != 0
	b.SPIE = v&(1<<5) != 0
	b.MPIE = v&(1<<7) != 0
	if v&(1<<8) != 0 {
		b.SPP = S
	} else {
		b.SPP = U
	}
	switch (v >> 11) & 0x3 {
	case 0:
		b.MPP = U
	case 1:
		b.MPP = S
	default:
		b.MPP = M
	}
	b.MPRV = v&(1<<17) != 0
	b.SUM = v&(1<<18) != 0
	b.MXR = v&(1<<19) != 0
	b.TVM = v&(1<<20) != 0
	b.TW = v&(1<<21) != 0
	b.TSR = v&(1<<22) != 0
}

func (b *Bank) writeSstatusBits(v uint32) {
	full := (b.mstatusBits() &^ sstatusMask) | (v & sstatusMask)
	b.writeMstatusBits(full)
}

func encodeTVec(base uint32, mode TVecMode) uint32 {
	v := base &^ 0x3
	if mode == Vectored {
		v |= 1
	}
	return v
}

// decodeTVecWrite aligns base to 4 and only installs a new mode if it
// decodes to Direct or Vectored (both values always do, since mode is a
// single bit with both encodings defined); spec.md §4.2.
func decodeTVecWrite(v uint32) (base uint32, mode TVecMode) {
	base = v &^ 0x3
	if v&0x1 != 0 {
		mode = Vectored
	} else {
		mode = Direct
	}
	return base, mode
}

func (b *Bank) time() uint64 {
	if b.TimeSource == nil {
		return 0
	}
	return b.TimeSource()
}
