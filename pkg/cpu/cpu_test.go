package cpu

import (
	"errors"
	"testing"

	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/csr"
	"github.com/bassosimone/rv32sim/pkg/decode"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

func newTestHart(ramSize uint32) *Hart {
	b := bus.New(0, ramSize)
	return New(b, 0, 0, 0xF000_0000)
}

func TestBootContract(t *testing.T) {
	h := newTestHart(0x1000)
	if h.Regs.PC != 0 {
		t.Fatalf("pc=%#x", h.Regs.PC)
	}
	if h.Regs.Get(10) != 0 {
		t.Fatalf("a0=%#x", h.Regs.Get(10))
	}
	if h.Regs.Get(11) != 0xF000_0000 {
		t.Fatalf("a1=%#x", h.Regs.Get(11))
	}
	if h.Privilege != csr.M {
		t.Fatalf("privilege=%v", h.Privilege)
	}
}

func TestIllegalInstructionTrap(t *testing.T) {
	h := newTestHart(0x1000) // RAM is zero-initialized: word 0 at PC 0 is illegal
	res := h.Step()
	if !res.Trapped || res.Trap.Cause.Code != trapcause.IllegalInstr || res.Trap.Val != 0 {
		t.Fatalf("got %+v", res)
	}
	if h.Privilege != csr.M {
		t.Fatalf("privilege=%v", h.Privilege)
	}
	if h.CSR.MEPC != 0 {
		t.Fatalf("mepc=%#x", h.CSR.MEPC)
	}
	if h.Regs.PC != h.CSR.MTVecBase {
		t.Fatalf("pc=%#x mtvec=%#x", h.Regs.PC, h.CSR.MTVecBase)
	}
}

func TestLRSCPingPong(t *testing.T) {
	h := newTestHart(0x100)
	h.Regs.Set(1, 4)
	h.Regs.Set(2, 0x51290ce3)
	if err := h.Bus.Write(4, 0xbcfec832, bus.Attr{Type: bus.AccessStore, Width: bus.Word}); err != nil {
		t.Fatal(err)
	}

	if err := h.execute(decode.Instr{Kind: decode.KindLRW, RD: 3, RS1: 1}); err != nil {
		t.Fatal(err)
	}
	if h.Regs.Get(3) != 0xbcfec832 {
		t.Fatalf("x3=%#x", h.Regs.Get(3))
	}

	if err := h.execute(decode.Instr{Kind: decode.KindSCW, RD: 4, RS1: 1, RS2: 2}); err != nil {
		t.Fatal(err)
	}
	if h.Regs.Get(4) != 0 {
		t.Fatalf("first sc: x4=%d", h.Regs.Get(4))
	}
	v, _ := h.Bus.Read(4, bus.Attr{Type: bus.AccessLoad, Width: bus.Word})
	if v != 0x51290ce3 {
		t.Fatalf("mem[4]=%#x", v)
	}

	if err := h.execute(decode.Instr{Kind: decode.KindSCW, RD: 4, RS1: 1, RS2: 2}); err != nil {
		t.Fatal(err)
	}
	if h.Regs.Get(4) != 1 {
		t.Fatalf("second sc: x4=%d", h.Regs.Get(4))
	}
	v, _ = h.Bus.Read(4, bus.Attr{Type: bus.AccessLoad, Width: bus.Word})
	if v != 0x51290ce3 {
		t.Fatalf("mem[4] changed on failed sc: %#x", v)
	}
}

func TestAMOFaultReclassifiedAsStore(t *testing.T) {
	h := newTestHart(16) // 16-byte RAM, rs1=16 is out of range
	h.Regs.Set(2, 16)
	h.Regs.Set(3, 1)
	err := h.execute(decode.Instr{Kind: decode.KindAMOADDW, RD: 1, RS1: 2, RS2: 3})
	var trap *trapcause.Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected trap, got %v", err)
	}
	if trap.Cause.Code != trapcause.StoreAccessFault || trap.Val != 16 {
		t.Fatalf("got %+v", trap)
	}
}

func TestBranchMisalignedTargetLeavesPCUnchanged(t *testing.T) {
	h := newTestHart(0x100)
	h.Regs.PC = 0x100
	h.Regs.Set(1, 1)
	h.Regs.Set(2, 1)
	err := h.execute(decode.Instr{Kind: decode.KindBEQ, RS1: 1, RS2: 2, Imm: 2}) // misaligned target 0x102
	var trap *trapcause.Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected trap, got %v", err)
	}
	if trap.Cause.Code != trapcause.InstrAddrMisaligned || trap.Val != 0x102 {
		t.Fatalf("got %+v", trap)
	}
	if h.Regs.PC != 0x100 {
		t.Fatalf("pc changed: %#x", h.Regs.PC)
	}
}

func TestJALRWritesLinkAfterComputingTarget(t *testing.T) {
	h := newTestHart(0x100)
	h.Regs.PC = 0x40
	h.Regs.Set(5, 0x80) // rs1 == rd
	err := h.execute(decode.Instr{Kind: decode.KindJALR, RD: 5, RS1: 5, Imm: 4})
	if err != nil {
		t.Fatal(err)
	}
	if h.Regs.PC != 0x84 {
		t.Fatalf("pc=%#x", h.Regs.PC)
	}
	if h.Regs.Get(5) != 0x44 {
		t.Fatalf("x5=%#x", h.Regs.Get(5))
	}
}

func TestMretClearsMPRVWhenLeavingM(t *testing.T) {
	h := newTestHart(0x100)
	h.CSR.MPP = csr.U
	h.CSR.MPRV = true
	h.CSR.MEPC = 0x200
	if err := h.execute(decode.Instr{Kind: decode.KindMRET}); err != nil {
		t.Fatal(err)
	}
	if h.Privilege != csr.U {
		t.Fatalf("privilege=%v", h.Privilege)
	}
	if h.CSR.MPRV {
		t.Fatal("expected MPRV cleared on MRET to U")
	}
	if h.Regs.PC != 0x200 {
		t.Fatalf("pc=%#x", h.Regs.PC)
	}
}

func TestStorePageFaultOnReadOnlyPage(t *testing.T) {
	h := newTestHart(0x10000)
	h.Privilege = csr.S
	h.CSR.SatpMode = csr.Sv32
	h.CSR.SatpPPN = 0

	const (
		pteV = 1 << 0
		pteR = 1 << 1
		pteU = 1 << 4
	)
	store := func(addr, val uint32) {
		if err := h.Bus.Write(addr, val, bus.Attr{Type: bus.AccessStore, Width: bus.Word}); err != nil {
			t.Fatal(err)
		}
	}
	store(0, (1<<10)|pteV)                     // pte1 -> non-leaf pointing at ppn=1
	store(0x1004, (2<<10)|pteR|pteU|pteV)       // pte0 -> leaf, read-only, user-accessible

	va := uint32(0x1000)
	h.Regs.Set(1, va)
	h.Regs.Set(2, 0xdeadbeef)
	err := h.execute(decode.Instr{Kind: decode.KindSW, RS1: 1, RS2: 2, Imm: 0})
	var trap *trapcause.Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected trap, got %v", err)
	}
	if trap.Cause.Code != trapcause.StorePageFault || trap.Val != va {
		t.Fatalf("got %+v", trap)
	}

	h.handleTrap(trap)
	if h.CSR.MTval != va || h.CSR.MCause.Code != trapcause.StorePageFault {
		t.Fatalf("mtval=%#x mcause=%+v", h.CSR.MTval, h.CSR.MCause)
	}
	if h.Privilege != csr.M {
		t.Fatalf("privilege=%v", h.Privilege)
	}
}

func TestDivisionByZeroAndOverflow(t *testing.T) {
	h := newTestHart(0x10)
	h.Regs.Set(1, 5)
	h.Regs.Set(2, 0)
	h.execute(decode.Instr{Kind: decode.KindDIV, RD: 3, RS1: 1, RS2: 2})
	if h.Regs.Get(3) != 0xffffffff {
		t.Fatalf("div by zero: %#x", h.Regs.Get(3))
	}
	h.execute(decode.Instr{Kind: decode.KindREM, RD: 3, RS1: 1, RS2: 2})
	if h.Regs.Get(3) != 5 {
		t.Fatalf("rem by zero: %#x", h.Regs.Get(3))
	}

	h.Regs.Set(1, 0x80000000)
	h.Regs.Set(2, 0xffffffff) // -1
	h.execute(decode.Instr{Kind: decode.KindDIV, RD: 3, RS1: 1, RS2: 2})
	if h.Regs.Get(3) != 0x80000000 {
		t.Fatalf("overflow div: %#x", h.Regs.Get(3))
	}
	h.execute(decode.Instr{Kind: decode.KindREM, RD: 3, RS1: 1, RS2: 2})
	if h.Regs.Get(3) != 0 {
		t.Fatalf("overflow rem: %#x", h.Regs.Get(3))
	}
}

func TestCSRRWSkipsReadWhenRDIsZero(t *testing.T) {
	h := newTestHart(0x10)
	h.Regs.Set(1, 0x1234)
	err := h.execute(decode.Instr{Kind: decode.KindCSRRW, RD: 0, RS1: 1, CSR: 0x340})
	if err != nil {
		t.Fatal(err)
	}
	if h.CSR.MScratch != 0x1234 {
		t.Fatalf("mscratch=%#x", h.CSR.MScratch)
	}
}

func TestCSRRSSkipsWriteWhenMaskZero(t *testing.T) {
	h := newTestHart(0x10)
	h.CSR.MScratch = 0x55
	h.Regs.Set(1, 0) // mask zero
	err := h.execute(decode.Instr{Kind: decode.KindCSRRS, RD: 2, RS1: 1, CSR: 0x340})
	if err != nil {
		t.Fatal(err)
	}
	if h.Regs.Get(2) != 0x55 {
		t.Fatalf("x2=%#x", h.Regs.Get(2))
	}
	if h.CSR.MScratch != 0x55 {
		t.Fatalf("mscratch changed: %#x", h.CSR.MScratch)
	}
}

func TestInterruptArbiterDeliversBeforeFetch(t *testing.T) {
	h := newTestHart(0x10)
	h.CSR.Write(0x304, 1<<7, csr.M) // mie.MTIP
	h.CSR.Write(0x300, 1<<3, csr.M) // mstatus.MIE
	h.Bus.Timer.Timecmp = 0         // time (0) >= timecmp (0): pending immediately

	res := h.Step()
	if !res.Trapped || !res.Trap.Cause.Interrupt || res.Trap.Cause.Code != trapcause.MTimer {
		t.Fatalf("got %+v", res)
	}
}
