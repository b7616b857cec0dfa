package csr

import (
	"errors"
	"testing"

	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

func newBankAt(priv Privilege) (*Bank, Privilege) {
	return New(0, nil), priv
}

func expectIllegal(t *testing.T, err error) {
	t.Helper()
	var trap *trapcause.Trap
	if !errors.As(err, &trap) {
		t.Fatalf("expected illegal instruction trap, got %v", err)
	}
	if trap.Cause.Code != trapcause.IllegalInstr {
		t.Fatalf("expected IllegalInstr, got %v", trap.Cause.Code)
	}
}

func TestMstatusRoundTrip(t *testing.T) {
	b, priv := newBankAt(M)
	if err := b.Write(addrMstatus, (1<<1)|(1<<3)|(1<<18), priv); err != nil {
		t.Fatal(err)
	}
	v, err := b.Read(addrMstatus, priv)
	if err != nil {
		t.Fatal(err)
	}
	if v&(1<<1) == 0 || v&(1<<3) == 0 || v&(1<<18) == 0 {
		t.Fatalf("got %#x", v)
	}
	if !b.SIE || !b.MIE || !b.SUM {
		t.Fatalf("fields not decomposed: %+v", b)
	}
}

func TestSstatusIsMaskedView(t *testing.T) {
	b, priv := newBankAt(S)
	full, _ := newBankAt(M)
	full.Write(addrMstatus, 0xffffffff, M)
	b.MPP, b.MIE, b.MPIE, b.TVM, b.TW, b.TSR = full.MPP, full.MIE, full.MPIE, full.TVM, full.TW, full.TSR
	v, err := b.Read(addrSstatus, priv)
	if err != nil {
		t.Fatal(err)
	}
	if v&^sstatusMask != 0 {
		t.Fatalf("sstatus leaked non-S bits: %#x", v)
	}
}

func TestMstatusRequiresMPriv(t *testing.T) {
	b, _ := newBankAt(M)
	_, err := b.Read(addrMstatus, S)
	expectIllegal(t, err)
}

func TestMedelegMasksReservedAndClearsBit11(t *testing.T) {
	b, priv := newBankAt(M)
	if err := b.Write(addrMedeleg, 0xffffffff, priv); err != nil {
		t.Fatal(err)
	}
	if b.MEDeleg&(1<<11) != 0 {
		t.Fatalf("expected bit 11 (M-mode ecall) cleared, got %#x", b.MEDeleg)
	}
	if b.MEDeleg&^medelegMask != 0 {
		t.Fatalf("expected mask to restrict to legal bits, got %#x", b.MEDeleg)
	}
}

func TestMidelegMasksToSInterruptBits(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMideleg, 0xffffffff, priv)
	if b.MIDeleg != midelegMask {
		t.Fatalf("got %#x want %#x", b.MIDeleg, midelegMask)
	}
}

func TestSieIsMaskedByMideleg(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMideleg, mipSSIP, priv)
	b.Write(addrSie, 0xffffffff, S)
	if b.IE != mipSSIP {
		t.Fatalf("sie write should only touch delegated bits, got %#x", b.IE)
	}
}

func TestMtvecEncodeDecode(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMtvec, 0x8000_0001, priv)
	if b.MTVecMode != Vectored || b.MTVecBase != 0x8000_0000 {
		t.Fatalf("got base=%#x mode=%v", b.MTVecBase, b.MTVecMode)
	}
	v, _ := b.Read(addrMtvec, priv)
	if v != 0x8000_0001 {
		t.Fatalf("got %#x", v)
	}
}

func TestMcauseRejectsUnknownCode(t *testing.T) {
	b, priv := newBankAt(M)
	err := b.Write(addrMcause, 63, priv)
	expectIllegal(t, err)
}

func TestMcauseAcceptsKnownException(t *testing.T) {
	b, priv := newBankAt(M)
	cause := trapcause.Exception(trapcause.IllegalInstr, 0).Cause
	if err := b.Write(addrMcause, cause.Encode(), priv); err != nil {
		t.Fatal(err)
	}
	if b.MCause.Code != trapcause.IllegalInstr {
		t.Fatalf("got %+v", b.MCause)
	}
}

func TestMepcClearsLowBits(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMepc, 0x8000_0003, priv)
	if b.MEPC != 0x8000_0000 {
		t.Fatalf("got %#x", b.MEPC)
	}
}

func TestReadOnlyIdentificationCSRsFaultOnWrite(t *testing.T) {
	b, priv := newBankAt(M)
	for _, addr := range []uint32{addrMvendorid, addrMarchid, addrMimpid, addrMconfigptr, addrMhartid} {
		if err := b.Write(addr, 1, priv); err == nil {
			t.Fatalf("addr %#x: expected write to fault", addr)
		}
	}
}

func TestMhartidReadsBankID(t *testing.T) {
	b := New(7, nil)
	v, err := b.Read(addrMhartid, M)
	if err != nil || v != 7 {
		t.Fatalf("v=%v err=%v", v, err)
	}
}

func TestMisaWriteSilentlyIgnored(t *testing.T) {
	b, priv := newBankAt(M)
	before, _ := b.Read(addrMisa, priv)
	if err := b.Write(addrMisa, 0, priv); err != nil {
		t.Fatal(err)
	}
	after, _ := b.Read(addrMisa, priv)
	if before != after || after != misaValue {
		t.Fatalf("misa changed: before=%#x after=%#x", before, after)
	}
}

func TestCounterShadowGatedByMcounteren(t *testing.T) {
	b, priv := newBankAt(S)
	_, err := b.Read(addrCycle, priv)
	expectIllegal(t, err)

	b.Write(addrMcounteren, counterCY, M)
	if _, err := b.Read(addrCycle, priv); err != nil {
		t.Fatalf("expected access once mcounteren[CY] set: %v", err)
	}
}

func TestCounterShadowFromUAlsoNeedsScounteren(t *testing.T) {
	b, priv := newBankAt(U)
	b.Write(addrMcounteren, counterTM, M)
	_, err := b.Read(addrTime, priv)
	expectIllegal(t, err)

	b.Write(addrScounter, counterTM, S)
	if _, err := b.Read(addrTime, priv); err != nil {
		t.Fatalf("expected access once scounteren[TM] set too: %v", err)
	}
}

func TestCounterShadowWritesAlwaysFault(t *testing.T) {
	b, priv := newBankAt(M)
	for _, addr := range []uint32{addrCycle, addrCycleh, addrTime, addrTimeh, addrInstret, addrInstreth} {
		if err := b.Write(addr, 0, priv); err == nil {
			t.Fatalf("addr %#x: expected write to fault", addr)
		}
	}
}

func TestTimeReadsThroughTimeSource(t *testing.T) {
	b := New(0, func() uint64 { return 0x1_0000_0002 })
	b.Write(addrMcounteren, counterTM, M)
	lo, _ := b.Read(addrTime, M)
	hi, _ := b.Read(addrTimeh, M)
	if lo != 2 || hi != 1 {
		t.Fatalf("lo=%#x hi=%#x", lo, hi)
	}
}

func TestMcycleMinstretSplitHalves(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMcycle, 0xaaaaaaaa, priv)
	b.Write(addrMcycleh, 0x1, priv)
	if b.MCycle != 0x1_aaaaaaaa {
		t.Fatalf("got %#x", b.MCycle)
	}
	b.Write(addrMinstret, 5, priv)
	if b.MInstret != 5 {
		t.Fatalf("got %#x", b.MInstret)
	}
}

func TestSatpTrapsWhenTVMSetFromS(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMstatus, 1<<20, priv) // TVM
	_, err := b.Read(addrSatp, S)
	expectIllegal(t, err)
	err = b.Write(addrSatp, 1<<31, S)
	expectIllegal(t, err)
}

func TestSatpAllowedFromMEvenWithTVM(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMstatus, 1<<20, priv)
	if err := b.Write(addrSatp, (1<<31)|42, M); err != nil {
		t.Fatal(err)
	}
	if b.SatpMode != Sv32 || b.SatpPPN != 42 {
		t.Fatalf("got mode=%v ppn=%#x", b.SatpMode, b.SatpPPN)
	}
}

func TestSipOnlyExposesSSIPAndDelegatedView(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMideleg, mipSSIP, priv)
	b.Write(addrMip, mipSSIP|mipSTIP, priv) // STIP set but not delegated
	v, err := b.Read(addrSip, S)
	if err != nil {
		t.Fatal(err)
	}
	if v != mipSSIP {
		t.Fatalf("expected only delegated SSIP visible, got %#x", v)
	}
	b.Write(addrSip, 0, S)
	if b.IP&mipSSIP != 0 {
		t.Fatal("expected sip write to clear SSIP")
	}
	if b.IP&mipSTIP == 0 {
		t.Fatal("sip write must not touch non-delegated bits")
	}
}

func TestMipWritesMaskedToSWritableSubset(t *testing.T) {
	b, priv := newBankAt(M)
	b.Write(addrMip, 0xffffffff, priv)
	if b.IP != mipMWritable {
		t.Fatalf("got %#x want %#x", b.IP, mipMWritable)
	}
}

func TestUnknownCSRIsIllegal(t *testing.T) {
	b, priv := newBankAt(M)
	_, err := b.Read(0x7ff, priv)
	expectIllegal(t, err)
}
