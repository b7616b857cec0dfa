package bus

import (
	"net"
	"testing"
	"time"
)

func TestRAMRoundTrip(t *testing.T) {
	b := New(0x8000_0000, 4096)
	storeAttr := Attr{Type: AccessStore, Width: Word}
	loadAttr := Attr{Type: AccessLoad, Width: Word}

	if err := b.Write(0x8000_0010, 0xdeadbeef, storeAttr); err != nil {
		t.Fatalf("write word: %v", err)
	}
	got, err := b.Read(0x8000_0010, loadAttr)
	if err != nil {
		t.Fatalf("read word: %v", err)
	}
	if got != 0xdeadbeef {
		t.Fatalf("got 0x%x, want 0xdeadbeef", got)
	}

	halfAttr := Attr{Type: AccessStore, Width: HalfWord}
	if err := b.Write(0x8000_0020, 0x1234, halfAttr); err != nil {
		t.Fatalf("write half: %v", err)
	}
	got, err = b.Read(0x8000_0020, Attr{Type: AccessLoad, Width: HalfWord})
	if err != nil || got != 0x1234 {
		t.Fatalf("half round trip: got 0x%x, err=%v", got, err)
	}

	byteAttr := Attr{Type: AccessStore, Width: Byte}
	if err := b.Write(0x8000_0021, 0xab, byteAttr); err != nil {
		t.Fatalf("write byte: %v", err)
	}
	got, err = b.Read(0x8000_0021, Attr{Type: AccessLoad, Width: Byte})
	if err != nil || got != 0xab {
		t.Fatalf("byte round trip: got 0x%x, err=%v", got, err)
	}
}

func TestMisalignedHalfAndWordFault(t *testing.T) {
	b := New(0x8000_0000, 4096)
	if _, err := b.Read(0x8000_0001, Attr{Type: AccessLoad, Width: HalfWord}); err == nil {
		t.Fatal("expected misaligned half-word fault")
	}
	if _, err := b.Read(0x8000_0002, Attr{Type: AccessLoad, Width: Word}); err == nil {
		t.Fatal("expected misaligned word fault")
	}
}

func TestOutOfRangeAccessFault(t *testing.T) {
	b := New(0x8000_0000, 16)
	if _, err := b.Read(0x8000_0000+16, Attr{Type: AccessLoad, Width: Byte}); err == nil {
		t.Fatal("expected access fault past end of RAM")
	}
}

func TestReservationClearedByMatchingStore(t *testing.T) {
	b := New(0x8000_0000, 4096)
	b.SetReservation(0x8000_0010)
	if !b.CheckReservation(0x8000_0010) {
		t.Fatal("reservation should be active")
	}
	if err := b.Write(0x8000_0010, 0, Attr{Type: AccessStore, Width: Word}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if b.CheckReservation(0x8000_0010) {
		t.Fatal("matching store should have cleared the reservation")
	}
}

func TestReservationSurvivesUnrelatedStore(t *testing.T) {
	b := New(0x8000_0000, 4096)
	b.SetReservation(0x8000_0010)
	if err := b.Write(0x8000_0020, 0, Attr{Type: AccessStore, Width: Word}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !b.CheckReservation(0x8000_0010) {
		t.Fatal("unrelated store cleared the reservation")
	}
}

func TestUARTByteOnly(t *testing.T) {
	b := New(0x8000_0000, 4096)
	if _, err := b.Read(UARTBase, Attr{Type: AccessLoad, Width: Word}); err == nil {
		t.Fatal("expected word access to UART to fault")
	}
	got, err := b.Read(UARTBase+5, Attr{Type: AccessLoad, Width: Byte})
	if err != nil {
		t.Fatalf("LSR read: %v", err)
	}
	if got != lsrFixed {
		t.Fatalf("LSR = 0x%x, want 0x%x", got, lsrFixed)
	}
}

func TestTimerTickAndPending(t *testing.T) {
	timer := NewTimer()
	if timer.Pending() {
		t.Fatal("timer should not be pending at reset")
	}
	timer.Timecmp = 3
	for i := 0; i < 3; i++ {
		timer.Tick()
	}
	if !timer.Pending() {
		t.Fatal("timer should be pending once time reaches timecmp")
	}
}

func TestTCPConsoleRoundTrip(t *testing.T) {
	// Grab a free loopback port, release it, then dial AcceptTCPConsole's
	// own listener on it, retrying until the goroutine below is listening:
	// a local, single-process test has no other process contending for the
	// port in the instant between.
	probe, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := probe.Addr().String()
	probe.Close()

	serverCh := make(chan *TCPConsole, 1)
	errCh := make(chan error, 1)
	go func() {
		console, err := AcceptTCPConsole(addr, nil)
		if err != nil {
			errCh <- err
			return
		}
		serverCh <- console
	}()

	var conn net.Conn
	for i := 0; i < 100; i++ {
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	var server *TCPConsole
	select {
	case server = <-serverCh:
	case err := <-errCh:
		t.Fatalf("AcceptTCPConsole: %v", err)
	}
	defer server.Close()

	if err := server.WriteByte('X'); err != nil {
		t.Fatalf("server write: %v", err)
	}
	var got [1]byte
	if _, err := conn.Read(got[:]); err != nil {
		t.Fatalf("client read: %v", err)
	}
	if got[0] != 'X' {
		t.Fatalf("got %q, want 'X'", got[0])
	}

	if _, err := conn.Write([]byte{'Y'}); err != nil {
		t.Fatalf("client write: %v", err)
	}
	b, err := server.ReadByte()
	if err != nil {
		t.Fatalf("server read: %v", err)
	}
	if b != 'Y' {
		t.Fatalf("got %q, want 'Y'", b)
	}
}

func TestTimecmpLittleEndianHalves(t *testing.T) {
	b := New(0x8000_0000, 4096)
	wAttr := Attr{Type: AccessStore, Width: Word}
	if err := b.Write(TimecmpBase, 0x11223344, wAttr); err != nil {
		t.Fatalf("write low: %v", err)
	}
	if err := b.Write(TimecmpBase+4, 0x55667788, wAttr); err != nil {
		t.Fatalf("write high: %v", err)
	}
	if b.Timer.Timecmp != 0x5566778811223344 {
		t.Fatalf("timecmp = 0x%x", b.Timer.Timecmp)
	}
}
