package bus

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// Fixed physical memory map, per spec.md §3/§4.5/§6. RAM's base and size
// are configurable (the CLI's -b/-s flags); every other region is fixed.
const (
	UARTBase    = 0xC000_0000
	UARTSize    = 8
	TimeBase    = 0xD000_0000
	TimeSize    = 8
	TimecmpBase = 0xD000_1000
	TimecmpSize = 8
	DTBBase     = 0xF000_0000
	// dtbRegionSize bounds the addressable DTB window; the blob itself may
	// be (and usually is) much smaller, see DTBROM.Size.
	dtbRegionSize = 16 * 1024 * 1024
)

// Bus dispatches physical addresses to the concrete devices and owns the
// single LR.W/SC.W reservation, per spec.md §4.5. This generalizes the
// teacher's vm.VM.Memory (a single flat array with a paging overlay) into
// multiple fixed regions, since this simulator's paging lives one layer up
// in pkg/mmu rather than inside the bus.
type Bus struct {
	RAM    *RAM
	UART   *UART
	Timer  *Timer
	DTB    *DTBROM

	reservation       uint32
	reservationActive bool
}

// New creates a bus with RAM of size bytes at base and the fixed UART,
// timer and DTB regions.
func New(ramBase, ramSize uint32) *Bus {
	return &Bus{
		RAM:   NewRAM(ramBase, ramSize),
		UART:  NewUART(UARTBase),
		Timer: NewTimer(),
		DTB:   NewDTBROM(DTBBase),
	}
}

// Read dispatches a read access to the owning region.
func (b *Bus) Read(pa uint32, attr Attr) (uint32, error) {
	switch {
	case inRegion(pa, b.RAM.Base, b.RAM.Size()):
		return b.RAM.Read(pa-b.RAM.Base, attr)
	case inRegion(pa, UARTBase, UARTSize):
		return b.UART.Read(pa-UARTBase, attr)
	case inRegion(pa, TimeBase, TimeSize):
		return b.Timer.ReadTime(pa-TimeBase, attr, TimeBase)
	case inRegion(pa, TimecmpBase, TimecmpSize):
		return b.Timer.ReadTimecmp(pa-TimecmpBase, attr, TimecmpBase)
	case inRegion(pa, DTBBase, dtbRegionSize):
		return b.DTB.Read(pa-DTBBase, attr)
	default:
		return 0, trapcause.Exception(attr.Type.AccessFault(), pa)
	}
}

// Write dispatches a write access to the owning region, clearing the
// reservation when a successful RAM write touches the reserved word.
func (b *Bus) Write(pa uint32, value uint32, attr Attr) error {
	var err error
	switch {
	case inRegion(pa, b.RAM.Base, b.RAM.Size()):
		err = b.RAM.Write(pa-b.RAM.Base, value, attr)
	case inRegion(pa, UARTBase, UARTSize):
		err = b.UART.Write(pa-UARTBase, value, attr)
	case inRegion(pa, TimeBase, TimeSize):
		err = b.Timer.WriteTime(pa-TimeBase, value, attr, TimeBase)
	case inRegion(pa, TimecmpBase, TimecmpSize):
		err = b.Timer.WriteTimecmp(pa-TimecmpBase, value, attr, TimecmpBase)
	case inRegion(pa, DTBBase, dtbRegionSize):
		err = b.DTB.Write(pa-DTBBase, value, attr)
	default:
		err = trapcause.Exception(attr.Type.AccessFault(), pa)
	}
	if err == nil && inRegion(pa, b.RAM.Base, b.RAM.Size()) {
		b.noteStore(pa, attr.Width)
	}
	return err
}

func inRegion(pa, base, size uint32) bool {
	return pa >= base && uint64(pa)-uint64(base) < uint64(size)
}

// noteStore clears the reservation if the just-completed RAM store
// touched the reserved word, per spec.md §3 ("any store that matches its
// word address").
func (b *Bus) noteStore(pa uint32, width Width) {
	if !b.reservationActive {
		return
	}
	first := pa >> 2
	last := (pa + uint32(width) - 1) >> 2
	if b.reservation >= first && b.reservation <= last {
		b.reservationActive = false
	}
}

// SetReservation records physAddr's word (physAddr is not yet shifted) as
// the single outstanding LR.W reservation.
func (b *Bus) SetReservation(physAddr uint32) {
	b.reservation = physAddr >> 2
	b.reservationActive = true
}

// CheckReservation reports whether physAddr's word matches the current
// reservation.
func (b *Bus) CheckReservation(physAddr uint32) bool {
	return b.reservationActive && b.reservation == physAddr>>2
}

// ClearReservation drops any outstanding reservation. Called on SC.W
// (regardless of outcome) and on every trap enter/return.
func (b *Bus) ClearReservation() {
	b.reservationActive = false
}
