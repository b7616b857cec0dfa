package bus

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// Timer is the 64-bit free-running timer and its 64-bit time-compare
// register. Time increments by one on every step, trapped or not (the step
// loop drives this via Tick); the timer interrupt is pending whenever
// Time >= Timecmp. Both halves are exposed through the memory map as two
// little-endian 32-bit words, offset 0 the low word and offset 4 the high
// word, following spec.md §4.5.
type Timer struct {
	Time    uint64
	Timecmp uint64
}

// NewTimer creates a timer with Timecmp at its reset-maximum value, so the
// timer interrupt is not spuriously pending before software configures it.
func NewTimer() *Timer {
	return &Timer{Timecmp: ^uint64(0)}
}

// Tick advances the free-running counter by one.
func (t *Timer) Tick() {
	t.Time++
}

// Pending reports the timer-interrupt pending predicate.
func (t *Timer) Pending() bool {
	return t.Time >= t.Timecmp
}

// checkWordAccess enforces "word accesses only; load/store only" for both
// the time and timecmp windows.
func checkWordAccess(off uint32, attr Attr, faultBase uint32) error {
	if attr.Type == AccessInstr || attr.LRSC || attr.AMO {
		return trapcause.Exception(attr.Type.AccessFault(), faultBase+off)
	}
	if attr.Width != Word {
		return trapcause.Exception(attr.Type.AccessFault(), faultBase+off)
	}
	if !attr.Width.Align(off) {
		return trapcause.Exception(attr.Type.Misaligned(), faultBase+off)
	}
	return nil
}

// ReadTime reads the time register at region-local offset off (0 or 4).
func (t *Timer) ReadTime(off uint32, attr Attr, base uint32) (uint32, error) {
	if err := checkWordAccess(off, attr, base); err != nil {
		return 0, err
	}
	return readHalf64(t.Time, off), nil
}

// WriteTime writes the time register at region-local offset off (0 or 4).
func (t *Timer) WriteTime(off uint32, value uint32, attr Attr, base uint32) error {
	if err := checkWordAccess(off, attr, base); err != nil {
		return err
	}
	t.Time = writeHalf64(t.Time, off, value)
	return nil
}

// ReadTimecmp reads the timecmp register at region-local offset off.
func (t *Timer) ReadTimecmp(off uint32, attr Attr, base uint32) (uint32, error) {
	if err := checkWordAccess(off, attr, base); err != nil {
		return 0, err
	}
	return readHalf64(t.Timecmp, off), nil
}

// WriteTimecmp writes the timecmp register at region-local offset off.
func (t *Timer) WriteTimecmp(off uint32, value uint32, attr Attr, base uint32) error {
	if err := checkWordAccess(off, attr, base); err != nil {
		return err
	}
	t.Timecmp = writeHalf64(t.Timecmp, off, value)
	return nil
}

func readHalf64(v uint64, off uint32) uint32 {
	if off == 0 {
		return uint32(v)
	}
	return uint32(v >> 32)
}

func writeHalf64(v uint64, off uint32, value uint32) uint64 {
	if off == 0 {
		return (v &^ 0xffffffff) | uint64(value)
	}
	return (v & 0xffffffff) | (uint64(value) << 32)
}
