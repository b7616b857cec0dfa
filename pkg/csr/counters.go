package csr

// RetireInstruction increments minstret unless mcountinhibit's IR bit
// inhibits it. Called once per successfully retired instruction.
func (b *Bank) RetireInstruction() {
	if b.MCountInhibit&counterIR == 0 {
		b.MInstret++
	}
}

// TickCycle increments mcycle unless mcountinhibit's CY bit inhibits it.
// Called unconditionally once per step, trapped or not.
func (b *Bank) TickCycle() {
	if b.MCountInhibit&counterCY == 0 {
		b.MCycle++
	}
}

// SetTimerPending reflects the timer device's time >= timecmp predicate
// into the MTimer bit of ip, per spec.md §4.8 step 1.
func (b *Bank) SetTimerPending(pending bool) {
	const mipMTIP = 1 << 7
	if pending {
		b.IP |= mipMTIP
	} else {
		b.IP &^= mipMTIP
	}
}
