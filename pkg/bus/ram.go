package bus

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// RAM is the byte-addressable main-memory region. Any width is permitted;
// HalfWord and Word accesses must be naturally aligned.
type RAM struct {
	Base uint32
	mem  []byte
}

// NewRAM allocates size bytes of RAM starting at base.
func NewRAM(base, size uint32) *RAM {
	return &RAM{Base: base, mem: make([]byte, size)}
}

// Size returns the RAM region's size in bytes.
func (r *RAM) Size() uint32 {
	return uint32(len(r.mem))
}

// contains reports whether the region-local offset off..off+width fits
// within the RAM extent.
func (r *RAM) contains(off uint32, width Width) bool {
	end := uint64(off) + uint64(width)
	return end <= uint64(len(r.mem))
}

// Read reads width bytes at region-local offset off, little-endian.
func (r *RAM) Read(off uint32, attr Attr) (uint32, error) {
	if !attr.Width.Align(off) {
		return 0, trapcause.Exception(attr.Type.Misaligned(), r.Base+off)
	}
	if !r.contains(off, attr.Width) {
		return 0, trapcause.Exception(attr.Type.AccessFault(), r.Base+off)
	}
	var v uint32
	for i := Width(0); i < attr.Width; i++ {
		v |= uint32(r.mem[off+uint32(i)]) << (8 * i)
	}
	return v, nil
}

// Write writes width bytes of value at region-local offset off,
// little-endian. It does not touch the reservation; Bus.Write clears it
// after a successful store to the reserved word.
func (r *RAM) Write(off uint32, value uint32, attr Attr) error {
	if !attr.Width.Align(off) {
		return trapcause.Exception(attr.Type.Misaligned(), r.Base+off)
	}
	if !r.contains(off, attr.Width) {
		return trapcause.Exception(attr.Type.AccessFault(), r.Base+off)
	}
	for i := Width(0); i < attr.Width; i++ {
		r.mem[off+uint32(i)] = byte(value >> (8 * i))
	}
	return nil
}

// Load copies data into RAM starting at region-local offset off. Used by
// pkg/loader to place binary/kernel images. Returns false if data does not
// fit.
func (r *RAM) Load(off uint32, data []byte) bool {
	if uint64(off)+uint64(len(data)) > uint64(len(r.mem)) {
		return false
	}
	copy(r.mem[off:], data)
	return true
}
