package bus

import "github.com/bassosimone/rv32sim/pkg/trapcause"

// DTBROM is the read-only device-tree blob region. Plain loads of any width
// are accepted; every LR/SC or AMO access faults, since those make no sense
// against a read-only region; writes always fault.
type DTBROM struct {
	Base uint32
	data []byte
}

// NewDTBROM creates an empty (zero-length) DTB ROM. Load installs the
// actual blob once the driver has read it from disk.
func NewDTBROM(base uint32) *DTBROM {
	return &DTBROM{Base: base}
}

// Load installs blob as the ROM contents, replacing any previous contents.
func (d *DTBROM) Load(blob []byte) {
	d.data = append([]byte(nil), blob...)
}

// Size returns the size of the currently loaded blob, per design note (b)
// in spec.md §9: the implementation exposes DTB size via an accessor
// instead of hard-coding it.
func (d *DTBROM) Size() uint32 {
	return uint32(len(d.data))
}

func (d *DTBROM) contains(off uint32, width Width) bool {
	end := uint64(off) + uint64(width)
	return end <= uint64(len(d.data))
}

// Read reads width bytes at region-local offset off, little-endian.
func (d *DTBROM) Read(off uint32, attr Attr) (uint32, error) {
	if attr.LRSC || attr.AMO {
		return 0, trapcause.Exception(attr.Type.AccessFault(), d.Base+off)
	}
	if !attr.Width.Align(off) {
		return 0, trapcause.Exception(attr.Type.Misaligned(), d.Base+off)
	}
	if !d.contains(off, attr.Width) {
		return 0, trapcause.Exception(attr.Type.AccessFault(), d.Base+off)
	}
	var v uint32
	for i := Width(0); i < attr.Width; i++ {
		v |= uint32(d.data[off+uint32(i)]) << (8 * i)
	}
	return v, nil
}

// Write always fails: the DTB ROM is read-only.
func (d *DTBROM) Write(off uint32, value uint32, attr Attr) error {
	return trapcause.Exception(attr.Type.AccessFault(), d.Base+off)
}
