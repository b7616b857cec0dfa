// Package loader places raw binary images, kernel images and device-tree
// blobs into the simulator's memory map. This plays the external-collaborator
// role spec.md §6 assigns to file loading: the core (pkg/bus, pkg/cpu) never
// touches the filesystem, and loader never touches CPU state, mirroring how
// the teacher's vm.LoadBytecode (pkg/vm/vm.go) is a pure io.Reader → *VM
// conversion kept outside the machine it fills in.
package loader

import (
	"fmt"
	"io"

	"github.com/bassosimone/rv32sim/pkg/bus"
)

// LoadBinary reads all of r and copies it into ram at region-local offset
// offset, per spec.md §6's boot contract (the positional binary argument
// is loaded at offset 0).
func LoadBinary(ram *bus.RAM, r io.Reader, offset uint32) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("rv32sim: loader: reading binary: %w", err)
	}
	if !ram.Load(offset, data) {
		return fmt.Errorf("rv32sim: loader: binary of %d bytes does not fit at offset %#x in %d bytes of RAM", len(data), offset, ram.Size())
	}
	return nil
}

// LoadKernel reads all of r and copies it into ram at the fixed kernel
// offset (0x0040_0000), per spec.md §6's `-k/--kernel` flag.
func LoadKernel(ram *bus.RAM, r io.Reader) error {
	const kernelOffset = 0x0040_0000
	if err := LoadBinary(ram, r, kernelOffset); err != nil {
		return fmt.Errorf("rv32sim: loader: loading kernel: %w", err)
	}
	return nil
}

// LoadDTB reads all of r and installs it as the device-tree ROM's backing
// blob, per spec.md §9 design note (b): the DTB's size is implied by the
// loaded blob and exposed via DTBROM.Size rather than hard-coded.
func LoadDTB(dtbrom *bus.DTBROM, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("rv32sim: loader: reading device tree blob: %w", err)
	}
	dtbrom.Load(data)
	return nil
}
