// Package cpu ties together the register file, memory bus, CSR bank and
// Sv32 translator into a single hardware thread: fetch, decode, execute,
// retire, plus the trap push/pop machinery and the interrupt arbiter. This
// is the generalization of the teacher's vm.VM.Run loop (pkg/vm/vm.go)
// from a flat RiSC-32 machine to the privileged RV32IMA_Zicsr_Zifencei
// model, per spec.md §4.3/§4.6/§4.7/§4.8.
package cpu

import (
	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/csr"
	"github.com/bassosimone/rv32sim/pkg/regfile"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// Hart is the single hardware thread: register file, bus, CSR bank,
// current privilege, and the decoded-instruction trace hook used by the
// monitor/verbose mode.
type Hart struct {
	Regs      *regfile.File
	Bus       *bus.Bus
	CSR       *csr.Bank
	Privilege csr.Privilege

	// Trace, when non-nil, is called after every retired or trapped
	// instruction with a one-line disassembly-style record. Wired by
	// cmd/rv32sim's -v/--verbose flag.
	Trace func(pc uint32, line string)
}

// New creates a hart booted per spec.md §6's boot contract: PC = ramBase,
// x10 = hartID, x11 = dtbBase, privilege = M, all CSR fields at their
// architectural reset values.
func New(b *bus.Bus, hartID uint32, ramBase, dtbBase uint32) *Hart {
	regs := &regfile.File{PC: ramBase}
	regs.Set(10, hartID)
	regs.Set(11, dtbBase)

	bank := csr.New(hartID, func() uint64 { return b.Timer.Time })

	return &Hart{
		Regs:      regs,
		Bus:       b,
		CSR:       bank,
		Privilege: csr.M,
	}
}

// StepResult reports what happened during one Step call, for callers that
// want to distinguish a retired instruction from a trap (e.g. the monitor,
// or run_until_ecall).
type StepResult struct {
	Trapped bool
	Trap    *trapcause.Trap
	PC      uint32 // PC at the start of the step
}
