package cpu

import (
	"fmt"

	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/decode"
	"github.com/bassosimone/rv32sim/pkg/mmu"
	"github.com/bassosimone/rv32sim/pkg/trapcause"
)

// Step executes spec.md §4.8's one-iteration step loop: refresh the timer
// interrupt pending bit, consult the arbiter, else fetch/decode/execute,
// then retire and tick counters/timer.
func (h *Hart) Step() StepResult {
	startPC := h.Regs.PC

	h.CSR.SetTimerPending(h.Bus.Timer.Pending())

	if trap := pendingInterrupt(h.CSR, h.Privilege); trap != nil {
		h.handleTrap(trap)
		h.emitTrace(startPC, "<interrupt>")
		h.tick()
		return StepResult{Trapped: true, Trap: trap, PC: startPC}
	}

	in, err := h.fetchDecode()
	if err == nil {
		err = h.execute(in)
	}

	if err != nil {
		trap, _ := trapcause.As(err)
		h.handleTrap(trap)
		h.emitTrace(startPC, "<trap>")
		h.tick()
		return StepResult{Trapped: true, Trap: trap, PC: startPC}
	}

	h.CSR.RetireInstruction()
	h.emitTrace(startPC, in.String())
	h.tick()
	return StepResult{PC: startPC}
}

func (h *Hart) fetchDecode() (decode.Instr, error) {
	attr := bus.Attr{Type: bus.AccessInstr, Width: bus.Word}
	pa, err := mmu.Translate(h.Bus, h.CSR, h.Regs.PC, attr, h.Privilege)
	if err != nil {
		return decode.Instr{}, err
	}
	word, err := h.Bus.Read(pa, attr)
	if err != nil {
		return decode.Instr{}, err
	}
	return decode.Decode(word)
}

// tick advances cycle and the timer device by one; always runs, trapped
// or not, per spec.md §4.8 step 5.
func (h *Hart) tick() {
	h.CSR.TickCycle()
	h.Bus.Timer.Tick()
}

func (h *Hart) emitTrace(pc uint32, line string) {
	if h.Trace != nil {
		h.Trace(pc, line)
	}
}

// RunUntilTrapped steps until a trap occurs (of any kind) or maxSteps is
// reached, whichever comes first. A convenience driver per spec.md §5.
func (h *Hart) RunUntilTrapped(maxSteps int) StepResult {
	var last StepResult
	for i := 0; i < maxSteps; i++ {
		last = h.Step()
		if last.Trapped {
			return last
		}
	}
	return last
}

// RunUntilEcall steps until an ECALL-family exception is delivered or
// maxSteps is reached. A convenience driver per spec.md §5, used by the
// ISA conformance test scenarios in spec.md §8.
func (h *Hart) RunUntilEcall(maxSteps int) (StepResult, error) {
	for i := 0; i < maxSteps; i++ {
		result := h.Step()
		if result.Trapped && isEcall(result.Trap) {
			return result, nil
		}
	}
	return StepResult{}, fmt.Errorf("rv32sim: cpu: no ecall within %d steps", maxSteps)
}

func isEcall(trap *trapcause.Trap) bool {
	if trap == nil || trap.Cause.Interrupt {
		return false
	}
	switch trap.Cause.Code {
	case trapcause.EcallFromU, trapcause.EcallFromS, trapcause.EcallFromM:
		return true
	default:
		return false
	}
}
