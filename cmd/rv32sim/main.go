// Command rv32sim boots a single hart against a raw binary image, per
// spec.md §6's external-interface contract. This is the generalization of
// the teacher's cmd/vm/main.go (stdlib flag, fmt.Scanln debug-pause,
// log.Fatal-per-stage) onto the privileged RV32IMA_Zicsr_Zifencei model:
// paired short/long flags via github.com/pborman/getopt/v2
// (rcornwell-S370/main.go), structured logging via pkg/tracelog, and an
// interactive github.com/peterh/liner monitor in place of fmt.Scanln
// (rcornwell-S370/command/reader/reader.go).
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/bassosimone/rv32sim/pkg/bus"
	"github.com/bassosimone/rv32sim/pkg/cpu"
	"github.com/bassosimone/rv32sim/pkg/loader"
	"github.com/bassosimone/rv32sim/pkg/tracelog"
)

func main() {
	optSize := getopt.StringLong("size", 's', "128M", "RAM size (human-readable, e.g. 128M)")
	optBase := getopt.StringLong("base", 'b', "0", "RAM base address (hex accepted)")
	optDTB := getopt.StringLong("dtb", 0, "", "device-tree blob to load")
	optKernel := getopt.StringLong("kernel", 'k', "", "kernel image to load at 0x00400000")
	optVerbose := getopt.BoolLong("verbose", 'v', "enable per-instruction trace")
	optMonitor := getopt.BoolLong("monitor", 'd', "enable the interactive step monitor")
	optTCPConsole := getopt.StringLong("tcp-console", 't', "", "serve the UART over this TCP address (e.g. 127.0.0.1:6402) instead of stdio")
	optHelp := getopt.BoolLong("help", 'h', "help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "rv32sim: usage: rv32sim [flags] <binary>")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *optVerbose {
		level = slog.LevelInfo
	}
	logger := slog.New(tracelog.NewHandler(os.Stderr, level))
	slog.SetDefault(logger)

	ramSize, err := parseSize(*optSize)
	if err != nil {
		logger.Error("invalid RAM size", "value", *optSize, "error", err.Error())
		os.Exit(1)
	}
	ramBase, err := parseUint32(*optBase)
	if err != nil {
		logger.Error("invalid RAM base", "value", *optBase, "error", err.Error())
		os.Exit(1)
	}

	b := bus.New(ramBase, ramSize)
	if *optTCPConsole != "" {
		console, err := bus.AcceptTCPConsole(*optTCPConsole, logger)
		if err != nil {
			logger.Error("cannot accept TCP console", "addr", *optTCPConsole, "error", err.Error())
			os.Exit(1)
		}
		defer console.Close()
		b.UART.Attach(console)
	} else {
		b.UART.Attach(bus.NewStdioConsole())
	}

	binFile, err := os.Open(args[0])
	if err != nil {
		logger.Error("cannot open binary", "path", args[0], "error", err.Error())
		os.Exit(1)
	}
	defer binFile.Close()
	if err := loader.LoadBinary(b.RAM, binFile, 0); err != nil {
		logger.Error("cannot load binary", "error", err.Error())
		os.Exit(1)
	}

	if *optDTB != "" {
		dtbFile, err := os.Open(*optDTB)
		if err != nil {
			logger.Error("cannot open device tree blob", "path", *optDTB, "error", err.Error())
			os.Exit(2)
		}
		defer dtbFile.Close()
		if err := loader.LoadDTB(b.DTB, dtbFile); err != nil {
			logger.Error("cannot load device tree blob", "error", err.Error())
			os.Exit(2)
		}
	}

	if *optKernel != "" {
		kernelFile, err := os.Open(*optKernel)
		if err != nil {
			logger.Error("cannot open kernel image", "path", *optKernel, "error", err.Error())
			os.Exit(3)
		}
		defer kernelFile.Close()
		if err := loader.LoadKernel(b.RAM, kernelFile); err != nil {
			logger.Error("cannot load kernel image", "error", err.Error())
			os.Exit(3)
		}
	}

	hart := cpu.New(b, 0, ramBase, bus.DTBBase)
	if *optVerbose {
		hart.Trace = func(pc uint32, line string) {
			logger.Info("step", "pc", fmt.Sprintf("%#x", pc), "instr", line)
		}
	}

	if *optMonitor {
		runMonitor(hart, logger)
		return
	}

	runFree(hart, logger)
}

// runFree steps the hart forever, the normal (non-monitor) mode. There is
// no architectural halt instruction in this ISA; the run ends when the
// process is killed or a host signal interrupts it, matching the teacher's
// cmd/vm loop's reliance on an external stop condition.
func runFree(hart *cpu.Hart, logger *slog.Logger) {
	for {
		hart.Step()
	}
}

// runMonitor pauses before every step on an interactive github.com/
// peterh/liner prompt, adapted from rcornwell-S370/command/reader/
// reader.go's NewLiner/SetCtrlCAborts/Prompt/AppendHistory/ErrPromptAborted
// pattern. Steps are echoed only through hart.Trace, which is set when -v
// is also given.
func runMonitor(hart *cpu.Hart, logger *slog.Logger) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		cmd, err := line.Prompt(fmt.Sprintf("rv32sim[%#08x]> ", hart.Regs.PC))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return
			}
			logger.Error("monitor prompt failed", "error", err.Error())
			return
		}
		line.AppendHistory(cmd)

		switch strings.TrimSpace(cmd) {
		case "q", "quit":
			return
		case "", "s", "step":
			res := hart.Step()
			if res.Trapped {
				fmt.Printf("trapped: cause=%+v val=%#x\n", res.Trap.Cause, res.Trap.Val)
			}
		case "r", "regs":
			printRegs(hart)
		default:
			fmt.Printf("unknown command %q (step/regs/quit)\n", cmd)
		}
	}
}

func printRegs(hart *cpu.Hart) {
	snap := hart.Regs.Snapshot()
	for i, v := range snap {
		fmt.Printf("x%-2d=%#010x ", i, v)
		if i%4 == 3 {
			fmt.Println()
		}
	}
	fmt.Printf("pc=%#010x\n", hart.Regs.PC)
}

// parseSize accepts a plain decimal byte count or a value suffixed with
// K/M/G (case-insensitive), per spec.md §6's "human-readable units".
func parseSize(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	mult := uint64(1)
	last := s[len(s)-1]
	switch last {
	case 'k', 'K':
		mult = 1024
		s = s[:len(s)-1]
	case 'm', 'M':
		mult = 1024 * 1024
		s = s[:len(s)-1]
	case 'g', 'G':
		mult = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}
	n, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	total := n * mult
	if total > 0xffff_ffff {
		return 0, fmt.Errorf("size %d overflows a 32-bit address space", total)
	}
	return uint32(total), nil
}

// parseUint32 accepts decimal or 0x-prefixed hex, per spec.md §6's
// "-b/--base ... hex accepted".
func parseUint32(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
