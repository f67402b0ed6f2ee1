//go:build !js

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"dmgcpu/pkg/asm"
	"dmgcpu/pkg/machine"
	"dmgcpu/pkg/memory"
)

func main() {
	inPath := flag.String("in", "", "input SM83 assembly file path")
	outPath := flag.String("out", "", "output binary file path (default: input with .bin extension)")
	runProgram := flag.Bool("run", false, "run the generated binary file on the virtual CPU")
	runBinPath := flag.String("run-bin", "", "run an existing binary file on the virtual CPU")
	maxFrames := flag.Int("frames", 600, "stop after this many frames if the program never halts")
	verbose := flag.Bool("v", false, "log machine events to stderr")
	flag.Parse()

	if *runProgram && *runBinPath != "" {
		fmt.Fprintln(os.Stderr, "use either -run or -run-bin, not both")
		os.Exit(2)
	}

	assembledOutput := ""
	if *inPath != "" {
		source, err := os.ReadFile(*inPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read input file %q: %v\n", *inPath, err)
			os.Exit(1)
		}

		code, _, err := asm.Assemble(string(source))
		if err != nil {
			fmt.Fprintf(os.Stderr, "assembly failed: %v\n", err)
			os.Exit(1)
		}

		output := *outPath
		if output == "" {
			output = defaultOutputPath(*inPath)
		}

		if err := writeBinary(output, code); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write binary file %q: %v\n", output, err)
			os.Exit(1)
		}

		fmt.Printf("assembled %d bytes -> %s\n", len(code), output)
		assembledOutput = output
	}

	if *inPath == "" && *runBinPath == "" && !*runProgram {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in to assemble, -run to run assembled output, or -run-bin <file> to run an existing binary")
		flag.Usage()
		os.Exit(2)
	}

	runTarget := ""
	switch {
	case *runBinPath != "":
		runTarget = *runBinPath
	case *runProgram:
		if assembledOutput == "" {
			fmt.Fprintln(os.Stderr, "-run requires -in, or use -run-bin <file>")
			os.Exit(2)
		}
		runTarget = assembledOutput
	default:
		return
	}

	logOut := io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	if err := runBinary(runTarget, *maxFrames, os.Stdout, log.New(logOut, "", log.LstdFlags)); err != nil {
		fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", runTarget, err)
		os.Exit(1)
	}
}

func defaultOutputPath(inPath string) string {
	ext := filepath.Ext(inPath)
	if ext == "" {
		return inPath + ".bin"
	}
	return strings.TrimSuffix(inPath, ext) + ".bin"
}

func writeBinary(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func readBinary(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// runBinary loads an image at 0x0000 and runs it until it halts for good or
// maxFrames frames have passed. Serial output goes to out.
func runBinary(path string, maxFrames int, out io.Writer, logger *log.Logger) error {
	loadedBytes, err := readBinary(path)
	if err != nil {
		return err
	}
	if len(loadedBytes) > memory.Size {
		return fmt.Errorf("program too large for memory: %d bytes > %d bytes", len(loadedBytes), memory.Size)
	}

	cfg := machine.DefaultConfig()
	cfg.Serial = out
	cfg.Logger = logger
	m := machine.New(cfg)
	if err := m.LoadProgram(0x0000, loadedBytes); err != nil {
		return err
	}

	err = m.Run(context.Background(), maxFrames)
	if err != nil && !errors.Is(err, machine.ErrHalted) {
		return err
	}

	c := m.CPU()
	fmt.Fprintf(out,
		"\nrun complete (%s): PC=0x%04X SP=0x%04X %s cycles=%d\n",
		path, c.PC, c.SP, c.Regs, m.Cycles(),
	)
	return nil
}
