package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"dmgcpu/pkg/cartridge"
	"dmgcpu/pkg/cpu"
	"dmgcpu/pkg/debugger"
	"dmgcpu/pkg/machine"
	"dmgcpu/pkg/statsview"
)

type options struct {
	boot         string
	rom          string
	frames       int
	trace        bool
	breakpoints  []string
	dump         string
	saveState    string
	loadState    string
	noInterrupts bool
	stats        bool
	verbose      bool
}

type breakFlag []string

func (b *breakFlag) String() string     { return fmt.Sprint(*b) }
func (b *breakFlag) Set(s string) error { *b = append(*b, s); return nil }

func parseFlags(args []string) (options, error) {
	var opts options
	var bps breakFlag
	fs := flag.NewFlagSet("console", flag.ContinueOnError)
	fs.StringVar(&opts.boot, "boot", "", "256-byte boot ROM mapped at 0x0000")
	fs.StringVar(&opts.rom, "rom", "", "cartridge image")
	fs.IntVar(&opts.frames, "frames", 0, "stop after this many frames (0 runs until halted)")
	fs.BoolVar(&opts.trace, "trace", false, "print every instruction and enable the step debugger")
	fs.Var(&bps, "break", "breakpoint: $ADDR or a Lua expression such as \"a == 0x42\" (repeatable)")
	fs.StringVar(&opts.dump, "dump", cpu.CoreDumpName, "core dump path written on faults and SIGINT")
	fs.StringVar(&opts.saveState, "save-state", "", "hibernate the CPU to this file on exit")
	fs.StringVar(&opts.loadState, "load-state", "", "restore a hibernated CPU before running")
	fs.BoolVar(&opts.noInterrupts, "no-interrupts", false, "do not service interrupts")
	fs.BoolVar(&opts.stats, "statsview", false, "serve runtime statistics while running")
	fs.BoolVar(&opts.verbose, "v", false, "log machine events to stderr")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	opts.breakpoints = bps
	if opts.boot == "" && opts.rom == "" {
		return opts, errors.New("need -boot, -rom or both")
	}
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(run(opts))
}

func run(opts options) int {
	logOut := io.Discard
	if opts.verbose {
		logOut = os.Stderr
	}
	logger := log.New(logOut, "dmg: ", log.LstdFlags)

	if opts.stats {
		statsview.Launch(os.Stderr)
	}

	cfg := machine.DefaultConfig()
	cfg.Interrupts = !opts.noInterrupts
	cfg.Serial = os.Stdout
	cfg.CoreDumpPath = opts.dump
	cfg.Logger = logger

	if opts.trace || len(opts.breakpoints) > 0 {
		raw, err := debugger.RawInput(os.Stdin)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer raw.Close()
		console := debugger.NewConsole(raw, os.Stdout)
		for _, s := range opts.breakpoints {
			bp, err := debugger.ParseBreakpoint(s)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 2
			}
			console.Breakpoints = append(console.Breakpoints, bp)
		}
		if opts.trace {
			console.Mode = debugger.Step
			cfg.Trace = os.Stdout
		}
		cfg.Debugger = console
	}

	m := machine.New(cfg)
	if err := load(m, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.loadState != "" {
		if err := m.CPU().RestoreFromFile(opts.loadState); err != nil {
			fmt.Fprintf(os.Stderr, "restore %s: %v\n", opts.loadState, err)
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := m.Run(ctx, opts.frames)
	code := 0
	switch {
	case err == nil, errors.Is(err, machine.ErrHalted), errors.Is(err, debugger.ErrQuit):
	case errors.Is(err, context.Canceled):
		if derr := m.DumpCore(); derr != nil {
			fmt.Fprintln(os.Stderr, derr)
		}
		code = 130
	default:
		fmt.Fprintf(os.Stderr, "\n%v\n", err)
		if derr := m.DumpCore(); derr != nil {
			fmt.Fprintln(os.Stderr, derr)
		} else {
			fmt.Fprintf(os.Stderr, "core dumped to %s\n", opts.dump)
		}
		code = 1
	}

	if opts.saveState != "" {
		if err := m.CPU().HibernateToFile(opts.saveState); err != nil {
			fmt.Fprintf(os.Stderr, "hibernate %s: %v\n", opts.saveState, err)
			code = 1
		}
	}
	fmt.Fprintf(os.Stderr, "\n%s cycles=%d frames=%d\n", m.CPU(), m.Cycles(), m.Frames())
	return code
}

// load maps the boot ROM and cartridge and prints the cartridge header.
func load(m *machine.Machine, opts options) error {
	var boot []byte
	if opts.boot != "" {
		b, err := cartridge.LoadBootROM(opts.boot)
		if err != nil {
			return err
		}
		boot = b
	}
	if opts.rom == "" {
		return m.LoadBootROM(boot)
	}
	cart, err := cartridge.LoadFile(opts.rom)
	if err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, cart.Header)
	m.LoadCartridge(cart, boot)
	return nil
}
