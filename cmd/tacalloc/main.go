package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/raymyers/tacalloc/pkg/mips"
	"github.com/raymyers/tacalloc/pkg/regalloc"
	"github.com/raymyers/tacalloc/pkg/tac"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"
)

var version = "0.1.0"

// Debug flags for dumping intermediate results
var (
	dTAC    bool
	dLive   bool
	dInterf bool
	dRegs   bool
)

// Machine and logging options
var (
	machineFile  string
	numRegisters int
	verbose      bool
	logFormat    string
	logFile      string
)

// ErrBadFlag is returned for flag values that cannot be used.
var ErrBadFlag = errors.New("invalid flag value")

func main() {
	atexit.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash debug flags such as -dlive
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the flags that also accept single-dash style
var debugFlagNames = []string{"dtac", "dlive", "dinterf", "dregs"}

// normalizeFlags converts single-dash debug flags like -dlive to --dlive
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
		if result[i] == "" {
			result[i] = arg
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tacalloc [file.yaml | -]",
		Short: "tacalloc assigns MIPS registers to a three-address-code program",
		Long: `tacalloc reads a TAC program described in YAML, runs liveness
analysis per function, builds interference graphs and colors them with
a Chaitin allocator. By default it prints the program annotated with
the register map at every instruction.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			if err := doAllocate(cmd, args[0], out, errOut); err != nil {
				fmt.Fprintf(errOut, "tacalloc: error: %v\n", err)
				return err
			}
			return nil
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	addDebugFlags(rootCmd.Flags())
	addMachineFlags(rootCmd.Flags())
	return rootCmd
}

func addDebugFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&dTAC, "dtac", "", false, "Dump the TAC program and stop")
	fs.BoolVarP(&dLive, "dlive", "", false, "Dump liveness sets")
	fs.BoolVarP(&dInterf, "dinterf", "", false, "Dump interference graphs")
	fs.BoolVarP(&dRegs, "dregs", "", false, "Dump register assignments")
}

func addMachineFlags(fs *pflag.FlagSet) {
	fs.StringVar(&machineFile, "machine", "", "Machine description file (default $"+mips.EnvMachine+" or mips32)")
	fs.IntVarP(&numRegisters, "registers", "k", mips.NumGeneralPurposeRegs, "Number of allocatable registers (default $"+mips.EnvRegisters+")")
	fs.BoolVarP(&verbose, "verbose", "v", false, "Log per-function allocation details")
	fs.StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	fs.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}

// loadMachine resolves the target machine. Flags win over the environment.
func loadMachine(cmd *cobra.Command) (*mips.Machine, error) {
	var m *mips.Machine
	var err error
	if machineFile != "" {
		m, err = mips.LoadMachine(machineFile)
	} else {
		m, err = mips.BaseFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("registers") {
		return m.WithRegisters(numRegisters)
	}
	return m.RegistersFromEnv()
}

// newLogger builds the logger from the logging flags. An opened log file is
// closed at exit.
func newLogger(errOut io.Writer) (*slog.Logger, error) {
	w := errOut
	if logFile != "" {
		f, err := os.Create(logFile)
		if err != nil {
			return nil, err
		}
		atexit.Register(func() { f.Close() })
		w = f
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	switch logFormat {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("%w: --log-format %q (want text or json)", ErrBadFlag, logFormat)
}

// readProgram decodes a YAML program from a file, or stdin for "-".
func readProgram(cmd *cobra.Command, filename string) (*tac.Program, error) {
	if filename == "-" {
		return tac.Decode(cmd.InOrStdin(), nil)
	}
	return tac.DecodeFile(filename, nil)
}

// doAllocate loads, allocates and dumps according to the debug flags
func doAllocate(cmd *cobra.Command, filename string, out, errOut io.Writer) error {
	logger, err := newLogger(errOut)
	if err != nil {
		return err
	}
	prog, err := readProgram(cmd, filename)
	if err != nil {
		return err
	}

	if dTAC {
		tac.NewPrinter(out).PrintProgram(prog)
		return nil
	}

	m, err := loadMachine(cmd)
	if err != nil {
		return err
	}
	logger.Debug("loaded program",
		slog.String("file", filename),
		slog.Int("instructions", prog.Len()),
		slog.String("machine", m.Name),
		slog.Int("registers", m.K()),
	)

	res, err := regalloc.Run(prog, m, regalloc.WithLogger(logger))
	if err != nil {
		return err
	}

	printer := regalloc.NewPrinter(out)
	if dLive {
		printer.PrintLiveness(prog.Code, res)
	}
	if dInterf {
		printer.PrintInterference(res)
	}
	if dRegs {
		printer.PrintAssignments(res)
	}
	if !dLive && !dInterf && !dRegs {
		printer.PrintRegMaps(prog.Code, res)
	}
	return nil
}
