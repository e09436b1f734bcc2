// Tuga CLI - compiles a Tuga program, saves its bytecode and runs it.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/tuga/compiler"
	"github.com/chazu/tuga/manifest"
	"github.com/chazu/tuga/pkg/bytecode"
	"github.com/chazu/tuga/server"
	"github.com/chazu/tuga/vm"
)

const (
	exitOK      = 0
	exitProgram = 1 // compile error or runtime fault
	exitUsage   = 2 // bad flags, unreadable files
)

var log = commonlog.GetLogger("tuga")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is main without the process: it returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tuga", flag.ContinueOnError)
	fs.SetOutput(stderr)

	output := fs.String("o", "", "Bytecode output file (default from tuga.toml, else \"bytecodes\")")
	showErrors := fs.Bool("show-errors", false, "Print each lexical, syntax and type error")
	trace := fs.Bool("trace", false, "Log every executed instruction (needs -v 2 or more)")
	verbosity := fs.Int("v", -1, "Log verbosity (default from tuga.toml, else 0)")
	configDir := fs.String("config", "", "Directory holding tuga.toml (default: search upward from cwd)")
	listing := fs.String("listing", "", "Also write a CBOR listing of the program to this file")
	runOnly := fs.Bool("run-only", false, "Skip compilation and run an existing bytecode file")
	profile := fs.Bool("profile", false, "Print per-opcode execution counts to stderr after running")
	lspMode := fs.Bool("lsp", false, "Start the language server on stdio")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: tuga [options] [file]\n\n")
		fmt.Fprintf(stderr, "Compiles a Tuga program (from file, or stdin), prints its bytecode,\n")
		fmt.Fprintf(stderr, "saves it, then loads the saved bytecode and runs it.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  tuga prog.tuga                 # Compile and run\n")
		fmt.Fprintf(stderr, "  tuga -show-errors prog.tuga    # Show error detail\n")
		fmt.Fprintf(stderr, "  tuga -run-only -o out.bc       # Run previously saved bytecode\n")
		fmt.Fprintf(stderr, "  tuga -lsp                      # Language server for editors\n")
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return exitUsage
	}

	cfg, err := loadConfig(*configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	// Paths given on the command line are relative to the working directory,
	// not to tuga.toml.
	if *output != "" {
		cfg.Output.Bytecode = absPath(*output)
	}
	if *listing != "" {
		cfg.Output.Listing = absPath(*listing)
	}
	if *verbosity >= 0 {
		cfg.Log.Verbosity = *verbosity
	}
	if *showErrors {
		cfg.Diagnostics.ShowLexerErrors = true
		cfg.Diagnostics.ShowParserErrors = true
		cfg.Diagnostics.ShowTypeErrors = true
	}
	cfg.VM.Trace = cfg.VM.Trace || *trace
	cfg.VM.Profile = cfg.VM.Profile || *profile

	commonlog.Configure(cfg.Log.Verbosity, cfg.LogFile())

	if *lspMode {
		if err := server.NewLSP().Run(); err != nil {
			fmt.Fprintf(stderr, "LSP error: %v\n", err)
			return exitUsage
		}
		return exitOK
	}

	bytecodePath := cfg.BytecodePath()
	if *runOnly {
		return execute(bytecodePath, cfg.VM, stdout, stderr)
	}

	source, err := readSource(fs.Arg(0), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	res, err := compiler.Compile(source, compiler.Options{
		ShowLexerErrors:  cfg.Diagnostics.ShowLexerErrors,
		ShowParserErrors: cfg.Diagnostics.ShowParserErrors,
		ShowTypeErrors:   cfg.Diagnostics.ShowTypeErrors,
		Out:              stdout,
	})
	if err != nil {
		var stageErr *compiler.StageError
		if errors.As(err, &stageErr) {
			fmt.Fprintln(stdout, stageErr.Error())
			return exitProgram
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitProgram
	}

	fmt.Fprint(stdout, res.Program.Disassemble())

	if path := cfg.ListingPath(); path != "" {
		if err := writeListing(path, res.Program, cfg.Project.Name); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
	}

	if err := res.Program.WriteFile(bytecodePath); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	log.Debugf("wrote %s", bytecodePath)

	return execute(bytecodePath, cfg.VM, stdout, stderr)
}

// loadConfig loads tuga.toml from dir, or searches upward from the working
// directory when dir is empty. A missing file yields the defaults.
func loadConfig(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, err := manifest.FindAndLoad(cwd)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return manifest.Default(), nil
	}
	return m, nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func readSource(path string, stdin io.Reader) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func writeListing(path string, prog *bytecode.Program, project string) error {
	meta := map[string]string{}
	if project != "" {
		meta["project"] = project
	}
	data, err := bytecode.MarshalListing(prog, meta)
	if err != nil {
		return fmt.Errorf("encoding listing: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

// execute loads the bytecode file and runs it, printing program output to
// stdout and a runtime fault as a single "runtime error" line.
func execute(path string, cfg manifest.VMConfig, stdout, stderr io.Writer) int {
	machine, err := vm.LoadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	machine.SetOutput(stdout)
	machine.Trace = cfg.Trace
	if cfg.Profile {
		machine.Profiler = vm.NewProfiler()
		defer machine.Profiler.WriteTo(stderr)
	}

	fmt.Fprintln(stdout, "*** VM output ***")
	if err := machine.Run(); err != nil {
		var rtErr *vm.RuntimeError
		if errors.As(err, &rtErr) {
			fmt.Fprintln(stdout, rtErr.Error())
			return exitProgram
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitProgram
	}
	return exitOK
}
