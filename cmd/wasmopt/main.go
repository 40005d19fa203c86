// Command wasmopt is a thin driver over this module's optimizer library:
// it decodes a WebAssembly binary, runs a pass list over it, and re-encodes
// the result. All the actual work lives in internal/binary, internal/pass,
// and internal/pass/passes; this file only wires flag parsing to those
// library calls.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/mavity/binaryen-fork/internal/binary"
	"github.com/mavity/binaryen-fork/internal/pass"
	"github.com/mavity/binaryen-fork/internal/pass/passes"
	"github.com/mavity/binaryen-fork/internal/validate"
)

// newFlagSet builds the single (non-subcommand) flag set this driver uses.
func newFlagSet(stdErr io.Writer) *flag.FlagSet {
	flags := flag.NewFlagSet("wasmopt", flag.ContinueOnError)
	flags.SetOutput(stdErr)
	flags.Usage = func() {
		fmt.Fprintln(stdErr, "wasmopt: a WebAssembly-to-WebAssembly optimizer")
		fmt.Fprintln(stdErr)
		fmt.Fprintln(stdErr, "Usage:\n  wasmopt -o <output.wasm> [options] <input.wasm>")
		fmt.Fprintln(stdErr)
		fmt.Fprintln(stdErr, "Options:")
		flags.PrintDefaults()
	}
	return flags
}

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr, os.Args[1:]))
}

// passNames is a repeatable flag.Value collecting every --pass occurrence,
// in the order given on the command line, so a caller can layer individual
// passes on top of (or instead of) a named bundle.
type passNames []string

func (p *passNames) String() string { return strings.Join(*p, ",") }
func (p *passNames) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr io.Writer, args []string) int {
	logger := log.New(stdErr, "", 0)

	flags := newFlagSet(stdErr)
	var (
		output         string
		bundle         string
		extraPasses    passNames
		validateEach   bool
		printBundles   bool
		maxIterations  int
	)
	flags.StringVar(&output, "o", "", "Path to write the optimized binary to (required unless -list-bundles).")
	flags.StringVar(&bundle, "O", "O2", "Named optimization bundle to run: O0, O1, O2, O3, O4, Os, or Oz.")
	flags.Var(&extraPasses, "pass", "Name of an individual pass to run after the bundle. May be repeated.")
	flags.BoolVar(&validateEach, "validate-after-each", false, "Validate the module after every pass, aborting on the first regression.")
	flags.BoolVar(&printBundles, "list-bundles", false, "Print every registered bundle name and exit.")
	flags.IntVar(&maxIterations, "max-iterations", 1, "Number of times to run the full pass list over the module.")

	if err := flags.Parse(args); err != nil {
		return 2
	}

	if printBundles {
		names := pass.Names()
		sort.Strings(names)
		for _, n := range names {
			fmt.Fprintln(stdOut, n)
		}
		return 0
	}

	if flags.NArg() < 1 {
		fmt.Fprintln(stdErr, "missing path to wasm file")
		flags.Usage()
		return 1
	}
	if output == "" {
		fmt.Fprintln(stdErr, "missing -o output path")
		flags.Usage()
		return 1
	}

	inputPath := flags.Arg(0)
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		logger.Printf("reading %s: %v", inputPath, err)
		return 1
	}

	m, err := binary.DecodeModule(raw)
	if err != nil {
		logger.Printf("decoding %s: %v", inputPath, err)
		return 1
	}

	runPasses := pass.Build(bundle)
	if bundle != "O0" && len(runPasses) == 0 && bundle != "" {
		logger.Printf("unknown bundle %q (see -list-bundles)", bundle)
		return 1
	}
	for _, name := range extraPasses {
		factory, ok := passes.ByName(name)
		if !ok {
			logger.Printf("unknown pass %q", name)
			return 1
		}
		runPasses = append(runPasses, factory())
	}

	runner := pass.NewRunner(runPasses, pass.WithValidateAfterEach(validateEach))
	for i := 0; i < maxIterations; i++ {
		if err := runner.Run(m); err != nil {
			logger.Printf("running passes: %v", err)
			return 1
		}
	}

	if err := validate.Module(m); err != nil {
		logger.Printf("optimized module failed validation: %v", err)
		return 1
	}

	out, err := binary.EncodeModule(m)
	if err != nil {
		logger.Printf("encoding result: %v", err)
		return 1
	}
	if err := os.WriteFile(output, out, 0o644); err != nil {
		logger.Printf("writing %s: %v", output, err)
		return 1
	}
	return 0
}
