// Command evmdecomp decompiles EVM bytecode into a structured,
// human-readable program.
//
// Usage:
//
//	evmdecomp [flags] <bytecode-file>
//
// Flags:
//
//	--log-level  Log level: debug, info, warn, error (default: info)
//	--timeout    Maximum time to spend decompiling, e.g. "30s" (default: none)
//	--version    Print version and exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/meppent/evmdecomp/internal/bytecode"
	"github.com/meppent/evmdecomp/internal/decompiler"
	"github.com/meppent/evmdecomp/pkg/logging"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run is the actual entry point, returning an exit code. Accepts CLI
// arguments (without the program name) so it can be tested in isolation.
func run(args []string) int {
	cfg, exit, code := parseFlags(args)
	if exit {
		return code
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.Printf("evmdecomp %s starting", version)
	log.Printf("  input:      %s", cfg.InputPath)
	log.Printf("  log level:  %s", cfg.LogLevel)
	log.Printf("  timeout:    %s", cfg.Timeout)

	if err := cfg.Validate(); err != nil {
		log.Printf("Invalid configuration: %v", err)
		return 1
	}
	logging.SetDefault(logging.New(cfg.SlogLevel()))

	contents, err := os.ReadFile(cfg.InputPath)
	if err != nil {
		log.Printf("Failed to read %s: %v", cfg.InputPath, err)
		return 1
	}
	raw := bytecode.HexOrRawToBytes(contents)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if cfg.Timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.Timeout)
		defer cancelTimeout()
	}

	result, err := decompiler.Run(ctx, raw)
	if err != nil {
		log.Printf("Decompilation failed: %v", err)
		return 1
	}

	fmt.Println(result.Rendered)
	return 0
}

// parseFlags parses CLI arguments into a Config. Returns the config, whether
// the caller should exit immediately, and the exit code.
func parseFlags(args []string) (decompiler.Config, bool, int) {
	cfg := decompiler.DefaultConfig()
	fs := newFlagSet(&cfg)

	var timeout time.Duration
	fs.DurationVar(&timeout, "timeout", 0, "maximum time to spend decompiling (e.g. 30s); 0 means no limit")
	showVersion := fs.Bool("version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cfg, true, 2
	}
	cfg.Timeout = timeout

	if *showVersion {
		fmt.Printf("evmdecomp %s (commit %s)\n", version, commit)
		return cfg, true, 0
	}

	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: evmdecomp [flags] <bytecode-file>\n")
		return cfg, true, 2
	}
	cfg.InputPath = fs.Arg(0)

	return cfg, false, 0
}

// newFlagSet creates the CLI flag.FlagSet and binds --log-level to the
// given Config; parseFlags registers --timeout and --version on it.
func newFlagSet(cfg *decompiler.Config) *flag.FlagSet {
	fs := newCLIFlagSet("evmdecomp")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	return fs
}
