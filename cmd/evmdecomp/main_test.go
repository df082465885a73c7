package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseFlagsVersion(t *testing.T) {
	_, exit, code := parseFlags([]string{"--version"})
	if !exit || code != 0 {
		t.Fatalf("expected --version to request exit(0), got exit=%v code=%d", exit, code)
	}
}

func TestParseFlagsRequiresOneInputFile(t *testing.T) {
	_, exit, code := parseFlags(nil)
	if !exit || code != 2 {
		t.Fatalf("expected missing input file to request exit(2), got exit=%v code=%d", exit, code)
	}
}

func TestParseFlagsBindsLogLevelAndInputPath(t *testing.T) {
	cfg, exit, code := parseFlags([]string{"--log-level", "debug", "contract.hex"})
	if exit {
		t.Fatalf("expected no early exit, got code=%d", code)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.InputPath != "contract.hex" {
		t.Fatalf("expected input path contract.hex, got %q", cfg.InputPath)
	}
}

func TestRunDecompilesSimpleFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contract.hex")
	// PUSH1 0x01 PUSH1 0x02 ADD STOP
	if err := os.WriteFile(path, []byte("600160020100"), 0o600); err != nil {
		t.Fatal(err)
	}

	if code := run([]string{path}); code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
}
