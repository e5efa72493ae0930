package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/cert-dataset-tools/internal/dataset"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

const usage = `cert-dataset - synthetic certificate corpus and training pipeline

Usage: cert-dataset <command> [flags]

Commands:
  generate    Write synthetic samples into <root>/<class>/
  prepare     Load and split the corpus and report subset sizes
  train       Run the training pipeline and export metadata
  audit       Check generated samples (border color, OCR read-back)
  serve       Run the MCP tool server on stdin/stdout

Options:
  --version, -v    Print version information
  --help, -h       Print this help message

Common flags:
  --config PATH       TOML, YAML or JSON configuration file
  --root DIR          Corpus root directory
  --log-level LEVEL   debug, info, warn or error

Environment variables:
  CERTDS_ROOT, CERTDS_SEED, CERTDS_LOG_LEVEL, CERTDS_FONT_PATH,
  CERTDS_ARCHITECTURE, CERTDS_OUTPUT_DIR override the configuration file.

Run 'cert-dataset <command> --help' for the flags of one command.`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	switch args[0] {
	case "--version", "-v", "version":
		fmt.Printf("cert-dataset %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return 0
	case "--help", "-h", "help":
		fmt.Println(usage)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", args[0], usage)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cmd(ctx, args[1:])
	return exitCode(err)
}

// exitCode prints err for the user and maps it to a process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}

	var empty *dataset.EmptyDatasetError
	if errors.As(err, &empty) {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n%s", err, empty.Remediation())
		return 1
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return 1
}

// usageError marks invalid command-line input.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }
