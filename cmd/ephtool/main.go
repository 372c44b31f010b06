// ephtool inspects, extracts and repacks EPHE tile containers.
//
// Usage:
//
//	ephtool inspect [-verify] FILE...          Describe container and tile layout
//	ephtool extract -src SRC [flags]           Decode every tile under SRC
//	ephtool repack -in FILE -o FILE [flags]    Decode and re-encode a container
//	ephtool version                            Print version info
//
// SRC is a local directory, s3://bucket/prefix or minio://host:port/bucket/prefix.
// MinIO credentials are read from MINIO_ACCESS_KEY and MINIO_SECRET_KEY.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hupe1980/ephtile"
)

const version = "0.1.0"

var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "ephtool: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errUsage
	}

	switch cmd, rest := args[0], args[1:]; cmd {
	case "inspect":
		return cmdInspect(ctx, rest, stdout, stderr)
	case "extract":
		return cmdExtract(ctx, rest, stdout, stderr)
	case "repack":
		return cmdRepack(ctx, rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "ephtool %s (magic %q)\n", version, ephtile.Magic)
		return nil
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		fmt.Fprintf(stderr, "ephtool: unknown command: %s\n", cmd)
		printUsage(stderr)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: ephtool <command> [flags]

Commands:
  inspect   describe container and tile layout
  extract   decode every tile under a source and export rows
  repack    decode and re-encode a container
  version   print version info

Run "ephtool <command> -h" for command flags.
`)
}

// newFlagSet returns a FlagSet that reports errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// logFlags registers the shared logging flags and returns a constructor.
func logFlags(fs *flag.FlagSet) func() (*ephtile.Logger, error) {
	level := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	asJSON := fs.Bool("log-json", false, "emit JSON logs")

	return func() (*ephtile.Logger, error) {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(*level)); err != nil {
			return nil, fmt.Errorf("log-level: %w", err)
		}
		if *asJSON {
			return ephtile.NewJSONLogger(lvl), nil
		}
		return ephtile.NewTextLogger(lvl), nil
	}
}
