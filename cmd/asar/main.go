// asar creates, extracts and lists asar archives.
//
//	asar pack <dir> <archive.asar>
//	asar extract <archive.asar> <dest>
//	asar list <archive.asar>
//	asar version
//
// Defaults may be read from a YAML file named by --config or the ASAR_CONFIG
// environment variable. Flags take precedence over the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/meigma/asar"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		printUsage(stderr)
		return errors.New("subcommand required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "pack":
		return runPack(ctx, args[1:], stdout, stderr)
	case "extract":
		return runExtract(ctx, args[1:], stdout, stderr)
	case "list":
		return runList(args[1:], stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "asar %s\n", version())
		return nil
	case "-h", "--help", "help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown subcommand: %q", args[0])
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: asar <subcommand> [flags]

Subcommands:
  pack      Pack a directory into an archive
  extract   Extract an archive into a directory
  list      List the entries of an archive
  version   Print version information

Run 'asar <subcommand> --help' for subcommand flags.
`)
}

// commonFlags are accepted by every subcommand that touches an archive.
type commonFlags struct {
	configPath string
	logLevel   string
	progress   bool
}

func newFlagSet(name, usage string, stderr io.Writer) (*pflag.FlagSet, *commonFlags) {
	var common commonFlags
	flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&common.configPath, "config", "", "path to YAML config file (default: $"+configEnv+")")
	flagSet.StringVar(&common.logLevel, "log-level", "", "log level: debug, info, warn or error")
	flagSet.BoolVar(&common.progress, "progress", false, "print each step as it starts")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: asar %s %s\n\nFlags:\n", name, usage)
		flagSet.PrintDefaults()
	}
	return flagSet, &common
}

// parse parses args and reports whether the command should proceed.
func parse(flagSet *pflag.FlagSet, args []string, positional int) (bool, error) {
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return false, nil
		}
		return false, err
	}
	if got := flagSet.NArg(); got != positional {
		flagSet.Usage()
		return false, fmt.Errorf("%s: expected %d arguments, got %d", flagSet.Name(), positional, got)
	}
	return true, nil
}

// load reads the config file and applies the --log-level override.
func (c *commonFlags) load(stderr io.Writer) (*Config, *slog.Logger, error) {
	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return nil, nil, err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

// printSteps prints the label of every stage as it starts.
func printSteps(w io.Writer) asar.ProgressFunc {
	return func(ev asar.ProgressEvent) {
		if ev.Path == "" {
			fmt.Fprintln(w, ev.Stage)
		}
	}
}

func runPack(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flagSet, common := newFlagSet("pack", "<dir> <archive.asar>", stderr)
	sorted := flagSet.Bool("sorted", false, "walk directories in name order")
	matchBasename := flagSet.Bool("match-basename", false, "match unpack patterns against base names (not applied)")
	unpack := flagSet.StringSlice("unpack", nil, "glob of files to leave unpacked (not applied)")

	ok, err := parse(flagSet, args, 2)
	if !ok {
		return err
	}
	cfg, logger, err := common.load(stderr)
	if err != nil {
		return err
	}

	if flagSet.Changed("sorted") {
		cfg.Pack.Sorted = *sorted
	}
	if flagSet.Changed("match-basename") {
		cfg.Pack.MatchBasename = *matchBasename
	}
	if flagSet.Changed("unpack") {
		cfg.Pack.Unpack = *unpack
	}

	opts := []asar.PackOption{
		asar.PackWithSortedEntries(cfg.Pack.Sorted),
		asar.PackWithMatchBasename(cfg.Pack.MatchBasename),
		asar.PackWithUnpack(cfg.Pack.Unpack...),
		asar.PackWithLogger(logger),
	}
	if common.progress {
		opts = append(opts, asar.PackWithProgress(printSteps(stdout)))
	}
	return asar.Pack(ctx, flagSet.Arg(0), flagSet.Arg(1), opts...)
}

func runExtract(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flagSet, common := newFlagSet("extract", "<archive.asar> <dest>", stderr)

	ok, err := parse(flagSet, args, 2)
	if !ok {
		return err
	}
	_, logger, err := common.load(stderr)
	if err != nil {
		return err
	}

	opts := []asar.ExtractOption{asar.ExtractWithLogger(logger)}
	if common.progress {
		opts = append(opts, asar.ExtractWithProgress(printSteps(stdout)))
	}
	return asar.Extract(ctx, flagSet.Arg(0), flagSet.Arg(1), opts...)
}

func runList(args []string, stdout, stderr io.Writer) error {
	flagSet, common := newFlagSet("list", "<archive.asar>", stderr)

	ok, err := parse(flagSet, args, 1)
	if !ok {
		return err
	}
	if _, _, err := common.load(stderr); err != nil {
		return err
	}

	paths, err := asar.List(flagSet.Arg(0))
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintf(stdout, "/%s\n", p)
	}
	return nil
}

func version() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" {
		return "(devel)"
	}
	return info.Main.Version
}
