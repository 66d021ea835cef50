package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/phri-lab/mocapcsv"
	"github.com/rs/zerolog"
)

// Exit code for invalid command line arguments or configuration.  Codes 0 to 3
// are the conversion statuses.
const exitUsage = 64

func main() {
	// Do not handle SIGPIPE, a closed stdout only affects the summary.
	signal.Ignore(syscall.SIGPIPE)

	// Display a stack trace on panic
	defer func() {
		if e := recover(); e != nil {
			fmt.Fprintf(os.Stderr, "%s: %s", e, debug.Stack())
			os.Exit(int(mocapcsv.StatusIOFailure))
		}
	}()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var (
		configPath      string
		origin          string
		dest            string
		joints          string
		flushThreshold  int
		frequency       float64
		continueOnError bool
		colorMode       string
		debugLogs       bool
		quiet           bool
		summary         bool
	)

	def := mocapcsv.DefaultConfig()
	flags := flag.NewFlagSet("mocap2csv", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(flags) }

	flags.StringVar(&configPath, "config", "", "configuration file (yaml, json or toml)")
	flags.StringVar(&origin, "origin", def.OriginFolder, "folder containing the *.json session logs")
	flags.StringVar(&dest, "dest", def.DestFolder, "folder where the csv files are written")
	flags.StringVar(&joints, "joints", strings.Join(def.JointKeys, ","), "comma-separated joint keys, in column order")
	flags.IntVar(&flushThreshold, "flush", def.FlushThreshold, "number of rows buffered between two writes")
	flags.Float64Var(&frequency, "frequency", def.Frequency, "sensor sampling frequency in Hz")
	flags.BoolVar(&continueOnError, "keep-going", def.ContinueOnError, "convert the remaining files after a file fails")
	flags.StringVar(&colorMode, "color", "auto", "colorize logs: auto, always, never")
	flags.BoolVar(&debugLogs, "debug", false, "enable debug logging")
	flags.BoolVar(&quiet, "quiet", false, "only log warnings and errors")
	flags.BoolVar(&summary, "summary", true, "print a summary table on stdout")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return exitUsage
	}
	if flags.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %s\n", strings.Join(flags.Args(), " "))
		return exitUsage
	}

	level := zerolog.InfoLevel
	switch {
	case debugLogs:
		level = zerolog.DebugLevel
	case quiet:
		level = zerolog.WarnLevel
	}
	logger, err := newLogger(stderr, colorMode, level)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	cfg, err := mocapcsv.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("cannot load configuration")
		return exitUsage
	}

	// Flags given explicitly on the command line override the config file.
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "origin":
			cfg.OriginFolder = origin
		case "dest":
			cfg.DestFolder = dest
		case "joints":
			cfg.JointKeys = splitList(joints)
		case "flush":
			cfg.FlushThreshold = flushThreshold
		case "frequency":
			cfg.Frequency = frequency
		case "keep-going":
			cfg.ContinueOnError = continueOnError
		}
	})

	converter, err := mocapcsv.NewConverter(cfg, logger)
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return exitUsage
	}

	report, err := converter.Run()
	status := report.Status()
	if status == mocapcsv.StatusOK && err != nil {
		logger.Error().Err(err).Msg("conversion failed")
		status = mocapcsv.StatusOf(err)
	}
	if summary && len(report.Files) > 0 {
		printSummary(stdout, report)
	}
	return int(status)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// newLogger returns a human friendly logger writing to w.  Colors are only
// used on terminals unless colorMode says otherwise.
func newLogger(w io.Writer, colorMode string, level zerolog.Level) (zerolog.Logger, error) {
	f, isFile := w.(*os.File)
	var noColor bool
	switch colorMode {
	case "always":
	case "never":
		noColor = true
	case "auto":
		noColor = !isFile || !(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	default:
		return zerolog.Nop(), fmt.Errorf("invalid -color value: %q (use auto, always, or never)", colorMode)
	}
	if isFile && !noColor {
		w = colorable.NewColorable(f)
	}
	console := zerolog.ConsoleWriter{Out: w, NoColor: noColor, TimeFormat: "15:04:05"}
	return zerolog.New(console).Level(level).With().Timestamp().Logger(), nil
}

func printUsage(flags *flag.FlagSet) {
	fmt.Fprint(flags.Output(), `mocap2csv - convert motion-capture session logs to CSV

USAGE:
  mocap2csv [options]

DESCRIPTION:
  Every *.json session log found in the origin folder is converted into a
  CSV file with the same base name in the destination folder.  Each row
  holds the tracking id, voice activity, head direction and joints of up to
  two tracked people.  Missing values are written as NaN.

EXIT STATUS:
  0   all files converted
  1   no json file found
  2   critical json format error (e.g. a body without trackingId)
  3   a file could not be read or written
  64  invalid arguments or configuration

OPTIONS:
`)
	flags.PrintDefaults()
}
