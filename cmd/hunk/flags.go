package main

import (
	"fmt"
	"io"

	"hunk/config"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

type flags struct {
	config    string
	host      string
	port      uint16
	workers   uint
	browse    bool
	logFormat string
	logLevel  string
}

var ErrTooManyArgs = errors.New("at most one folder can be served")

func newFlagSet(f *flags, output io.Writer) *pflag.FlagSet {
	defaults := config.Default()

	flagSet := pflag.NewFlagSet("hunk", pflag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprintf(output, "Usage: hunk [flags] [FOLDER]\n\n")
		fmt.Fprintf(output, "Serves FOLDER (default %q) over HTTP/1.1.\n", defaults.Server.Root)
		fmt.Fprintf(output, "Settings are read from %s when present; flags take precedence.\n\n", config.DefaultFile)
		flagSet.PrintDefaults()
	}

	flagSet.StringVarP(&f.config, "config", "c", "", "config file (default ./"+config.DefaultFile+" if present)")
	flagSet.StringVarP(&f.host, "host", "H", defaults.Server.Host, "address to listen on")
	flagSet.Uint16VarP(&f.port, "port", "p", defaults.Server.Port, "port to listen on")
	flagSet.UintVar(&f.workers, "workers", defaults.Server.Workers, "number of file I/O workers")
	flagSet.BoolVar(&f.browse, "browse", false, "render listings for folders")
	flagSet.StringVar(&f.logFormat, "log-format", "", "log format: text or json (default text on a terminal)")
	flagSet.StringVar(&f.logLevel, "log-level", defaults.Log.Level, "log level: debug, info, warn or error")

	return flagSet
}

// loadConfig parses args and applies the flags that were set on top of the
// discovered config file. It returns the file that was loaded, if any.
func loadConfig(args []string, output io.Writer) (config.Config, string, error) {
	var f flags
	flagSet := newFlagSet(&f, output)
	if err := flagSet.Parse(args); err != nil {
		return config.Config{}, "", err
	}
	if flagSet.NArg() > 1 {
		return config.Config{}, "", errors.Wrapf(ErrTooManyArgs, "got %q", flagSet.Args())
	}

	cfg, source, err := config.Discover(f.config)
	if err != nil {
		return config.Config{}, "", err
	}

	if flagSet.NArg() == 1 {
		cfg.Server.Root = flagSet.Arg(0)
	}
	if flagSet.Changed("host") {
		cfg.Server.Host = f.host
	}
	if flagSet.Changed("port") {
		cfg.Server.Port = f.port
	}
	if flagSet.Changed("workers") {
		cfg.Server.Workers = f.workers
	}
	if flagSet.Changed("browse") {
		cfg.Server.Browse = f.browse
	}
	if flagSet.Changed("log-format") {
		cfg.Log.Format = f.logFormat
	}
	if flagSet.Changed("log-level") {
		cfg.Log.Level = f.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, "", errors.Wrap(err, "invalid configuration")
	}

	return cfg, source, nil
}
