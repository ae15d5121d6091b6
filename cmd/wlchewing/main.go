// wlchewing is a Zhuyin input method for Wayland compositors that
// implement input-method-unstable-v2 and virtual-keyboard-unstable-v1.
//
// It grabs the keyboard while a text field is focused, feeds keys to
// libchewing, and shows the composition as preedit text. Control+space
// switches to pass-through typing.
//
//	wlchewing                      run the input method
//	wlchewing --write-config       write the default config file
//	wlchewing --ctl toggle         toggle a running instance
//	wlchewing --stats              print usage statistics
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"wlchewing/internal/config"
	"wlchewing/internal/ime"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type options struct {
	configPath  string
	logLevel    string
	forwarding  bool
	noControl   bool
	showVersion bool
	writeConfig bool
	ctl         string
	stats       bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "wlchewing: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var opts options

	flagSet := pflag.NewFlagSet("wlchewing", pflag.ContinueOnError)
	flagSet.StringVarP(&opts.configPath, "config", "c", "", "configuration file (default: $XDG_CONFIG_HOME/wlchewing/config.toml)")
	flagSet.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	flagSet.BoolVar(&opts.forwarding, "forwarding", false, "start in pass-through mode")
	flagSet.BoolVar(&opts.noControl, "no-control", false, "do not export the D-Bus control interface")
	flagSet.BoolVar(&opts.showVersion, "version", false, "print version and exit")
	flagSet.BoolVar(&opts.writeConfig, "write-config", false, "write the default configuration file and exit")
	flagSet.StringVar(&opts.ctl, "ctl", "", "control a running instance: mode, toggle, composing, forwarding")
	flagSet.BoolVar(&opts.stats, "stats", false, "print usage statistics and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stdout, "Usage: wlchewing [options]\n\n%s", flagSet.FlagUsages())
		return nil
	}

	switch {
	case opts.showVersion:
		fmt.Printf("wlchewing %s\n", version)
		return nil
	case opts.ctl != "":
		return runCtl(opts)
	}

	path := opts.configPath
	if path == "" {
		path = config.FindConfigFile()
	}

	if opts.writeConfig {
		_, created, err := config.LoadOrCreate(path)
		if err != nil {
			return err
		}
		if !created {
			return fmt.Errorf("%s already exists", path)
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	}

	loader := config.NewLoader(path)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	defer loader.Close()
	applyFlags(cfg, opts)

	if opts.stats {
		return printStats(cfg)
	}

	app, err := newApp(cfg, loader)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = app.Run(ctx)
	switch {
	case errors.Is(err, ime.ErrUnavailable):
		app.logger.Error("input method unavailable", "error", err)
	case errors.Is(err, ime.ErrGrabFailed):
		app.logger.Error("keyboard grab failed", "error", err)
	case err != nil:
		app.logger.Error("event loop stopped", "error", err)
	default:
		app.logger.Info("shutting down")
	}
	return err
}

// applyFlags lets command line flags win over the file and environment.
func applyFlags(cfg *config.Config, opts options) {
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.forwarding {
		cfg.Keys.StartMode = ime.Forwarding.String()
	}
	if opts.noControl {
		cfg.Control.Enabled = false
	}
}
