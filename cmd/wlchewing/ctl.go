package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"wlchewing/internal/config"
	"wlchewing/internal/control"
	"wlchewing/internal/store"
)

// runCtl talks to a running instance over D-Bus.
func runCtl(opts options) error {
	busName := control.DefaultBusName
	if cfg, err := config.Load(opts.configPath); err == nil && cfg.Control.BusName != "" {
		busName = cfg.Control.BusName
	}

	remote, err := control.Dial(busName)
	if err != nil {
		return err
	}
	defer remote.Close()

	switch opts.ctl {
	case "mode", "status":
		mode, err := remote.Mode()
		if err != nil {
			return fmt.Errorf("query mode: %w", err)
		}
		fmt.Println(mode)
	case "toggle":
		mode, err := remote.Toggle()
		if err != nil {
			return fmt.Errorf("toggle: %w", err)
		}
		fmt.Println(mode)
	case "composing", "chinese", "forwarding", "english":
		if err := remote.SetMode(opts.ctl); err != nil {
			return fmt.Errorf("set mode: %w", err)
		}
	default:
		return fmt.Errorf("unknown --ctl command %q (want mode, toggle, composing or forwarding)", opts.ctl)
	}
	return nil
}

// printStats summarises the usage database.
func printStats(cfg *config.Config) error {
	if _, err := os.Stat(cfg.Stats.Path); errors.Is(err, os.ErrNotExist) {
		fmt.Printf("no statistics recorded at %s\n", cfg.Stats.Path)
		return nil
	}

	st, err := store.Open(cfg.Stats.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	totals, err := st.Totals(time.Time{})
	if err != nil {
		return err
	}
	recent, err := st.Recent(10)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "activations\t%d\n", totals.Activations)
	fmt.Fprintf(w, "active time\t%s\n", totals.Active.Round(time.Second))
	fmt.Fprintf(w, "keys handled\t%d\n", totals.KeysHandled)
	fmt.Fprintf(w, "keys forwarded\t%d\n", totals.KeysForwarded)
	fmt.Fprintf(w, "commits\t%d (%d characters)\n", totals.Commits, totals.CommitRunes)
	fmt.Fprintf(w, "candidate selections\t%d\n", totals.Selections)
	fmt.Fprintf(w, "mode toggles\t%d\n", totals.Toggles)
	fmt.Fprintf(w, "key repeats\t%d\n", totals.Repeats)

	if len(recent) > 0 {
		fmt.Fprintf(w, "\nstarted\tduration\thandled\tforwarded\tcommits\n")
		for _, s := range recent {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\n",
				s.Started.Local().Format(time.DateTime),
				s.Ended.Sub(s.Started).Round(time.Second),
				s.KeysHandled, s.KeysForwarded, s.Commits)
		}
	}
	return w.Flush()
}
