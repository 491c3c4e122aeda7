package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"autorxte/internal/region"
)

var regionFlags struct {
	reset bool
	probe bool
}

var regionCmd = &cobra.Command{
	Use:   "region",
	Short: "Show, refresh or reset the persisted archive region preference",
	RunE:  runRegion,
}

func init() {
	f := regionCmd.Flags()
	f.BoolVar(&regionFlags.reset, "reset", false, "Remove the persisted preference, forcing a fresh probe next time")
	f.BoolVar(&regionFlags.probe, "probe", false, "Probe all candidate regions now and persist the fastest")
}

func runRegion(cmd *cobra.Command, _ []string) error {
	prefPath, err := region.DefaultPreferencePath()
	if err != nil {
		return err
	}

	if regionFlags.reset {
		if err := region.RemovePreference(prefPath); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "region preference removed")
		return nil
	}

	if regionFlags.probe {
		// Drop the cached preference so Select re-probes.
		if err := region.RemovePreference(prefPath); err != nil {
			return err
		}
		bucket := appCfg.GetString("download.bucket", "nasa-heasarc")
		sel := &region.Selector{PrefPath: prefPath}
		ep, err := sel.Select(cmd.Context(), region.DefaultCandidates(bucket))
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "fastest region: %s (%s)\n", ep.Name, ep.URL)
		return nil
	}

	pref, err := region.LoadPreference(prefPath)
	if err != nil {
		return err
	}
	if pref == nil {
		fmt.Fprintln(os.Stdout, "no region preference persisted; the next download will probe")
		return nil
	}
	fmt.Fprintf(os.Stdout, "region: %s (%.0f ms, measured %s)\n",
		pref.Region, pref.LatencyMS, pref.SavedAt.Format(time.RFC3339))
	return nil
}
