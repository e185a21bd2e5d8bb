// Package cli implements the sprof command: it analyses radar files from
// the command line, prints their profile and optionally watches a directory.
package cli

import (
	"io"
	"os"

	"github.com/okian/sprof/pkg/logger"
)

// SetupLogging initialises the global logger on stderr so that reports on
// stdout stay clean.
func SetupLogging(level string) error {
	if err := logger.Init(logger.WithWriter(os.Stderr), logger.WithoutSource()); err != nil {
		return err
	}
	return logger.SetLevelString(level)
}

// ShowHelp prints usage information for sprof.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `sprof: sprint force-velocity profiles from radar traces
=======================================================

Usage:
  sprof -file <radar file> [options]
  sprof -dir <directory> [-pattern <name>] [options]
  sprof -dir <directory> -watch [options]

Options:
  -file string
        Radar file to analyse (.rda, .rad or .csv)
  -dir string
        Directory holding radar files
  -pattern string
        Keep files whose name contains this athlete name; a trailing digit selects the trial
  -ext string
        Radar file extension searched in -dir (default ".rda")
  -roster string
        Athletes CSV (name;mass;stature) used for masses and statures
  -export string
        Directory receiving the daily dataset CSV
  -manual string
        Manual sprint bounds "start,end" in seconds
  -end-acc float
        Manual end of acceleration in seconds; the model is refitted up to it
  -no-outliers
        Keep every sample
  -impact
        Remove outliers by their impact on the fit
  -pressure float
        Atmospheric pressure in mmHg (default 760)
  -temp float
        Air temperature in °C (default 20)
  -watch
        Watch -dir and analyse new files as they appear
  -log-level string
        debug, info, warn or error (default "info")
  -help
        Show this help message

Examples:
  # One file, with the athlete looked up in a roster
  sprof -file "Juillet Alex 2.rda" -roster athletes.csv

  # Every trial of one athlete, exported to the daily dataset
  sprof -dir traces -pattern alex -roster athletes.csv -export out

  # Watch the radar output directory
  sprof -dir /data/radar -watch -roster athletes.csv
`)
}
