package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/sprof/internal/adapters/radar"
	"github.com/okian/sprof/internal/cli"
)

func main() {
	var (
		file       = flag.String("file", "", "Radar file to analyse")
		dir        = flag.String("dir", "", "Directory holding radar files")
		pattern    = flag.String("pattern", "", "Athlete name filter, a trailing digit selects the trial")
		ext        = flag.String("ext", radar.ExtRDA, "Radar file extension searched in -dir")
		rosterFile = flag.String("roster", "", "Athletes CSV (name;mass;stature)")
		exportDir  = flag.String("export", "", "Directory receiving the daily dataset CSV")
		manual     = flag.String("manual", "", "Manual sprint bounds \"start,end\" in seconds")
		endAcc     = flag.Float64("end-acc", 0, "Manual end of acceleration in seconds")
		noOutliers = flag.Bool("no-outliers", false, "Keep every sample")
		impact     = flag.Bool("impact", false, "Remove outliers by their impact on the fit")
		pressure   = flag.Float64("pressure", 0, "Atmospheric pressure in mmHg (0 for 760)")
		temp       = flag.Float64("temp", 0, "Air temperature in °C (0 for 20)")
		watch      = flag.Bool("watch", false, "Watch -dir for new radar files")
		logLevel   = flag.String("log-level", "info", "debug, info, warn or error")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		cli.ShowHelp(os.Stdout)
		return
	}

	if err := cli.SetupLogging(*logLevel); err != nil {
		os.Stderr.WriteString("failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &cli.Config{
		File:       *file,
		Dir:        *dir,
		Pattern:    *pattern,
		Ext:        *ext,
		Roster:     *rosterFile,
		Export:     *exportDir,
		Manual:     *manual,
		EndAcc:     *endAcc,
		NoOutliers: *noOutliers,
		Impact:     *impact,
		Pressure:   *pressure,
		Temp:       *temp,
		Watch:      *watch,
		LogLevel:   *logLevel,
	}

	if _, err := cli.Run(ctx, cfg, os.Stdout); err != nil {
		os.Stderr.WriteString("sprof: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
