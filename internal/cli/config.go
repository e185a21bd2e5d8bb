package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
)

// Config holds the command line options of sprof.
type Config struct {
	File       string  // single radar file
	Dir        string  // directory searched with Pattern and Ext
	Pattern    string  // athlete name, optionally ending with the trial digit
	Ext        string  // radar extension
	Roster     string  // athletes CSV
	Export     string  // directory receiving the daily dataset; empty disables export
	Manual     string  // "start,end" sprint bounds in seconds
	EndAcc     float64 // manual end of acceleration in seconds; zero keeps the detected one
	NoOutliers bool    // keep every sample
	Impact     bool    // remove outliers by their impact on the fit
	Pressure   float64 // mmHg; zero for the default
	Temp       float64 // °C; zero for the default
	Watch      bool    // watch Dir instead of analysing its files once
	LogLevel   string
}

// Stats counts what a run did.
type Stats struct {
	Files     int
	Analysed  int
	Failed    int
	Exported  int
	StartTime time.Time
	Duration  time.Duration
}

// Analysis returns the analysis policy selected by the flags.
func (c *Config) Analysis() analysis.Config {
	a := analysis.DefaultConfig()
	a.Outliers.Disabled = c.NoOutliers
	a.Outliers.Impact = c.Impact
	return a
}

// Conditions returns the measurement conditions selected by the flags.
func (c *Config) Conditions() model.Conditions {
	return model.Conditions{Pressure: c.Pressure, Temperature: c.Temp}
}

// Bounds parses Manual. It returns nil when no manual bounds are set.
func (c *Config) Bounds() (*analysis.Bounds, error) {
	if strings.TrimSpace(c.Manual) == "" {
		return nil, nil
	}
	parts := strings.Split(c.Manual, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("%q: %w", c.Manual, ErrInvalidManual)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", c.Manual, ErrInvalidManual)
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", c.Manual, ErrInvalidManual)
	}
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%q: %w", c.Manual, ErrInvalidManual)
	}
	return &analysis.Bounds{Start: start, End: end}, nil
}
