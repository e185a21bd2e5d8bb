package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sprof/internal/adapters/export"
	"github.com/okian/sprof/internal/adapters/radar"
	"github.com/okian/sprof/internal/adapters/roster"
	"github.com/okian/sprof/internal/adapters/watcher"
	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	"github.com/okian/sprof/pkg/logger"
)

const directoryPermission = 0o750

// Run analyses the radar files selected by cfg and prints one report per
// file on out. A file that cannot be read or analysed is logged and skipped.
// With cfg.Watch set, Run watches cfg.Dir until ctx is done.
func Run(ctx context.Context, cfg *Config, out io.Writer) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("sprof")

	bounds, err := cfg.Bounds()
	if err != nil {
		return stats, err
	}
	var athletes *roster.Roster
	if cfg.Roster != "" {
		if athletes, err = roster.Load(cfg.Roster); err != nil {
			return stats, fmt.Errorf("roster: %w", err)
		}
		log.Debug(ctx, "roster loaded", logger.String("file", cfg.Roster), logger.Int("athletes", athletes.Len()))
	}
	if cfg.Export != "" {
		if err := os.MkdirAll(cfg.Export, directoryPermission); err != nil {
			return stats, fmt.Errorf("export: %w", err)
		}
	}
	analyzer := analysis.New(analysis.WithConfig(cfg.Analysis()), analysis.WithLogger(log))

	if cfg.Watch {
		return stats, watch(ctx, cfg, analyzer, athletes, log)
	}

	files, err := selectFiles(cfg)
	if err != nil {
		return stats, err
	}
	stats.Files = len(files)
	log.Info(ctx, "analysing radar files", logger.Int("files", len(files)))

	var dataset *export.Dataset
	var datasetFile string
	if cfg.Export != "" {
		datasetFile = export.FileName(cfg.Export, stats.StartTime)
		dataset = export.NewDataset()
		if err := dataset.Load(datasetFile); err != nil {
			return stats, fmt.Errorf("export: %w", err)
		}
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		res, err := analyseFile(ctx, analyzer, path, athletes, cfg, bounds, log)
		if err != nil {
			stats.Failed++
			log.Error(ctx, "radar file skipped",
				logger.String("file", path),
				logger.String("kind", model.Kind(err)),
				logger.Error(err))
			continue
		}
		stats.Analysed++
		if err := PrintReport(out, res); err != nil {
			return stats, err
		}
		if dataset != nil {
			dataset.Add(export.RowFrom(res))
			stats.Exported++
		}
	}

	if dataset != nil && stats.Exported > 0 {
		if err := dataset.Export(datasetFile); err != nil {
			return stats, fmt.Errorf("export: %w", err)
		}
		log.Info(ctx, "dataset exported", logger.String("file", datasetFile), logger.Int("rows", dataset.Len()))
	}

	stats.Duration = time.Since(stats.StartTime)
	log.Info(ctx, "run finished",
		logger.Int("files", stats.Files),
		logger.Int("analysed", stats.Analysed),
		logger.Int("failed", stats.Failed),
		logger.Duration("duration", stats.Duration))
	if stats.Analysed == 0 {
		return stats, ErrNothingAnalysed
	}
	return stats, nil
}

// selectFiles returns -file alone or the -dir files matching -pattern.
func selectFiles(cfg *Config) ([]string, error) {
	switch {
	case cfg.File != "":
		return []string{cfg.File}, nil
	case cfg.Dir != "":
		files, err := radar.Search(cfg.Dir, cfg.Pattern, cfg.Ext)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("%s in %s: %w", cfg.Pattern, cfg.Dir, ErrNoFiles)
		}
		return files, nil
	default:
		return nil, ErrNoInput
	}
}

func analyseFile(
	ctx context.Context,
	a *analysis.Analyzer,
	path string,
	athletes *roster.Roster,
	cfg *Config,
	bounds *analysis.Bounds,
	log logger.Logger,
) (*analysis.Result, error) {
	rec, err := radar.Read(path)
	if err != nil {
		return nil, err
	}
	var athlete model.Athlete
	if athletes != nil {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if athlete, err = athletes.Find(name); err != nil {
			log.Warn(ctx, "athlete not in roster, using default mass and stature",
				logger.String("file", name),
				logger.Error(err))
		}
	}
	return a.Analyze(ctx, analysis.Request{
		ID:                uuid.NewString(),
		Title:             rec.Title,
		Trace:             rec.Trace,
		Athlete:           athlete,
		Conditions:        cfg.Conditions(),
		Bounds:            bounds,
		EndOfAcceleration: cfg.EndAcc,
	})
}

func watch(ctx context.Context, cfg *Config, a *analysis.Analyzer, athletes *roster.Roster, log logger.Logger) error {
	if cfg.Dir == "" {
		return ErrNoInput
	}
	opts := []watcher.Option{
		watcher.WithExtension(cfg.Ext),
		watcher.WithConditions(cfg.Conditions()),
		watcher.WithLogger(log),
	}
	if cfg.Export != "" {
		opts = append(opts, watcher.WithExportDir(cfg.Export))
	}
	if athletes != nil {
		opts = append(opts, watcher.WithRoster(athletes))
	}
	w, err := watcher.New(cfg.Dir, a, opts...)
	if err != nil {
		return err
	}
	log.Info(ctx, "watching radar directory", logger.String("dir", cfg.Dir))
	return w.Run(ctx)
}
