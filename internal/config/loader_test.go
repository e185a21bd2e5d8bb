package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/sprof/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then the defaults are returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading with environment variables", func() {
			_ = os.Setenv("SPROF_ADDR", ":8080")
			_ = os.Setenv("SPROF_WORKER_COUNT", "16")
			_ = os.Setenv("SPROF_WATCH_DIR", "/data/radar")
			_ = os.Setenv("SPROF_WATCH_DEDUPE", "10s")
			_ = os.Setenv("SPROF_OUTLIER_IMPACT", "true")
			_ = os.Setenv("SPROF_WINDOW_V_MIN", "5.5")
			_ = os.Setenv("SPROF_WINDOW_LOOK_BACK", "1.5")
			_ = os.Setenv("SPROF_WINDOW_START_MAX_STEPS", "12")
			_ = os.Setenv("SPROF_METRICS_NAMESPACE", "club")

			cfg, err := config.Load()

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 16)
				convey.So(cfg.WatchDir, convey.ShouldEqual, "/data/radar")
				convey.So(cfg.WatchDedupe, convey.ShouldEqual, 10*time.Second)
				convey.So(cfg.OutlierImpact, convey.ShouldBeTrue)
				convey.So(cfg.WindowVMin, convey.ShouldEqual, 5.5)
				convey.So(cfg.WindowLookBack, convey.ShouldEqual, 1.5)
				convey.So(cfg.WindowStartMaxSteps, convey.ShouldEqual, 12)
				convey.So(cfg.MetricsNamespace, convey.ShouldEqual, "club")
			})

			convey.Convey("Then the export directory follows the watched one", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.ExportDir, convey.ShouldEqual, "/data/radar")
			})
		})

		convey.Convey("When loading a YAML file overridden by the environment", func() {
			path := writeConfigFile(t, `
# track session
addr: ":9090"
queue_size: 50
worker_count: 2
window_mode: whole
export_dir: /tmp/out
window_plateau_ratio: 0.05
metrics_latency_buckets: [1, 10, 100]
metrics_labels:
  site: track-1
`)
			_ = os.Setenv("SPROF_CONFIG", path)
			_ = os.Setenv("SPROF_WORKER_COUNT", "8")

			cfg, err := config.Load()

			convey.Convey("Then the file and environment are layered", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.QueueSize, convey.ShouldEqual, 50)
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.WindowMode, convey.ShouldEqual, "whole")
				convey.So(cfg.WindowPlateauRatio, convey.ShouldEqual, 0.05)
				convey.So(cfg.MetricsLatencyBuckets, convey.ShouldResemble, []float64{1, 10, 100})
				convey.So(cfg.MetricsLabels, convey.ShouldResemble, map[string]string{"site": "track-1"})
				convey.So(cfg.ExportDir, convey.ShouldEqual, "/tmp/out")
				convey.So(cfg.MaxRankingLimit, convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When the file is not valid YAML", func() {
			_ = os.Setenv("SPROF_CONFIG", writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load()

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the file does not exist", func() {
			_ = os.Setenv("SPROF_CONFIG", "/non/existent/sprof.yaml")

			_, err := config.Load()

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a number cannot be parsed", func() {
			_ = os.Setenv("SPROF_QUEUE_SIZE", "lots")

			_, err := config.Load()

			convey.Convey("Then a load error is returned", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the result is inconsistent", func() {
			_ = os.Setenv("SPROF_WORKER_COUNT", "0")

			_, err := config.Load()

			convey.Convey("Then a validation error is returned", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "worker_count")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if name, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(name, config.EnvPrefix) {
			_ = os.Unsetenv(name)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "sprof.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
