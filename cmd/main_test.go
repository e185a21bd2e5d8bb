package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/okian/sprof/internal/app"
	"github.com/okian/sprof/internal/config"
	"github.com/okian/sprof/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestMainFunctions(t *testing.T) {
	convey.Convey("Given the main helpers", t, func() {
		convey.Convey("When testing system metrics updater", func() {
			convey.Convey("Then it returns once the context is done", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startSystemMetricsUpdater(ctx)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When testing service metrics updater", func() {
			svc := app.New()

			convey.Convey("Then it returns once the context is done", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()

				convey.So(func() {
					startServiceMetricsUpdater(ctx, svc)
				}, convey.ShouldNotPanic)
			})
		})

		convey.Convey("When updating metrics directly", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)

			convey.Convey("Then a stopped service is tolerated", func() {
				svc := app.New()
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})

			convey.Convey("Then a running service is tolerated", func() {
				ctx := context.Background()
				svc := app.New(app.WithWorkerCount(1), app.WithLogger(logger.Nop()))
				convey.So(svc.Start(ctx), convey.ShouldBeNil)
				defer func() { _ = svc.Stop(ctx) }()

				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})
		})
	})
}

func TestNewMux(t *testing.T) {
	convey.Convey("Given the mux of a running service", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithWorkerCount(1), app.WithLogger(logger.Nop()))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer func() { _ = svc.Stop(ctx) }()

		ts := httptest.NewServer(newMux(ctx, svc, 50))
		defer ts.Close()

		get := func(path string) int {
			resp, err := http.Get(ts.URL + path)
			convey.So(err, convey.ShouldBeNil)
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode
		}

		convey.Convey("Then the API and documentation routes are served", func() {
			convey.So(get("/healthz"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/ranking"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/analyses/missing"), convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("Then the ranking limit is capped", func() {
			convey.So(get("/ranking?limit=51"), convey.ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a configuration on an ephemeral port", t, func() {
		cfg := config.New()
		cfg.Addr = "127.0.0.1:0"
		cfg.WorkerCount = 1

		convey.Convey("When the root context is cancelled", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
			defer cancel()

			convey.Convey("Then run shuts down cleanly", func() {
				convey.So(run(ctx, cfg, logger.Nop()), convey.ShouldBeNil)
			})
		})
	})

	convey.Convey("Given an address that cannot be bound", t, func() {
		cfg := config.New()
		cfg.Addr = "256.0.0.1:99999"
		cfg.WorkerCount = 1

		convey.Convey("Then run reports the listen error", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			convey.So(run(ctx, cfg, logger.Nop()), convey.ShouldNotBeNil)
		})
	})
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given SPROF_ environment variables", t, func() {
		_ = os.Setenv("SPROF_ADDR", ":8080")
		_ = os.Setenv("SPROF_QUEUE_SIZE", "64")
		_ = os.Setenv("SPROF_WORKER_COUNT", "2")
		defer func() {
			_ = os.Unsetenv("SPROF_ADDR")
			_ = os.Unsetenv("SPROF_QUEUE_SIZE")
			_ = os.Unsetenv("SPROF_WORKER_COUNT")
		}()

		convey.Convey("Then the service is assembled from the loaded configuration", func() {
			cfg, err := config.Load()
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 64)

			svc := app.New(append(app.FromConfig(cfg), app.WithLogger(logger.Nop()))...)
			stats := svc.GetStats()
			convey.So(stats["worker_count"], convey.ShouldEqual, 2)
			convey.So(stats["queue_size"], convey.ShouldEqual, 64)
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		_ = os.Setenv("SPROF_ADDR", "")
		defer func() { _ = os.Unsetenv("SPROF_ADDR") }()

		convey.Convey("Then configuration loading fails", func() {
			cfg, err := config.Load()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
