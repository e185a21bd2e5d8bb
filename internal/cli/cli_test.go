package cli_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sprof/internal/adapters/export"
	"github.com/okian/sprof/internal/cli"
	"github.com/okian/sprof/pkg/logger"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

// trace returns a time;velocity CSV of a flying rise to vmax.
func trace(vmax float64) []byte {
	var b strings.Builder
	b.WriteString("time;velocity\n")
	for i := range 200 {
		t := 5 * float64(i) / 199
		fmt.Fprintf(&b, "%.5f;%.5f\n", t, vmax*(1-math.Exp(-t)))
	}
	return []byte(b.String())
}

func TestConfigBounds(t *testing.T) {
	Convey("Given manual bounds", t, func() {
		Convey("Then an empty value means automatic detection", func() {
			b, err := (&cli.Config{}).Bounds()
			So(err, ShouldBeNil)
			So(b, ShouldBeNil)
		})

		Convey("Then start,end in seconds is parsed", func() {
			b, err := (&cli.Config{Manual: "0.5, 4.25"}).Bounds()
			So(err, ShouldBeNil)
			So(b.Start, ShouldEqual, 0.5)
			So(b.End, ShouldEqual, 4.25)
		})

		Convey("Then malformed values are rejected", func() {
			for _, manual := range []string{"1", "a,2", "1,b", "3,2", "-1,2", "1,2,3"} {
				_, err := (&cli.Config{Manual: manual}).Bounds()
				So(errors.Is(err, cli.ErrInvalidManual), ShouldBeTrue)
			}
		})
	})

	Convey("Given outlier and condition flags", t, func() {
		cfg := &cli.Config{NoOutliers: true, Impact: true, Pressure: 750, Temp: 12}

		Convey("Then they reach the analysis policy", func() {
			a := cfg.Analysis()
			So(a.Outliers.Disabled, ShouldBeTrue)
			So(a.Outliers.Impact, ShouldBeTrue)
			c := cfg.Conditions()
			So(c.Pressure, ShouldEqual, 750)
			So(c.Temperature, ShouldEqual, 12)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a directory of radar traces", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		So(os.WriteFile(filepath.Join(dir, "dan1.csv"), trace(8.2), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "dan2.csv"), trace(8.6), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "eve1.csv"), trace(7.4), 0o600), ShouldBeNil)
		So(os.WriteFile(filepath.Join(dir, "dan3.csv"), []byte("time;velocity\n0;x\n1;2\n"), 0o600), ShouldBeNil)
		rosterFile := filepath.Join(t.TempDir(), "roster.csv")
		So(os.WriteFile(rosterFile, []byte("name;mass;stature\nDan;80;1,85\nEve;60;1,68\n"), 0o600), ShouldBeNil)

		Convey("When no input is selected", func() {
			_, err := cli.Run(ctx, &cli.Config{}, io.Discard)

			Convey("Then Run refuses to start", func() {
				So(errors.Is(err, cli.ErrNoInput), ShouldBeTrue)
			})
		})

		Convey("When one file is analysed", func() {
			var out bytes.Buffer
			stats, err := cli.Run(ctx, &cli.Config{
				File:   filepath.Join(dir, "dan2.csv"),
				Roster: rosterFile,
			}, &out)

			Convey("Then its report is printed", func() {
				So(err, ShouldBeNil)
				So(stats.Files, ShouldEqual, 1)
				So(stats.Analysed, ShouldEqual, 1)
				So(out.String(), ShouldContainSubstring, "Dan, 80.0 kg, 1.85 m")
				So(out.String(), ShouldContainSubstring, "Pmax")
				So(out.String(), ShouldContainSubstring, "quality")
			})
		})

		Convey("When a pattern selects one athlete and the dataset is exported", func() {
			var out bytes.Buffer
			exportDir := filepath.Join(t.TempDir(), "out")
			stats, err := cli.Run(ctx, &cli.Config{
				Dir:     dir,
				Pattern: "dan",
				Ext:     "csv",
				Roster:  rosterFile,
				Export:  exportDir,
			}, &out)

			Convey("Then unreadable files are skipped and the others exported", func() {
				So(err, ShouldBeNil)
				So(stats.Files, ShouldEqual, 3)
				So(stats.Analysed, ShouldEqual, 2)
				So(stats.Failed, ShouldEqual, 1)
				So(stats.Exported, ShouldEqual, 2)
				So(out.String(), ShouldNotContainSubstring, "Eve")

				ds := export.NewDataset()
				So(ds.Load(export.FileName(exportDir, stats.StartTime)), ShouldBeNil)
				So(ds.Len(), ShouldEqual, 2)
			})
		})

		Convey("When a manual end of acceleration is given", func() {
			stats, err := cli.Run(ctx, &cli.Config{File: filepath.Join(dir, "dan2.csv"), EndAcc: 3}, io.Discard)

			Convey("Then the sprint is refitted up to it", func() {
				So(err, ShouldBeNil)
				So(stats.Analysed, ShouldEqual, 1)
			})
		})

		Convey("When the end of acceleration lies past the recording", func() {
			stats, err := cli.Run(ctx, &cli.Config{File: filepath.Join(dir, "dan2.csv"), EndAcc: 99}, io.Discard)

			Convey("Then the file is skipped", func() {
				So(errors.Is(err, cli.ErrNothingAnalysed), ShouldBeTrue)
				So(stats.Failed, ShouldEqual, 1)
			})
		})

		Convey("When the trial digit narrows the pattern", func() {
			stats, err := cli.Run(ctx, &cli.Config{Dir: dir, Pattern: "dan1", Ext: ".csv"}, io.Discard)

			Convey("Then only that trial is analysed", func() {
				So(err, ShouldBeNil)
				So(stats.Files, ShouldEqual, 1)
			})
		})

		Convey("When nothing matches", func() {
			_, err := cli.Run(ctx, &cli.Config{Dir: dir, Pattern: "zoe", Ext: ".csv"}, io.Discard)

			Convey("Then ErrNoFiles is returned", func() {
				So(errors.Is(err, cli.ErrNoFiles), ShouldBeTrue)
			})
		})

		Convey("When every selected file fails", func() {
			stats, err := cli.Run(ctx, &cli.Config{File: filepath.Join(dir, "dan3.csv")}, io.Discard)

			Convey("Then ErrNothingAnalysed is returned", func() {
				So(errors.Is(err, cli.ErrNothingAnalysed), ShouldBeTrue)
				So(stats.Failed, ShouldEqual, 1)
			})
		})

		Convey("When the roster is missing", func() {
			_, err := cli.Run(ctx, &cli.Config{File: filepath.Join(dir, "dan1.csv"), Roster: filepath.Join(dir, "none.csv")}, io.Discard)

			Convey("Then Run fails before analysing", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When watching the directory", func() {
			wctx, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
			defer cancel()
			_, err := cli.Run(wctx, &cli.Config{Dir: dir, Ext: ".csv", Watch: true}, io.Discard)

			Convey("Then Run returns once the context ends", func() {
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestShowHelp(t *testing.T) {
	Convey("Given the help text", t, func() {
		var out bytes.Buffer
		cli.ShowHelp(&out)

		Convey("Then every flag is documented", func() {
			for _, flag := range []string{"-file", "-dir", "-pattern", "-ext", "-roster", "-export",
				"-manual", "-end-acc", "-no-outliers", "-impact", "-pressure", "-temp", "-watch", "-log-level"} {
				So(out.String(), ShouldContainSubstring, flag)
			}
		})
	})
}
