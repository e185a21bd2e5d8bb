package radar_test

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/sprof/internal/adapters/radar"
	. "github.com/smartystreets/goconvey/convey"
)

func radContent(title string, rate string, rows [][3]string) string {
	lines := []string{
		"STALKER Version 5.020 using ATS II",
		"",
		"Name: " + title,
		"12/03/2019 10:42:17",
		"",
		"",
		"Sample Rate: " + rate,
		"", "", "", "",
		"Speed Units: m/s",
		"", "", "", "",
		"  Sample   Time   Speed   Accel     Dist",
		"",
	}
	for i, r := range rows {
		lines = append(lines, fmt.Sprintf("%8d %6s %7s %7s %8s", i+1, r[0], r[1], r[2], "0"))
	}
	lines = append(lines, "END OF FILE", "")
	return strings.Join(lines, "\r\n")
}

func rdaContent(speeds ...string) string {
	lines := append([]string{"STALKER Version 5.020 using ATS II radar gun", "", "", ""}, speeds...)
	return strings.Join(lines, "\n") + "\n"
}

func write(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRead(t *testing.T) {
	Convey("Given a directory of radar files", t, func() {
		dir := t.TempDir()

		Convey("When reading a .rda file without a .rad sibling", func() {
			path := write(t, dir, "Juillet Alex 1.rda", rdaContent("0", "0,5", "1.25", "2"))
			rec, err := radar.Read(path)

			Convey("Then samples are timed at the default rate", func() {
				So(err, ShouldBeNil)
				So(rec.Title, ShouldEqual, "Juillet Alex 1")
				So(rec.SampleRate, ShouldEqual, radar.DefaultSampleRate)
				So(rec.Trace.Velocity, ShouldResemble, []float64{0, 0.5, 1.25, 2})
				So(rec.Trace.Time, ShouldResemble, []float64{0, 0.02, 0.04, 0.06})
				So(rec.Trace.Validate(), ShouldBeNil)
			})
		})

		Convey("When reading a .rda file with a .rad sibling", func() {
			write(t, dir, "run.rad", radContent("Alex Martin", "50", [][3]string{{"0,00", "0,0", "0"}}))
			path := write(t, dir, "run.rda", rdaContent("0", "1", "2"))
			rec, err := radar.Read(path)

			Convey("Then the header comes from the .rad file", func() {
				So(err, ShouldBeNil)
				So(rec.Title, ShouldEqual, "Alex Martin")
				So(rec.Date, ShouldEqual, "12/03/2019 - 10:42:17")
				So(rec.SampleRate, ShouldEqual, 50)
				So(rec.Trace.Time, ShouldResemble, []float64{0, 0.02, 0.04})
			})
		})

		Convey("When reading a .rad file", func() {
			path := write(t, dir, "run.rad", radContent("Alex", "46,875", [][3]string{
				{"0,00", "0,12", "0"}, {"0,02", "0,40", "13"}, {"0,04", "0,81", "20"},
			}))
			rec, err := radar.Read(path)

			Convey("Then the time and speed columns are decoded", func() {
				So(err, ShouldBeNil)
				So(rec.Format, ShouldEqual, radar.ExtRAD)
				So(rec.SampleRate, ShouldEqual, 46.875)
				So(rec.SpeedUnit, ShouldEqual, "m/s")
				So(rec.Trace.Time, ShouldResemble, []float64{0, 0.02, 0.04})
				So(rec.Trace.Velocity, ShouldResemble, []float64{0.12, 0.40, 0.81})
			})
		})

		Convey("When reading a CSV file with a header", func() {
			path := write(t, dir, "trial.csv", "time;velocity\n0;0\n0,1;0,8\n0.2;1.5\n")
			rec, err := radar.Read(path)

			Convey("Then the rows are decoded", func() {
				So(err, ShouldBeNil)
				So(rec.Title, ShouldEqual, "trial")
				So(rec.Trace.Time, ShouldResemble, []float64{0, 0.1, 0.2})
				So(rec.Trace.Velocity, ShouldResemble, []float64{0, 0.8, 1.5})
			})
		})

		Convey("When the extension is unknown", func() {
			_, err := radar.Read(write(t, dir, "run.txt", "x"))
			So(errors.Is(err, radar.ErrUnsupportedFormat), ShouldBeTrue)
		})

		Convey("When the files are malformed", func() {
			_, err := radar.Read(write(t, dir, "a.rda", "not a radar file\n\n\n\n1\n"))
			So(errors.Is(err, radar.ErrMalformedFile), ShouldBeTrue)

			_, err = radar.Read(write(t, dir, "b.rda", rdaContent("1", "fast")))
			So(errors.Is(err, radar.ErrMalformedFile), ShouldBeTrue)

			bad := strings.Replace(radContent("A", "50", [][3]string{{"0", "1", "0"}}), "END OF FILE", "", 1)
			_, err = radar.Read(write(t, dir, "c.rad", bad))
			So(errors.Is(err, radar.ErrMalformedFile), ShouldBeTrue)

			_, err = radar.Read(write(t, dir, "d.csv", "time;velocity\n0;0\n0.1;x\n"))
			So(errors.Is(err, radar.ErrMalformedFile), ShouldBeTrue)
		})
	})
}

func TestSearch(t *testing.T) {
	Convey("Given recordings of several athletes", t, func() {
		dir := t.TempDir()
		for _, name := range []string{
			"Juillet Alex 1.rda", "Juillet Alex 2.rda", "Juillet Alex 2.rad",
			"Juillet Bérénice 1.rda", ".Juillet Alex 3.rda",
		} {
			write(t, dir, name, "")
		}

		Convey("Then the pattern matches accent-insensitively", func() {
			files, err := radar.Search(dir, "berenice", "")
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{filepath.Join(dir, "Juillet Bérénice 1.rda")})
		})

		Convey("Then a trailing digit selects the trial", func() {
			files, err := radar.Search(dir, "alex2", "rda")
			So(err, ShouldBeNil)
			So(files, ShouldResemble, []string{filepath.Join(dir, "Juillet Alex 2.rda")})
		})

		Convey("Then the extension filters the files", func() {
			files, err := radar.Search(dir, "ALEX", ".rad")
			So(err, ShouldBeNil)
			So(files, ShouldHaveLength, 1)

			files, err = radar.Search(dir, "", "")
			So(err, ShouldBeNil)
			So(files, ShouldHaveLength, 3)
		})

		Convey("Then unknown extensions fall back to .rda", func() {
			So(radar.NormalizeExt("toto"), ShouldEqual, radar.ExtRDA)
			So(radar.NormalizeExt("RAD"), ShouldEqual, radar.ExtRAD)
		})
	})
}
