package export_test

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/sprof/internal/adapters/export"
	"github.com/okian/sprof/internal/domain/analysis"
	"github.com/okian/sprof/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleRow(title string) export.Row {
	return export.Row{
		Title:           title,
		Mass:            72.5,
		V0:              9.35,
		F0:              556.55,
		F0Kg:            7.42,
		Pmax:            1292.39,
		PmaxKg:          17.23,
		Sfv:             -59.5,
		RFPeak:          0.51,
		DRF:             -7.16,
		TopSpeed:        8.86,
		Tau:             1.2,
		TimeAt:          []float64{1.38, 2.11, 3.35, math.NaN()},
		DistanceAt:      []float64{11.6, math.NaN()},
		PointsOut:       2,
		PlateauDuration: 1.51,
		VMaxDiff:        0.15,
	}
}

func TestCleanTitle(t *testing.T) {
	Convey("Given raw sprint titles", t, func() {
		So(export.CleanTitle("  alex2 "), ShouldEqual, "Alex 2")
		So(export.CleanTitle("élodie 3"), ShouldEqual, "Élodie 3")
		So(export.CleanTitle("run12"), ShouldEqual, "Run12")
		So(export.CleanTitle(""), ShouldEqual, "")
	})
}

func TestDataset(t *testing.T) {
	Convey("Given a dataset with two sprints", t, func() {
		ds := export.NewDataset()
		ds.Add(sampleRow("Zoe 1"))
		ds.Add(sampleRow("Alex 1"))

		Convey("When a sprint with the same title is added", func() {
			r := sampleRow("Alex 1")
			r.Tau = 1.3
			ds.Add(r)

			Convey("Then it replaces the previous row", func() {
				So(ds.Len(), ShouldEqual, 2)
				So(ds.Rows()[0].Tau, ShouldEqual, 1.3)
			})
		})

		Convey("When it is written", func() {
			var buf bytes.Buffer
			So(ds.Write(&buf), ShouldBeNil)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

			Convey("Then rows are sorted by title under the header", func() {
				So(lines, ShouldHaveLength, 3)
				So(lines[0], ShouldStartWith, "Sprint title;Mass (kg);V0 (m/s)")
				So(lines[0], ShouldContainSubstring, "Time @ 30 m (s);Distance in 2 s (m)")
				So(lines[1], ShouldStartWith, "Alex 1;72.50;9.35;556.55;")
				So(lines[2], ShouldStartWith, "Zoe 1;")
				So(lines[1], ShouldEndWith, ";2;1.51;0.15")
				So(lines[1], ShouldContainSubstring, ";3.35;;11.60;;")
			})

			Convey("Then reading it back restores the rows", func() {
				back := export.NewDataset()
				So(back.Read(&buf), ShouldBeNil)
				rows := back.Rows()
				So(rows, ShouldHaveLength, 2)
				So(rows[0].Title, ShouldEqual, "Alex 1")
				So(rows[0].PmaxKg, ShouldEqual, 17.23)
				So(rows[0].PointsOut, ShouldEqual, 2)
				So(math.IsNaN(rows[0].TimeAt[3]), ShouldBeTrue)
				So(rows[0].DistanceAt[0], ShouldEqual, 11.6)
			})
		})

		Convey("When it is exported to a file", func() {
			dir := t.TempDir()
			path := export.FileName(dir, time.Date(2019, 12, 3, 10, 0, 0, 0, time.UTC))
			So(filepath.Base(path), ShouldEqual, "191203_pfv_analyse.csv")
			So(ds.Export(path), ShouldBeNil)

			Convey("Then loading it restores the rows", func() {
				back := export.NewDataset()
				So(back.Load(path), ShouldBeNil)
				So(back.Len(), ShouldEqual, 2)

				entries, err := os.ReadDir(dir)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 1)
			})
		})
	})

	Convey("Given files that are not datasets", t, func() {
		ds := export.NewDataset()
		err := ds.Read(strings.NewReader("name;mass\nA;1\n"))
		So(errors.Is(err, export.ErrMalformedDataset), ShouldBeTrue)

		So(ds.Load(filepath.Join(t.TempDir(), "none.csv")), ShouldBeNil)
		So(ds.Len(), ShouldEqual, 0)
	})
}

func TestRowFrom(t *testing.T) {
	Convey("Given an analysed sprint", t, func() {
		tr := model.Trace{Time: make([]float64, 200), Velocity: make([]float64, 200)}
		for i := range tr.Time {
			tr.Time[i] = 5 * float64(i) / 199
			tr.Velocity[i] = 8 * (1 - math.Exp(-tr.Time[i]))
		}
		res, err := analysis.New().Analyze(context.Background(), analysis.Request{
			Title:   "alex2",
			Trace:   tr,
			Athlete: model.Athlete{Mass: 70, Stature: 1.8},
		})
		So(err, ShouldBeNil)

		Convey("Then the row carries the profile and quality values", func() {
			r := export.RowFrom(res)
			So(r.Title, ShouldEqual, "Alex 2")
			So(r.Mass, ShouldEqual, 70)
			So(r.Tau, ShouldAlmostEqual, 1, 0.01)
			So(r.PmaxKg, ShouldEqual, res.Profile.PmaxKg)
			So(r.PointsOut, ShouldEqual, 0)
			So(r.TimeAt, ShouldHaveLength, len(export.Distances))
			So(r.TimeAt[0], ShouldBeLessThan, r.TimeAt[1])
			So(r.DistanceAt[0], ShouldAlmostEqual, 8*(2-1+math.Exp(-2)), 0.1)
		})
	})
}
