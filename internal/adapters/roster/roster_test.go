package roster_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/sprof/internal/adapters/roster"
	. "github.com/smartystreets/goconvey/convey"
)

const athletes = `name;mass;stature
Alex Berruyer;72,5;1.81
Léa Tuinukuafe;61;1,68
Rey;80;
Reynaud;;1.90
`

func TestRoster(t *testing.T) {
	Convey("Given a roster", t, func() {
		r, err := roster.Decode(strings.NewReader(athletes))
		So(err, ShouldBeNil)
		So(r.Len(), ShouldEqual, 4)

		Convey("When the exact name is given", func() {
			a, err := r.Find("REY")

			Convey("Then it wins over longer names containing it", func() {
				So(err, ShouldBeNil)
				So(a.Name, ShouldEqual, "Rey")
				So(a.Mass, ShouldEqual, 80)
				So(a.Stature, ShouldEqual, 0)
			})
		})

		Convey("When part of a name is given", func() {
			a, err := r.Find("berru")
			So(err, ShouldBeNil)
			So(a.Name, ShouldEqual, "Alex Berruyer")
			So(a.Mass, ShouldEqual, 72.5)
			So(a.Stature, ShouldEqual, 1.81)

			a, err = r.Find("lea")
			So(err, ShouldBeNil)
			So(a.Stature, ShouldEqual, 1.68)
		})

		Convey("When a radar file path is given", func() {
			a, err := r.Find(filepath.Join("data", "juillet", "Juillet Léa Tuinukuafe 2.rda"))
			So(err, ShouldBeNil)
			So(a.Name, ShouldEqual, "Léa Tuinukuafe")
		})

		Convey("When the pattern matches several athletes", func() {
			_, err := r.Find("re")
			So(errors.Is(err, roster.ErrAmbiguousAthlete), ShouldBeTrue)
		})

		Convey("When nobody matches", func() {
			_, err := r.Find("totoro")
			So(errors.Is(err, roster.ErrAthleteNotFound), ShouldBeTrue)
		})
	})

	Convey("Given malformed rosters", t, func() {
		_, err := roster.Decode(strings.NewReader("athlete;kg\nA;1\n"))
		So(errors.Is(err, roster.ErrMalformedRoster), ShouldBeTrue)

		_, err = roster.Decode(strings.NewReader("name;mass\nA;heavy\n"))
		So(errors.Is(err, roster.ErrMalformedRoster), ShouldBeTrue)

		_, err = roster.Decode(strings.NewReader("name;mass\n;70\n"))
		So(errors.Is(err, roster.ErrMalformedRoster), ShouldBeTrue)
	})

	Convey("Given a roster file", t, func() {
		path := filepath.Join(t.TempDir(), "athletes.csv")
		So(os.WriteFile(path, []byte(athletes), 0o600), ShouldBeNil)

		r, err := roster.Load(path)
		So(err, ShouldBeNil)
		So(r.Len(), ShouldEqual, 4)

		_, err = roster.Load(filepath.Join(t.TempDir(), "missing.csv"))
		So(err, ShouldNotBeNil)
	})
}
