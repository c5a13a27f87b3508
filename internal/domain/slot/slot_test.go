package slot_test

import (
	"errors"
	"testing"
	"time"

	"github.com/korobprog/supermock-matcher/internal/domain/slot"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNormalizer(t *testing.T) {
	fixedNow := time.Date(2026, 3, 10, 12, 30, 0, 0, time.UTC)

	Convey("Given a normalizer with a fixed clock", t, func() {
		n := slot.New(slot.WithNow(func() time.Time { return fixedNow }))

		Convey("When normalizing a future timestamp", func() {
			in := time.Date(2026, 3, 10, 15, 45, 12, 0, time.UTC)
			out, err := n.Normalize(in)

			Convey("Then it should truncate to the hour boundary in UTC", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC))
				So(out.Location(), ShouldEqual, time.UTC)
			})
		})

		Convey("When normalizing a timestamp with a zone offset", func() {
			loc := time.FixedZone("MSK", 3*60*60)
			in := time.Date(2026, 3, 10, 18, 10, 0, 0, loc)
			out, err := n.Normalize(in)

			Convey("Then it should land on the same UTC slot as the equivalent UTC input", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC))
			})
		})

		Convey("When two inputs differ only within the granularity window", func() {
			a, errA := n.Normalize(time.Date(2026, 3, 10, 15, 0, 1, 0, time.UTC))
			b, errB := n.Normalize(time.Date(2026, 3, 10, 15, 59, 59, 0, time.UTC))

			Convey("Then both should map to the same slot", func() {
				So(errA, ShouldBeNil)
				So(errB, ShouldBeNil)
				So(a, ShouldEqual, b)
			})
		})

		Convey("When normalizing the current in-progress slot", func() {
			out, err := n.Normalize(fixedNow)

			Convey("Then it should be accepted", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
			})
		})

		Convey("When normalizing a timestamp well in the past", func() {
			_, err := n.Normalize(fixedNow.Add(-3 * time.Hour))

			Convey("Then it should fail with ErrInvalidTime", func() {
				So(errors.Is(err, slot.ErrInvalidTime), ShouldBeTrue)
			})
		})

		Convey("When normalizing a timestamp beyond the horizon", func() {
			_, err := n.Normalize(fixedNow.Add(31 * 24 * time.Hour))

			Convey("Then it should fail with ErrInvalidTime", func() {
				So(errors.Is(err, slot.ErrInvalidTime), ShouldBeTrue)
			})
		})

		Convey("When normalizing the zero time", func() {
			_, err := n.Normalize(time.Time{})

			Convey("Then it should fail with ErrInvalidTime", func() {
				So(errors.Is(err, slot.ErrInvalidTime), ShouldBeTrue)
			})
		})
	})

	Convey("Given a normalizer with thirty-minute granularity", t, func() {
		n := slot.New(
			slot.WithGranularity(30*time.Minute),
			slot.WithNow(func() time.Time { return fixedNow }),
		)

		Convey("When normalizing a timestamp", func() {
			out, err := n.Normalize(time.Date(2026, 3, 10, 15, 44, 0, 0, time.UTC))

			Convey("Then it should truncate to the half-hour boundary", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC))
				So(n.Granularity(), ShouldEqual, 30*time.Minute)
			})
		})
	})

	Convey("Given RFC3339 string input", t, func() {
		n := slot.New(slot.WithNow(func() time.Time { return fixedNow }))

		Convey("When parsing a valid timestamp with an offset", func() {
			out, err := n.Parse("2026-03-10T18:15:00+03:00")

			Convey("Then it should normalize to the UTC slot", func() {
				So(err, ShouldBeNil)
				So(out, ShouldEqual, time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC))
			})
		})

		Convey("When parsing garbage", func() {
			_, err := n.Parse("tomorrow at noon")

			Convey("Then it should fail with ErrInvalidTime", func() {
				So(errors.Is(err, slot.ErrInvalidTime), ShouldBeTrue)
			})
		})
	})
}
