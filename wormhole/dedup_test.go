package wormhole

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDedupWindow(t *testing.T) {
	Convey("Given an empty dedup window", t, func() {
		d := NewDedupWindow()

		Convey("The first sighting of a payload is not a duplicate", func() {
			So(d.Seen([]byte{1, 2, 3}), ShouldBeFalse)
		})

		Convey("A repeated payload within the window is a duplicate", func() {
			d.Seen([]byte{1, 2, 3})
			So(d.Seen([]byte{1, 2, 3}), ShouldBeTrue)
		})

		Convey("A different payload is not a duplicate", func() {
			d.Seen([]byte{1, 2, 3})
			So(d.Seen([]byte{4, 5, 6}), ShouldBeFalse)
		})

		Convey("A payload outside the window is no longer a duplicate", func() {
			d.entries = append(d.entries, dedupEntry{
				payload: []byte{1, 2, 3},
				seenAt:  time.Now().Add(-2 * dedupThreshold),
			})
			So(d.Seen([]byte{1, 2, 3}), ShouldBeFalse)
		})
	})
}
