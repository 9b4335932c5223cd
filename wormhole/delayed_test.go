package wormhole

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAckFrameTime(t *testing.T) {
	Convey("ackFrameTime returns a positive, SF-increasing duration", t, func() {
		sf7 := ackFrameTime(7, 125, 5)
		sf12 := ackFrameTime(12, 125, 5)
		So(sf7, ShouldBeGreaterThan, 0)
		So(sf12, ShouldBeGreaterThan, sf7)
	})

	Convey("ackFrameTime tolerates an out-of-range coding rate", t, func() {
		So(func() { ackFrameTime(7, 125, 0) }, ShouldNotPanic)
	})
}

func TestStorePendingDownlinkRequiresDevAddr(t *testing.T) {
	Convey("Given a DownlinkDelayedWormhole with no DevAddr configured", t, func() {
		d := NewDownlinkDelayedWormhole(nil, nil, time.Second)

		Convey("storePendingDownlink is a no-op", func() {
			d.storePendingDownlink([]byte{0x00, 1, 2, 3, 4})
			So(d.pendingDL, ShouldBeEmpty)
		})
	})

	Convey("Given a DownlinkDelayedWormhole with a DevAddr configured", t, func() {
		d := NewDownlinkDelayedWormhole(nil, nil, time.Second)
		d.SetDevAddr([4]byte{1, 2, 3, 4})

		Convey("storePendingDownlink records the frame under that address", func() {
			payload := []byte{0x00, 1, 2, 3, 4, 0xff}
			d.storePendingDownlink(payload)
			d.mu.Lock()
			got, ok := d.pendingDL[[4]byte{1, 2, 3, 4}]
			d.mu.Unlock()
			So(ok, ShouldBeTrue)
			So(got.payload, ShouldResemble, payload)
		})
	})
}

func TestMatchesDevAddr(t *testing.T) {
	Convey("Given a DownlinkDelayedWormhole with a DevAddr configured", t, func() {
		d := NewDownlinkDelayedWormhole(nil, nil, time.Second)
		d.SetDevAddr([4]byte{1, 2, 3, 4})

		Convey("A frame addressed to that device matches", func() {
			So(d.matchesDevAddr([]byte{0x00, 1, 2, 3, 4, 0xff}), ShouldBeTrue)
		})

		Convey("A frame addressed elsewhere does not match", func() {
			So(d.matchesDevAddr([]byte{0x00, 9, 9, 9, 9, 0xff}), ShouldBeFalse)
		})

		Convey("A too-short frame does not match", func() {
			So(d.matchesDevAddr([]byte{0x00, 1, 2}), ShouldBeFalse)
		})
	})
}
