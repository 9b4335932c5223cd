package modem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestSetLoRaChannelValidation(t *testing.T) {
	Convey("Given a client with no live worker", t, func() {
		c := &Client{name: "test"}

		Convey("An out-of-range frequency is rejected before any call is made", func() {
			freq := uint32(1000000000)
			_, err := c.SetLoRaChannel(ChannelUpdate{Frequency: &freq})
			So(err, ShouldNotBeNil)
		})

		Convey("An invalid bandwidth is rejected", func() {
			bw := 100
			_, err := c.SetLoRaChannel(ChannelUpdate{Bandwidth: &bw})
			So(err, ShouldNotBeNil)
		})

		Convey("An out-of-range spreading factor is rejected", func() {
			sf := 13
			_, err := c.SetLoRaChannel(ChannelUpdate{SpreadingFactor: &sf})
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTransmitFrameValidation(t *testing.T) {
	Convey("Given a client with no live worker", t, func() {
		c := &Client{name: "test"}

		Convey("A payload over 255 bytes is rejected", func() {
			err := c.TransmitFrame(make([]byte, 256), nil, false)
			So(err, ShouldNotBeNil)
		})

		Convey("sched_time and blocking=true together are rejected", func() {
			ts := uint64(1234)
			err := c.TransmitFrame([]byte("hi"), &ts, true)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestEnableSnifferValidation(t *testing.T) {
	Convey("Given mismatched mask and pattern lengths", t, func() {
		c := &Client{name: "test"}
		err := c.EnableSniffer(true, []byte{0x00, 0xff}, []byte{0x00}, SnifferActionNone, "")
		So(err, ShouldNotBeNil)
	})
}
