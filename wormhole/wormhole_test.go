package wormhole

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/chirpotle-go/wormhole/modem"
)

func TestSetLoRaChannelInvertIQConvention(t *testing.T) {
	Convey("Given a fresh wormhole", t, func() {
		w := NewWormhole(nil, nil)

		Convey("Setting invertiqrx=true forces invertiqtx=false", func() {
			rx := true
			ch := w.SetLoRaChannel(modem.ChannelUpdate{InvertIQRX: &rx})
			So(ch.InvertIQRX, ShouldBeTrue)
			So(ch.InvertIQTX, ShouldBeFalse)
		})

		Convey("Setting invertiqrx=false forces invertiqtx=true", func() {
			rx := false
			ch := w.SetLoRaChannel(modem.ChannelUpdate{InvertIQRX: &rx})
			So(ch.InvertIQRX, ShouldBeFalse)
			So(ch.InvertIQTX, ShouldBeTrue)
		})

		Convey("An explicit invertiqtx value passed in is overridden by the convention", func() {
			rx, tx := false, false
			ch := w.SetLoRaChannel(modem.ChannelUpdate{InvertIQRX: &rx, InvertIQTX: &tx})
			So(ch.InvertIQTX, ShouldBeTrue)
		})
	})
}

func TestListenerPanicIsContained(t *testing.T) {
	Convey("Given a wormhole with a listener that panics", t, func() {
		w := NewWormhole(nil, nil)
		called := false
		w.AddListener(func(payload []byte) { panic("boom") })
		w.AddListener(func(payload []byte) { called = true })

		Convey("notifyListeners still reaches every listener", func() {
			So(func() { w.notifyListeners([]byte{1}) }, ShouldNotPanic)
			So(called, ShouldBeTrue)
		})
	})
}

func TestUpDownIsIdempotent(t *testing.T) {
	Convey("Given a wormhole with no nodes", t, func() {
		w := NewWormhole(nil, nil)

		Convey("Up followed by Up again does not spawn a second set of loops", func() {
			w.Up()
			So(w.IsUp(), ShouldBeTrue)
			w.Up()
			So(w.IsUp(), ShouldBeTrue)
		})

		Convey("Down on a wormhole that was never up is a no-op", func() {
			So(func() { w.Down() }, ShouldNotPanic)
			So(w.IsUp(), ShouldBeFalse)
		})
	})
}
