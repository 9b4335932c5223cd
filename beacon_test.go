package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/chirpotle-go/wormhole/band"
)

func TestBeaconCRCs(t *testing.T) {
	Convey("Given a new EU868 beacon", t, func() {
		eu868, err := band.Get("EU868")
		So(err, ShouldBeNil)
		b := NewBeacon(eu868.Beacon())
		So(len(b.Raw()), ShouldEqual, 17)

		b.SetTime(1234567890)
		b.SetInfoDesc(InfoDescGPSAntenna1)
		b.SetLatDeg(48.137)
		b.SetLngDeg(11.575)

		Convey("Both CRCs verify after setting fields", func() {
			So(b.VerifyNetCommonCRC(), ShouldBeTrue)
			So(b.VerifyGwSpecificCRC(), ShouldBeTrue)
		})

		Convey("Latitude and longitude round-trip within fixed-point precision", func() {
			So(b.LatDeg(), ShouldAlmostEqual, 48.137, 0.001)
			So(b.LngDeg(), ShouldAlmostEqual, 11.575, 0.001)
		})

		Convey("Corrupting a gw-specific byte breaks only that CRC", func() {
			raw := b.Raw()
			corrupted := NewBeaconFromBytes(raw, eu868.Beacon())
			corrupted.buf[corrupted.layout.GwSpecificOffset+1] ^= 0xFF

			So(corrupted.VerifyNetCommonCRC(), ShouldBeTrue)
			So(corrupted.VerifyGwSpecificCRC(), ShouldBeFalse)
		})
	})
}
