package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGetTXParamSetupEIRPIndex(t *testing.T) {
	Convey("Given EIRP values", t, func() {
		Convey("An exact table entry returns its index", func() {
			So(GetTXParamSetupEIRPIndex(16), ShouldEqual, uint8(5))
		})

		Convey("A value between two entries rounds down without exceeding", func() {
			So(GetTXParamSetupEIRPIndex(17), ShouldEqual, uint8(5))
		})

		Convey("A value below the smallest entry returns index 0", func() {
			So(GetTXParamSetupEIRPIndex(0), ShouldEqual, uint8(0))
		})

		Convey("A value above the largest entry returns the last index", func() {
			So(GetTXParamSetupEIRPIndex(100), ShouldEqual, uint8(15))
		})
	})
}

func TestGetTXParamSetupEIRP(t *testing.T) {
	Convey("Given a coded EIRP index", t, func() {
		Convey("A valid index returns its dBm value", func() {
			eirp, err := GetTXParamSetupEIRP(5)
			So(err, ShouldBeNil)
			So(eirp, ShouldEqual, float32(16))
		})

		Convey("An out-of-range index errors", func() {
			_, err := GetTXParamSetupEIRP(200)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestTXParamSetupReqPayloadRoundTrip(t *testing.T) {
	Convey("Given a TXParamSetupReqPayload", t, func() {
		p := TXParamSetupReqPayload{
			UplinkDwellTime400ms:   true,
			DownlinkDwellTime400ms: false,
			MaxEIRP:                16,
		}

		Convey("MarshalBinary then UnmarshalBinary round-trips the dwell flags and MaxEIRP", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldHaveLength, 1)

			var out TXParamSetupReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}
