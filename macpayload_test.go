package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testKey(b byte) AES128Key {
	var k AES128Key
	for i := range k {
		k[i] = b
	}
	return k
}

func TestDataFrameFRMPayloadRoundTrip(t *testing.T) {
	Convey("Given an unconfirmed uplink data frame with a 1.0.2 session", t, func() {
		sess := NewSession102([4]byte{1, 2, 3, 4}, testKey(0x11), testKey(0x22))
		sess.FCntUp = 7

		m := NewMessage([]byte{byte(MTypeUnconfirmedDataUp)}, MACVersion102, nil, nil, &sess)
		m.resetPayloadFor(MTypeUnconfirmedDataUp)
		view := m.Payload().(MacPayloadView)
		view.FHDR().SetDevAddr([4]byte{1, 2, 3, 4})
		view.FHDR().SetFCnt(7)
		view.SetPort(1)

		Convey("SetFRMPayload then FRMPayload recovers the plaintext", func() {
			So(view.SetFRMPayload([]byte("hello")), ShouldBeNil)
			So(view.FRMPayloadEncrypted(), ShouldNotResemble, []byte("hello"))

			pt, err := view.FRMPayload()
			So(err, ShouldBeNil)
			So(pt, ShouldResemble, []byte("hello"))
		})

		Convey("ComputeMIC then SetMIC makes VerifyMIC true", func() {
			So(view.SetFRMPayload([]byte("hello")), ShouldBeNil)

			mic, err := view.ComputeMIC(0, 0, 0)
			So(err, ShouldBeNil)
			view.SetMIC(mic)

			ok, err := view.VerifyMIC(0, 0, 0)
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})
	})
}

func TestMacPayloadPortAbsence(t *testing.T) {
	Convey("Given a data frame with no application payload", t, func() {
		m := NewMessage([]byte{byte(MTypeUnconfirmedDataUp)}, MACVersion102, nil, nil, nil)
		m.resetPayloadFor(MTypeUnconfirmedDataUp)
		view := m.Payload().(MacPayloadView)

		Convey("Port reports absent", func() {
			_, ok := view.Port()
			So(ok, ShouldBeFalse)
		})

		Convey("SetPort inserts a port byte without disturbing the MIC", func() {
			mic := view.MIC()
			view.SetPort(3)
			p, ok := view.Port()
			So(ok, ShouldBeTrue)
			So(p, ShouldEqual, uint8(3))
			So(view.MIC(), ShouldResemble, mic)
		})
	})
}
