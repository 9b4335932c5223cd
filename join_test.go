package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestJoinRequestMIC(t *testing.T) {
	Convey("Given a join-request message with an AppKey", t, func() {
		appKey := AES128Key{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10}
		root := NewRootKeys102([8]byte{}, [8]byte{}, appKey)
		m := NewMessage(nil, MACVersion102, nil, &root, nil)

		view := m.Payload().(JoinRequestView)
		view.SetAppEUI([8]byte{1, 2, 3, 4, 5, 6, 7, 8})
		view.SetDevEUI([8]byte{8, 7, 6, 5, 4, 3, 2, 1})
		view.SetDevNonce(0x1234)

		Convey("ComputeMIC followed by SetMIC makes VerifyMIC true", func() {
			mic, err := view.ComputeMIC()
			So(err, ShouldBeNil)
			view.SetMIC(mic)

			ok, err := view.VerifyMIC()
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		Convey("Tampering with DevNonce after signing breaks verification", func() {
			mic, err := view.ComputeMIC()
			So(err, ShouldBeNil)
			view.SetMIC(mic)
			view.SetDevNonce(0x4321)

			ok, err := view.VerifyMIC()
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestJoinAcceptEncryptDecryptRoundTrip(t *testing.T) {
	Convey("Given a join-accept message with fields populated", t, func() {
		key := AES128Key{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10}
		m := NewMessage([]byte{byte(MTypeJoinAccept)}, MACVersion102, nil, nil, nil)
		m.resetPayloadFor(MTypeJoinAccept)
		view := m.Payload().(JoinAcceptView)
		view.SetAppNonce([3]byte{1, 2, 3})
		view.SetNetID(NetID{4, 5, 6})
		view.SetDevAddr([4]byte{7, 8, 9, 10})
		view.SetRX1DROffset(2)
		view.SetRX2DataRate(3)
		view.SetRxDelay(5)
		view.SetMIC([4]byte{0xAA, 0xBB, 0xCC, 0xDD})

		plaintext := m.Raw()[1:]

		Convey("Encrypt then Decrypt recovers the original plaintext", func() {
			So(view.Encrypt(key), ShouldBeNil)
			So(m.Raw()[1:], ShouldNotResemble, plaintext)

			So(view.Decrypt(key), ShouldBeNil)
			So(m.Raw()[1:], ShouldResemble, plaintext)
			So(view.DevAddr(), ShouldResemble, [4]byte{7, 8, 9, 10})
		})
	})
}
