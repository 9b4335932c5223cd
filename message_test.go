package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMessageByte0Reset(t *testing.T) {
	Convey("Given a new JoinRequest message", t, func() {
		m := NewMessage(nil, MACVersion102, nil, nil, nil)
		So(m.Len(), ShouldEqual, 23)

		Convey("Flipping between Confirmed/UnconfirmedDataUp preserves the payload", func() {
			m.SetByte0(byte(MTypeUnconfirmedDataUp))
			raw := m.Raw()
			m.SetByte0(byte(MTypeConfirmedDataUp))
			So(m.Raw()[1:], ShouldResemble, raw[1:])
		})

		Convey("Crossing from data-up to data-down resets the payload shape", func() {
			m.SetByte0(byte(MTypeUnconfirmedDataUp))
			view := m.Payload().(MacPayloadView)
			view.FHDR().SetDevAddr([4]byte{1, 2, 3, 4})

			m.SetByte0(byte(MTypeUnconfirmedDataDown))
			newView := m.Payload().(MacPayloadView)
			So(newView.FHDR().DevAddr(), ShouldResemble, [4]byte{0, 0, 0, 0})
		})

		Convey("Crossing into JoinAccept resets to the join-accept shape", func() {
			m.SetByte0(byte(MTypeJoinAccept))
			So(m.Len(), ShouldEqual, 17)
		})
	})
}

func TestMHDRFields(t *testing.T) {
	Convey("Given a message with MType ConfirmedDataDown and Major 0", t, func() {
		m := NewMessage([]byte{byte(MTypeConfirmedDataDown)}, MACVersion102, nil, nil, nil)

		Convey("MType and Major decode correctly", func() {
			So(m.MHDR().MType(), ShouldEqual, MTypeConfirmedDataDown)
			So(m.MHDR().Major(), ShouldEqual, LoRaWANR1)
			So(m.MHDR().IsDataDown(), ShouldBeTrue)
		})
	})
}
