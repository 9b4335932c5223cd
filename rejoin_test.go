package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRejoinRequestFields(t *testing.T) {
	Convey("Given a rejoin-request message", t, func() {
		m := NewMessage([]byte{byte(MTypeRejoinRequest)}, MACVersion11, nil, nil, nil)
		m.resetPayloadFor(MTypeRejoinRequest)
		view := m.Payload().(RejoinRequestView)

		view.SetRejoinType(0)
		view.SetNetID(NetID{1, 2, 3})
		view.SetDevEUI([8]byte{1, 2, 3, 4, 5, 6, 7, 8})
		view.SetRJcount(0xFFFF)

		Convey("Fields round-trip through the accessors", func() {
			So(view.RejoinType(), ShouldEqual, uint8(0))
			So(view.NetID(), ShouldResemble, NetID{1, 2, 3})
			So(view.DevEUI(), ShouldResemble, [8]byte{1, 2, 3, 4, 5, 6, 7, 8})
			So(view.RJcount(), ShouldEqual, uint16(0xFFFF))
		})

		Convey("RJcount can be set back to zero after 0xFFFF", func() {
			view.SetRJcount(0)
			So(view.RJcount(), ShouldEqual, uint16(0))
		})
	})
}
