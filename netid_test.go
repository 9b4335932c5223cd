package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNetIDType(t *testing.T) {
	Convey("Given NetIDs with different type prefixes", t, func() {
		Convey("Type 0 decodes from the top three bits", func() {
			n := NetID{0x00, 0x00, 0x00}
			So(n.Type(), ShouldEqual, 0)
		})

		Convey("Type 2 decodes from the top three bits", func() {
			n := NetID{0x40, 0x00, 0x00}
			So(n.Type(), ShouldEqual, 2)
		})
	})
}

func TestNetIDTextMarshaling(t *testing.T) {
	Convey("Given a NetID", t, func() {
		n := NetID{0xAB, 0xCD, 0xEF}

		Convey("MarshalText then UnmarshalText round-trips", func() {
			text, err := n.MarshalText()
			So(err, ShouldBeNil)

			var out NetID
			So(out.UnmarshalText(text), ShouldBeNil)
			So(out, ShouldResemble, n)
		})
	})
}

func TestNetIDBinaryMarshaling(t *testing.T) {
	Convey("Given a NetID", t, func() {
		n := NetID{0x01, 0x02, 0x03}

		Convey("MarshalBinary reverses the byte order", func() {
			b, err := n.MarshalBinary()
			So(err, ShouldBeNil)
			So(b, ShouldResemble, []byte{0x03, 0x02, 0x01})
		})

		Convey("UnmarshalBinary reverses MarshalBinary", func() {
			b, err := n.MarshalBinary()
			So(err, ShouldBeNil)

			var out NetID
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, n)
		})
	})
}

func TestJoinAcceptNetIDRoundTrip(t *testing.T) {
	Convey("Given a join-accept message", t, func() {
		m := NewMessage([]byte{byte(MTypeJoinAccept)}, MACVersion102, nil, nil, nil)
		m.resetPayloadFor(MTypeJoinAccept)
		view := m.Payload().(JoinAcceptView)

		view.SetNetID(NetID{1, 2, 3})

		Convey("NetID recovers the typed value", func() {
			n := view.NetID()
			So(n, ShouldResemble, NetID{1, 2, 3})
			So(n.Type(), ShouldEqual, 0)
		})
	})
}
