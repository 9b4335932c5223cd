package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLinkADRReqRoundTrip(t *testing.T) {
	Convey("Given a LinkADRReqPayload", t, func() {
		p := LinkADRReqPayload{
			DataRate:   5,
			TXPower:    3,
			ChMask:     ChMask{0: true, 1: true, 15: true},
			ChMaskCntl: 2,
			NbTrans:    4,
		}

		Convey("MarshalBinary/UnmarshalBinary round-trip", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			So(len(b), ShouldEqual, 4)

			var out LinkADRReqPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestDevStatusAnsNegativeMargin(t *testing.T) {
	Convey("Given a DevStatusAns with a negative margin", t, func() {
		p := DevStatusAnsPayload{Battery: 200, Margin: -10}

		Convey("It round-trips through the offset encoding", func() {
			b, err := p.MarshalBinary()
			So(err, ShouldBeNil)
			var out DevStatusAnsPayload
			So(out.UnmarshalBinary(b), ShouldBeNil)
			So(out, ShouldResemble, p)
		})
	})
}

func TestParseMACCommandsStopsOnUnknownCID(t *testing.T) {
	Convey("Given FOpts bytes with a valid LinkCheckAns followed by an unknown CID", t, func() {
		data := []byte{byte(CIDLinkCheck), 20, 3, 0xFF, 0x01}

		Convey("parseMACCommands returns only the valid leading command", func() {
			cmds := parseMACCommands(data, false)
			So(len(cmds), ShouldEqual, 1)
			So(cmds[0].CID, ShouldEqual, CIDLinkCheck)
		})
	})
}

func TestParseMACCommandsStopsOnTruncatedTrailer(t *testing.T) {
	Convey("Given FOpts bytes whose trailing command is too short", t, func() {
		data := []byte{byte(CIDDutyCycle), 5, byte(CIDNewChannel), 0x01}

		Convey("parseMACCommands keeps the complete commands and drops the truncated one", func() {
			cmds := parseMACCommands(data, false)
			So(len(cmds), ShouldEqual, 1)
			So(cmds[0].CID, ShouldEqual, CIDDutyCycle)
		})
	})
}
