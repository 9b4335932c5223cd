package modem

import (
	"bytes"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFrameRoundTrip(t *testing.T) {
	Convey("Given a payload containing literal zero bytes", t, func() {
		payload := []byte{0x00, 0x01, 0x02, 0x00, 0x00, 0x03}

		Convey("frame escapes every 0x00 and readFrame recovers the original payload", func() {
			wire := frame(payload)
			r := bytes.NewReader(wire)
			got, err := readFrame(r)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, payload)
		})
	})
}

func TestReadFrameSkipsNoise(t *testing.T) {
	Convey("Given noise bytes before the real OBJ_START marker", t, func() {
		noise := []byte{0xAA, 0xBB, 0xCC}
		wire := append(append([]byte{}, noise...), frame([]byte("hi"))...)

		Convey("readFrame finds the frame and ignores the noise", func() {
			r := bytes.NewReader(wire)
			got, err := readFrame(r)
			So(err, ShouldBeNil)
			So(got, ShouldResemble, []byte("hi"))
		})
	})
}

func TestReadFrameRejectsUnknownEscape(t *testing.T) {
	Convey("Given a frame with an unrecognized escape sequence", t, func() {
		wire := append(append([]byte{}, seqObjStart...), 0x00, 0x05, 0x00, 0x02)

		Convey("readFrame fails with InvalidEncoding", func() {
			r := bytes.NewReader(wire)
			_, err := readFrame(r)
			So(err, ShouldNotBeNil)
		})
	})
}
