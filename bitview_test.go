package lorawan

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestGetSetMasked(t *testing.T) {
	Convey("Given a byte with the high nibble set", t, func() {
		b := byte(0xA5)

		Convey("GetMasked with 0xF0 returns the high nibble", func() {
			So(GetMasked(b, 0xF0), ShouldEqual, 0x0A)
		})

		Convey("SetMasked replaces only the masked bits", func() {
			out := SetMasked(b, 0x3, 0xF0)
			So(out, ShouldEqual, byte(0x35))
		})

		Convey("SetMaskedBool sets a single bit", func() {
			out := SetMaskedBool(0, true, 0x20)
			So(out, ShouldEqual, byte(0x20))
		})
	})
}

func TestSplice(t *testing.T) {
	Convey("Given a 4-byte sequence", t, func() {
		seq := []byte{0x01, 0x02, 0x03, 0x04}

		Convey("Splice replaces a middle range", func() {
			out, err := Splice(seq, 1, 2, []byte{0xAA, 0xBB}, true, false)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, []byte{0x01, 0xAA, 0xBB, 0x04})
		})

		Convey("Splice with switchEndian reverses the replacement", func() {
			out, err := Splice(seq, 1, 2, []byte{0xAA, 0xBB}, true, true)
			So(err, ShouldBeNil)
			So(out, ShouldResemble, []byte{0x01, 0xBB, 0xAA, 0x04})
		})

		Convey("Splice rejects an out-of-range offset", func() {
			_, err := Splice(seq, 3, 5, []byte{0x00}, false, false)
			So(err, ShouldNotBeNil)
		})

		Convey("Splice with checkLength rejects a mismatched replacement", func() {
			_, err := Splice(seq, 0, 2, []byte{0x01}, true, false)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestNumberRoundTrip(t *testing.T) {
	Convey("Given a 4-byte buffer", t, func() {
		buf := make([]byte, 4)

		Convey("PutNumber/GetNumber round-trip little-endian", func() {
			err := PutNumber(buf, 0, 4, 0x01020304, true)
			So(err, ShouldBeNil)
			n, err := GetNumber(buf, 0, 4, true)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, uint64(0x01020304))
		})

		Convey("PutNumber/GetNumber round-trip big-endian", func() {
			err := PutNumber(buf, 0, 4, 0x01020304, false)
			So(err, ShouldBeNil)
			n, err := GetNumber(buf, 0, 4, false)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, uint64(0x01020304))
		})
	})
}

func TestFreqBytes(t *testing.T) {
	Convey("Given a frequency of 868100000 Hz", t, func() {
		b, err := FreqToBytes(868100000)
		So(err, ShouldBeNil)

		Convey("BytesToFreq recovers the original frequency", func() {
			So(BytesToFreq(b), ShouldEqual, uint32(868100000))
		})
	})

	Convey("A frequency too large to encode is rejected", t, func() {
		_, err := FreqToBytes(0xFFFFFFFF)
		So(err, ShouldNotBeNil)
	})
}
