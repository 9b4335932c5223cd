package modem

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestUBJSONRoundTrip(t *testing.T) {
	Convey("Given a request object with mixed field types", t, func() {
		req := map[string]interface{}{
			"set_lora_channel": map[string]interface{}{
				"frequency":  int64(868100000),
				"bandwidth":  int64(125),
				"invertiqtx": true,
				"payload":    []byte{0x01, 0x02, 0xFF},
			},
		}

		Convey("Marshal then Unmarshal recovers equivalent values", func() {
			data, err := Marshal(req)
			So(err, ShouldBeNil)

			decoded, rest, err := Unmarshal(data)
			So(err, ShouldBeNil)
			So(rest, ShouldBeEmpty)

			top, ok := decoded.(map[string]interface{})
			So(ok, ShouldBeTrue)
			inner, ok := top["set_lora_channel"].(map[string]interface{})
			So(ok, ShouldBeTrue)
			So(inner["frequency"], ShouldEqual, int64(868100000))
			So(inner["bandwidth"], ShouldEqual, int64(125))
			So(inner["invertiqtx"], ShouldEqual, true)
			So(inner["payload"], ShouldResemble, []byte{0x01, 0x02, 0xFF})
		})
	})
}

func TestUBJSONNegativeIntegers(t *testing.T) {
	Convey("Given a negative int8 value", t, func() {
		data, err := Marshal(map[string]interface{}{"margin": int8(-20)})
		So(err, ShouldBeNil)

		decoded, _, err := Unmarshal(data)
		So(err, ShouldBeNil)
		m := decoded.(map[string]interface{})
		So(m["margin"], ShouldEqual, int64(-20))
	})
}

func TestUBJSONStatusResponse(t *testing.T) {
	Convey("Given a status-shaped response", t, func() {
		data, err := Marshal(map[string]interface{}{
			"status": map[string]interface{}{
				"code":    int64(0),
				"message": "ok",
			},
		})
		So(err, ShouldBeNil)

		decoded, _, err := Unmarshal(data)
		So(err, ShouldBeNil)
		status := decoded.(map[string]interface{})["status"].(map[string]interface{})
		So(status["code"], ShouldEqual, int64(0))
		So(status["message"], ShouldEqual, "ok")
	})
}
