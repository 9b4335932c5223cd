package wormhole

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/chirpotle-go/wormhole/modem"
)

func TestJammerPattern(t *testing.T) {
	Convey("Given a device address", t, func() {
		addr := [4]byte{0x01, 0x02, 0x03, 0x04}

		Convey("jammerPattern matches any MHDR byte, followed by the address", func() {
			mask, pattern := jammerPattern(addr)
			So(mask, ShouldResemble, []byte{0x00, 0xff, 0xff, 0xff, 0xff})
			So(pattern, ShouldResemble, []byte{0x00, 0x01, 0x02, 0x03, 0x04})
		})
	})
}

func TestDevAddrOf(t *testing.T) {
	Convey("Given an unconfirmed data-up frame", t, func() {
		payload := []byte{
			0x40,                   // MHDR: unconfirmed data up, major 0
			0x04, 0x03, 0x02, 0x01, // DevAddr, little-endian on the wire
			0x00,                   // FCtrl
			0x00, 0x00,             // FCnt
			0xaa, 0xbb, 0xcc, 0xdd, // MIC
		}

		Convey("devAddrOf recovers the address, presented big-endian", func() {
			addr, ok := devAddrOf(payload)
			So(ok, ShouldBeTrue)
			So(addr, ShouldResemble, [4]byte{0x01, 0x02, 0x03, 0x04})
		})
	})

	Convey("Given a join-request frame", t, func() {
		payload := make([]byte, 23)

		Convey("devAddrOf reports it is not a data frame", func() {
			_, ok := devAddrOf(payload)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestForwardDownlinkMatchesMostRecentPendingFrame(t *testing.T) {
	Convey("Given an Rx2Wormhole with two pending frames for the same device", t, func() {
		entry1 := NewNode("entry1", nil)
		entry2 := NewNode("entry2", nil)
		r := NewRx2Wormhole(nil, nil, time.Second)

		addr := [4]byte{0x01, 0x02, 0x03, 0x04}
		r.addPending(&PendingFrame{Entry: entry1, DevAddr: addr, TimeRXDone: 1000, CapturedAt: time.Now().Add(-time.Second)})
		r.addPending(&PendingFrame{Entry: entry2, DevAddr: addr, TimeRXDone: 2000, CapturedAt: time.Now()})

		Convey("A matching downlink schedules ScheduleRx2 on the most recently captured pending frame", func() {
			downlink := append([]byte{0x00}, addr[:]...)
			r.forwardDownlink(&modem.Frame{Payload: downlink})

			ev := <-entry2.queue
			So(ev.Kind, ShouldEqual, EventScheduleRx2)
			So(ev.Payload, ShouldResemble, downlink)
		})

		Convey("An expired pending frame is not matched", func() {
			r.mu.Lock()
			r.pending[0].CapturedAt = time.Now().Add(-2 * pendingExpiry)
			r.pending[1].CapturedAt = time.Now().Add(-2 * pendingExpiry)
			r.mu.Unlock()

			downlink := append([]byte{0x00}, addr[:]...)
			r.forwardDownlink(&modem.Frame{Payload: downlink})

			select {
			case <-entry1.queue:
				t.Fatal("expired pending frame should not have been scheduled")
			case <-entry2.queue:
				t.Fatal("expired pending frame should not have been scheduled")
			default:
			}
		})
	})
}
