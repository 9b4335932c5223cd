package wormhole

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNodeLifecycle(t *testing.T) {
	Convey("Given a freshly built node", t, func() {
		n := NewNode("entry0", nil)

		Convey("It starts idle", func() {
			So(n.State(), ShouldEqual, StateIdle)
		})

		Convey("setState is visible to State", func() {
			n.setState(StateRunning)
			So(n.State(), ShouldEqual, StateRunning)
		})

		Convey("Enqueue does not block while the queue has room", func() {
			n.Enqueue(Event{Kind: EventStop})
			ev := <-n.queue
			So(ev.Kind, ShouldEqual, EventStop)
		})
	})
}

func TestStateString(t *testing.T) {
	Convey("Every defined state has a non-default string", t, func() {
		So(StateIdle.String(), ShouldEqual, "Idle")
		So(StateRunning.String(), ShouldEqual, "Running")
		So(StateStopped.String(), ShouldEqual, "Stopped")
		So(State(99).String(), ShouldEqual, "Unknown")
	})
}
