package wormhole

import (
	"sync/atomic"

	"github.com/chirpotle-go/wormhole/modem"
)

// State is a node's lifecycle state, see spec §4.G.
type State int

// Node lifecycle states.
const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// EventKind tags the events a node's queue carries.
type EventKind int

// Event kinds. Transmit/Stop are generic (spec §4.G); the rest are
// strategy-specific (spec §4.H).
const (
	EventTransmit EventKind = iota
	EventStop
	EventPrepareRx2
	EventScheduleRx2
	EventUpdateDevAddr
	EventAwaitDownlink
)

// Event is one message on a node's event queue.
type Event struct {
	Kind EventKind

	// Payload carries the frame bytes for Transmit/ScheduleRx2/AwaitDownlink.
	Payload []byte
	// SchedTime carries the scheduled tx time (µs, modem clock) for
	// ScheduleRx2.
	SchedTime uint64
	// DevAddr carries the new jammer pattern for UpdateDevAddr.
	DevAddr []byte
	// UplinkFrame carries the originating uplink for AwaitDownlink, so
	// the exit-node loop can read its RX timestamp.
	UplinkFrame *modem.Frame
}

// Node is one physical transceiver participating in a wormhole, either
// on the entry (device) or exit (gateway) side.
type Node struct {
	Name   string
	Client *modem.Client

	queue chan Event
	state atomic.Int32
}

// NewNode wraps client as a named wormhole node with a buffered event
// queue.
func NewNode(name string, client *modem.Client) *Node {
	n := &Node{
		Name:   name,
		Client: client,
		queue:  make(chan Event, 32),
	}
	n.state.Store(int32(StateIdle))
	return n
}

// Enqueue pushes ev onto the node's event queue. Safe to call
// concurrently with the node's own loop goroutine.
func (n *Node) Enqueue(ev Event) {
	n.queue <- ev
}

// State returns the node's current lifecycle state.
func (n *Node) State() State { return State(n.state.Load()) }

// setState updates the node's lifecycle state.
func (n *Node) setState(s State) { n.state.Store(int32(s)) }
