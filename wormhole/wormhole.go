package wormhole

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chirpotle-go/wormhole/modem"
)

// FrameListener receives a copy of every frame the wormhole forwards.
// Listener exceptions are caught and logged (spec §4.G); in Go terms
// that means a listener must not panic the node loop, so Wormhole
// recovers around each call.
type FrameListener func(payload []byte)

// FrameFilter decides whether a captured uplink should be forwarded.
// Any filter returning false vetoes forwarding.
type FrameFilter func(payload []byte) bool

// Channel is the LoRa channel configuration shared by every node in a
// wormhole.
type Channel = modem.Channel

// defaultChannel matches the companion driver's own default uplink
// channel.
func defaultChannel() Channel {
	return Channel{
		Frequency:       868100000,
		Bandwidth:       125,
		SpreadingFactor: 7,
		SyncWord:        0x34,
		CodingRate:      5,
		InvertIQTX:      false,
		InvertIQRX:      false,
		ExplicitHeader:  true,
	}
}

// entryLoopFn and exitLoopFn implement the per-node behaviour of a
// particular wormhole strategy; Wormhole.Up spawns one goroutine per node
// running the appropriate function.
type entryLoopFn func(w *Wormhole, n *Node)
type exitLoopFn func(w *Wormhole, n *Node)

// Wormhole is the generic one-way LoRa forwarder described in spec §4.G:
// every captured uplink on an entry node is deduplicated and replayed on
// every exit node. This base type has no filter list; Rx2Wormhole and
// DownlinkDelayedWormhole add AddFilter and build on the same plumbing
// with their own loop functions.
type Wormhole struct {
	entryNodes []*Node
	exitNodes  []*Node

	mu      sync.Mutex
	channel Channel
	isUp    bool

	listeners []FrameListener
	dedup     *DedupWindow

	entryLoop entryLoopFn
	exitLoop  exitLoopFn

	wg  sync.WaitGroup
	id  uuid.UUID
	log *logrus.Entry
}

// ID returns the wormhole's correlation ID, stable for its lifetime and
// attached to every log line it emits, so log lines from concurrent
// wormholes (and the goroutines each one spawns) can be told apart.
func (w *Wormhole) ID() uuid.UUID {
	return w.id
}

// NewWormhole builds a generic wormhole between entryNodes (near the
// device) and exitNodes (near the gateway).
func NewWormhole(entryNodes, exitNodes []*Node) *Wormhole {
	id := uuid.New()
	w := &Wormhole{
		entryNodes: entryNodes,
		exitNodes:  exitNodes,
		channel:    defaultChannel(),
		dedup:      NewDedupWindow(),
		id:         id,
		log:        logrus.WithFields(logrus.Fields{"component": "wormhole", "wormhole_id": id}),
	}
	w.entryLoop = genericEntryLoop
	w.exitLoop = genericExitLoop
	return w
}

// EntryNodes returns the wormhole's entry-side nodes.
func (w *Wormhole) EntryNodes() []*Node { return w.entryNodes }

// ExitNodes returns the wormhole's exit-side nodes.
func (w *Wormhole) ExitNodes() []*Node { return w.exitNodes }

// IsUp reports whether the wormhole is currently forwarding.
func (w *Wormhole) IsUp() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isUp
}

// GetLoRaChannel returns the forwarding channel.
func (w *Wormhole) GetLoRaChannel() Channel {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.channel
}

// SetLoRaChannel merges the non-nil fields of u into the stored
// channel, forces invertiqtx to the opposite of invertiqrx (LoRaWAN
// uplink/downlink polarity convention), and restarts the wormhole if it
// was up so both sides re-configure.
func (w *Wormhole) SetLoRaChannel(u modem.ChannelUpdate) Channel {
	w.mu.Lock()
	if u.Frequency != nil {
		w.channel.Frequency = *u.Frequency
	}
	if u.Bandwidth != nil {
		w.channel.Bandwidth = *u.Bandwidth
	}
	if u.SpreadingFactor != nil {
		w.channel.SpreadingFactor = *u.SpreadingFactor
	}
	if u.SyncWord != nil {
		w.channel.SyncWord = *u.SyncWord
	}
	if u.CodingRate != nil {
		w.channel.CodingRate = *u.CodingRate
	}
	if u.InvertIQRX != nil {
		w.channel.InvertIQRX = *u.InvertIQRX
	}
	if u.ExplicitHeader != nil {
		w.channel.ExplicitHeader = *u.ExplicitHeader
	}
	w.channel.InvertIQTX = !w.channel.InvertIQRX
	wasUp := w.isUp
	result := w.channel
	w.mu.Unlock()

	if wasUp {
		w.Down()
		w.Up()
	}
	return result
}

// AddListener registers a listener invoked for every forwarded uplink.
func (w *Wormhole) AddListener(l FrameListener) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, l)
}

// RemoveAllListeners clears every registered listener.
func (w *Wormhole) RemoveAllListeners() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = nil
}

// notifyListeners calls every listener with payload, recovering from and
// logging any panic so one bad hook cannot take the node loop down.
func (w *Wormhole) notifyListeners(payload []byte) {
	w.mu.Lock()
	listeners := append([]FrameListener(nil), w.listeners...)
	w.mu.Unlock()
	for _, l := range listeners {
		w.callListener(l, payload)
	}
}

func (w *Wormhole) callListener(l FrameListener, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("listener panicked, ignoring")
		}
	}()
	l(payload)
}

// Up spawns one goroutine per node and marks the wormhole running. It is
// a no-op if already up.
func (w *Wormhole) Up() {
	w.mu.Lock()
	if w.isUp {
		w.mu.Unlock()
		return
	}
	w.isUp = true
	w.mu.Unlock()

	for _, n := range w.exitNodes {
		n := n
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.exitLoop(w, n)
		}()
	}
	for _, n := range w.entryNodes {
		n := n
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.entryLoop(w, n)
		}()
	}
}

// Down stops every node and waits for their loops to exit.
func (w *Wormhole) Down() {
	w.mu.Lock()
	if !w.isUp {
		w.mu.Unlock()
		return
	}
	w.isUp = false
	w.mu.Unlock()

	w.down(nil)
}

// down signals Stop to every node except excluded (used by a loop that
// crashed to tear the rest of the wormhole down without deadlocking on
// its own queue) and waits for all loops to return.
func (w *Wormhole) down(excluded *Node) {
	all := append(append([]*Node{}, w.entryNodes...), w.exitNodes...)
	for _, n := range all {
		if n == excluded {
			continue
		}
		n.Enqueue(Event{Kind: EventStop})
	}
	w.wg.Wait()
}

// genericEntryLoop implements the base §4.G entry-node behaviour:
// configure+receive, then drain events and fetched frames.
func genericEntryLoop(w *Wormhole, n *Node) {
	n.setState(StateStarting)
	ch := w.GetLoRaChannel()
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		w.log.WithError(err).WithField("node", n.Name).Error("entry node channel setup failed")
		w.down(n)
		return
	}
	if err := n.Client.Receive(); err != nil {
		w.log.WithError(err).WithField("node", n.Name).Error("entry node receive failed")
		w.down(n)
		return
	}
	n.setState(StateRunning)

	for {
		select {
		case ev := <-n.queue:
			if ev.Kind == EventStop {
				_ = n.Client.Standby()
				n.setState(StateStopped)
				return
			}
		case <-time.After(50 * time.Millisecond):
		}

		frame, err := n.Client.FetchFrame()
		if err != nil || frame == nil {
			continue
		}
		if w.dedup.Seen(frame.Payload) {
			continue
		}
		for _, exit := range w.exitNodes {
			exit.Enqueue(Event{Kind: EventTransmit, Payload: frame.Payload})
		}
		w.notifyListeners(frame.Payload)
	}
}

// genericExitLoop implements the base §4.G exit-node behaviour: block on
// the queue, replay Transmit events.
func genericExitLoop(w *Wormhole, n *Node) {
	n.setState(StateStarting)
	ch := w.GetLoRaChannel()
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		w.log.WithError(err).WithField("node", n.Name).Error("exit node channel setup failed")
		w.down(n)
		return
	}
	n.setState(StateRunning)

	for ev := range n.queue {
		switch ev.Kind {
		case EventTransmit:
			if err := n.Client.TransmitFrame(ev.Payload, nil, true); err != nil {
				w.log.WithError(err).WithField("node", n.Name).Error("exit node transmit failed")
			}
		case EventStop:
			_ = n.Client.Standby()
			n.setState(StateStopped)
			return
		}
	}
}

// channelToUpdate turns a full Channel into a ChannelUpdate with every
// field set, for passing to the modem facade's validated setter.
func channelToUpdate(ch Channel) modem.ChannelUpdate {
	freq, bw, sf, sw, cr := ch.Frequency, ch.Bandwidth, ch.SpreadingFactor, ch.SyncWord, ch.CodingRate
	itx, irx, eh := ch.InvertIQTX, ch.InvertIQRX, ch.ExplicitHeader
	return modem.ChannelUpdate{
		Frequency:       &freq,
		Bandwidth:       &bw,
		SpreadingFactor: &sf,
		SyncWord:        &sw,
		CodingRate:      &cr,
		InvertIQTX:      &itx,
		InvertIQRX:      &irx,
		ExplicitHeader:  &eh,
	}
}
