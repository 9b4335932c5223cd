package wormhole

import (
	"sync"
	"time"

	lorawan "github.com/chirpotle-go/wormhole"
	"github.com/chirpotle-go/wormhole/modem"
)

// pendingExpiry bounds how long a captured uplink waits for its matching
// downlink before it is considered stale and pruned.
const pendingExpiry = 10 * time.Second

// PendingFrame records an entry node's captured uplink while its RX2
// window is still open, so a downlink the exit node later intercepts can
// be scheduled back through the same entry node.
type PendingFrame struct {
	Entry      *Node
	DevAddr    [4]byte
	TimeRXDone uint64
	CapturedAt time.Time
}

// Rx2Wormhole forwards an uplink through the exit node and relays the
// gateway's RX2 downlink back out the entry node, so both the gateway and
// the device believe they are talking directly to each other. Grounded on
// Rx2Wormhole in the original tool implementation.
type Rx2Wormhole struct {
	*Wormhole

	rx1Delay time.Duration
	rx2Delay time.Duration

	mu            sync.Mutex
	pending       []*PendingFrame
	devAddr       *[4]byte
	downlinkHooks []FrameListener
	filters       []FrameFilter
}

// NewRx2Wormhole builds an RX2-forwarding wormhole. rx1Delay is the
// device's configured RX1 delay; RX2 opens one second later.
func NewRx2Wormhole(entryNodes, exitNodes []*Node, rx1Delay time.Duration) *Rx2Wormhole {
	base := NewWormhole(entryNodes, exitNodes)
	r := &Rx2Wormhole{
		Wormhole: base,
		rx1Delay: rx1Delay,
		rx2Delay: rx1Delay + time.Second,
	}
	base.entryLoop = func(w *Wormhole, n *Node) { r.entryLoopRx2(n) }
	base.exitLoop = func(w *Wormhole, n *Node) { r.exitLoopRx2(n) }
	return r
}

// AddDownlinkListener registers a listener invoked for every forwarded
// downlink.
func (r *Rx2Wormhole) AddDownlinkListener(l FrameListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downlinkHooks = append(r.downlinkHooks, l)
}

// AddFilter registers f; if any registered filter returns false for an
// uplink, it is not forwarded.
func (r *Rx2Wormhole) AddFilter(f FrameFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, f)
}

func (r *Rx2Wormhole) allowForward(payload []byte) bool {
	r.mu.Lock()
	filters := append([]FrameFilter(nil), r.filters...)
	r.mu.Unlock()
	for _, f := range filters {
		if !f(payload) {
			return false
		}
	}
	return true
}

func (r *Rx2Wormhole) notifyDownlink(payload []byte) {
	r.mu.Lock()
	hooks := append([]FrameListener(nil), r.downlinkHooks...)
	r.mu.Unlock()
	for _, h := range hooks {
		r.callListener(h, payload)
	}
}

// SetDevAddr updates the jammer pattern used on the exit nodes to
// recognize RX1/RX2 downlinks addressed to this device. If the wormhole
// is up, every exit node is asked to update its armed jammer.
func (r *Rx2Wormhole) SetDevAddr(addr [4]byte) {
	r.mu.Lock()
	r.devAddr = &addr
	up := r.IsUp()
	r.mu.Unlock()

	if up {
		for _, n := range r.ExitNodes() {
			n.Enqueue(Event{Kind: EventUpdateDevAddr, DevAddr: addr[:]})
		}
	}
}

func (r *Rx2Wormhole) getDevAddr() ([4]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.devAddr == nil {
		return [4]byte{}, false
	}
	return *r.devAddr, true
}

// jammerPattern returns the internal-jam sniffer mask/pattern: the first
// (MHDR) byte is masked out, so any MHDR matches, and the next four bytes
// must equal the device address in wire byte order.
func jammerPattern(addr [4]byte) (mask, pattern []byte) {
	mask = []byte{0x00, 0xff, 0xff, 0xff, 0xff}
	pattern = append([]byte{0x00}, addr[:]...)
	return
}

func (r *Rx2Wormhole) armJammer(n *Node, addr [4]byte) error {
	mask, pattern := jammerPattern(addr)
	return n.Client.EnableSniffer(false, mask, pattern, modem.SnifferActionInternal, "")
}

// addPending records pf under r's own lock. DownlinkDelayedWormhole uses
// this rather than touching the inherited pending slice directly, since
// it declares its own mutex for its additional bookkeeping.
func (r *Rx2Wormhole) addPending(pf *PendingFrame) {
	r.mu.Lock()
	r.pending = append(r.pending, pf)
	r.mu.Unlock()
}

// entryLoopRx2 implements the device-side half of the strategy: capture
// uplinks, forward them to every exit node, and open an RX2 window of our
// own to relay back whatever downlink the exit nodes schedule.
func (r *Rx2Wormhole) entryLoopRx2(n *Node) {
	n.setState(StateStarting)
	ch := r.GetLoRaChannel()
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("entry node channel setup failed")
		r.down(n)
		return
	}
	if err := n.Client.Receive(); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("entry node receive failed")
		r.down(n)
		return
	}
	n.setState(StateRunning)

	for {
		select {
		case ev := <-n.queue:
			switch ev.Kind {
			case EventStop:
				_ = n.Client.Standby()
				n.setState(StateStopped)
				return
			case EventPrepareRx2:
				if !r.prepareRx2(n) {
					return
				}
				continue
			}
		case <-time.After(50 * time.Millisecond):
		}

		frame, err := n.Client.FetchFrame()
		if err != nil || frame == nil {
			continue
		}
		if r.dedup.Seen(frame.Payload) {
			continue
		}
		if !r.allowForward(frame.Payload) {
			continue
		}

		for _, exit := range r.ExitNodes() {
			exit.Enqueue(Event{Kind: EventTransmit, Payload: frame.Payload})
		}
		if _, ok := devAddrOf(frame.Payload); ok {
			// PendingFrame.DevAddr holds the wire byte order, which is
			// what forwardDownlink compares against a captured downlink.
			var addr [4]byte
			copy(addr[:], frame.Payload[1:5])
			r.addPending(&PendingFrame{
				Entry:      n,
				DevAddr:    addr,
				TimeRXDone: frame.TimeRXDone,
				CapturedAt: time.Now(),
			})
		}
		r.notifyListeners(frame.Payload)
		n.Enqueue(Event{Kind: EventPrepareRx2})
	}
}

// prepareRx2 reconfigures the entry node for the downlink transmit: it
// keeps the forwarding channel's frequency, bandwidth and spreading factor
// (no separate RX2 frequency or data rate is applied), turns IQ inversion
// off and forces explicit header mode. It then waits up to rx2Delay+1s for
// a ScheduleRx2 event, transmits it if one arrives, and restores the uplink
// channel. Returns false if the node was stopped
// while in this state.
func (r *Rx2Wormhole) prepareRx2(n *Node) bool {
	rx2ch := r.GetLoRaChannel()
	rx2ch.InvertIQRX = false
	rx2ch.InvertIQTX = false
	rx2ch.ExplicitHeader = true
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(rx2ch)); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("rx2 channel setup failed")
	}
	_ = n.Client.Standby()

	deadline := time.After(r.rx2Delay + time.Second)
	for {
		select {
		case ev := <-n.queue:
			switch ev.Kind {
			case EventStop:
				_ = n.Client.Standby()
				n.setState(StateStopped)
				return false
			case EventScheduleRx2:
				ts := ev.SchedTime
				if err := n.Client.TransmitFrame(ev.Payload, &ts, false); err != nil {
					r.log.WithError(err).WithField("node", n.Name).Error("rx2 transmit failed")
				}
			}
		case <-deadline:
			r.restoreUplink(n)
			return true
		}
	}
}

func (r *Rx2Wormhole) restoreUplink(n *Node) {
	ch := r.GetLoRaChannel()
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("uplink channel restore failed")
	}
	if err := n.Client.Receive(); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("uplink receive restore failed")
	}
}

// exitLoopRx2 implements the gateway-side half: forward the uplink at
// normal polarity, then flip to listen for the gateway's RX1 downlink and
// hand any match to forwardDownlink.
func (r *Rx2Wormhole) exitLoopRx2(n *Node) {
	n.setState(StateStarting)
	ch := r.GetLoRaChannel()
	ch.InvertIQTX = true
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("exit node channel setup failed")
		r.down(n)
		return
	}
	if _, err := n.Client.SetTXCRC(true); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("exit node txcrc setup failed")
	}
	sf := ch.SpreadingFactor
	_ = n.Client.SetJammerPayloadLength(13 - sf)
	if addr, ok := r.getDevAddr(); ok {
		_ = r.armJammer(n, addr)
	}
	n.setState(StateRunning)

	for ev := range n.queue {
		switch ev.Kind {
		case EventTransmit:
			_ = n.Client.Standby()
			if err := n.Client.TransmitFrame(ev.Payload, nil, true); err != nil {
				r.log.WithError(err).WithField("node", n.Name).Error("exit node transmit failed")
				continue
			}
			r.listenForDownlink(n)
		case EventUpdateDevAddr:
			var addr [4]byte
			copy(addr[:], ev.DevAddr)
			if err := r.armJammer(n, addr); err != nil {
				r.log.WithError(err).WithField("node", n.Name).Error("jammer re-arm failed")
			}
		case EventStop:
			_ = n.Client.Standby()
			n.setState(StateStopped)
			return
		}
	}
}

// listenForDownlink switches the exit node to the gateway's polarity,
// drains fetch_frame for rx1Delay+1s, and forwards any matching downlink.
func (r *Rx2Wormhole) listenForDownlink(n *Node) {
	ch := r.GetLoRaChannel()
	ch.InvertIQRX = true
	if _, err := n.Client.SetLoRaChannel(channelToUpdate(ch)); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("downlink listen channel setup failed")
		return
	}
	if err := n.Client.Receive(); err != nil {
		r.log.WithError(err).WithField("node", n.Name).Error("downlink listen receive failed")
		return
	}

	deadline := time.Now().Add(r.rx1Delay + time.Second)
	for time.Now().Before(deadline) {
		frame, err := n.Client.FetchFrame()
		if err != nil {
			break
		}
		if frame != nil && len(frame.Payload) >= 5 {
			r.forwardDownlink(frame)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if addr, ok := r.getDevAddr(); ok {
		_ = r.armJammer(n, addr)
	}
}

// forwardDownlink matches a captured downlink against the most recent
// live PendingFrame for its device address and schedules it back through
// that frame's entry node for RX2 transmission.
func (r *Rx2Wormhole) forwardDownlink(frame *modem.Frame) {
	var addr [4]byte
	copy(addr[:], frame.Payload[1:5])

	r.mu.Lock()
	var match *PendingFrame
	live := r.pending[:0]
	now := time.Now()
	for _, pf := range r.pending {
		if now.Sub(pf.CapturedAt) >= pendingExpiry {
			continue
		}
		if pf.DevAddr == addr && (match == nil || pf.CapturedAt.After(match.CapturedAt)) {
			match = pf
		}
		live = append(live, pf)
	}
	if match != nil {
		live = removePendingFrame(live, match)
	}
	r.pending = live
	r.mu.Unlock()

	if match == nil {
		return
	}

	rx2At := match.TimeRXDone + uint64(r.rx2Delay.Microseconds())
	match.Entry.Enqueue(Event{Kind: EventScheduleRx2, Payload: frame.Payload, SchedTime: rx2At})
	r.notifyDownlink(frame.Payload)
}

// removePendingFrame returns frames with match removed, preserving order.
func removePendingFrame(frames []*PendingFrame, match *PendingFrame) []*PendingFrame {
	out := frames[:0]
	for _, pf := range frames {
		if pf != match {
			out = append(out, pf)
		}
	}
	return out
}

// devAddrOf extracts the device address from a data-frame payload,
// presented big-endian as the rest of this module does. Returns false for
// anything that is not parseable as a data frame.
func devAddrOf(payload []byte) ([4]byte, bool) {
	if len(payload) < 5 {
		return [4]byte{}, false
	}
	msg := lorawan.NewMessage(payload, lorawan.MACVersion102, nil, nil, nil)
	mtype := msg.MHDR().MType()
	if !mtype.IsDataUp() && !mtype.IsDataDown() {
		return [4]byte{}, false
	}
	mp, ok := msg.Payload().(lorawan.MacPayloadView)
	if !ok {
		return [4]byte{}, false
	}
	return mp.FHDR().DevAddr(), true
}
