package modem

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	lorawan "github.com/chirpotle-go/wormhole"
)

// Protocol timings, see spec §6.1.
const (
	CallTimeout       = 10 * time.Second
	HeartbeatInterval = 15 * time.Second
	HeartbeatTimeout  = CallTimeout
	ConnectRetryDelay = 15 * time.Second
)

// request is one outstanding call on the worker's queue.
type request struct {
	payload  []byte
	response chan requestResult
}

type requestResult struct {
	data []byte
	err  error
}

// worker owns a single Transport and serializes every request/heartbeat
// against it, reconnecting on transport failure. Grounded on
// _daemonthread/_daemon_handle_message/_daemon_handle_heartbeat in the
// companion driver.
type worker struct {
	name      string
	transport Transport
	debug     bool
	log       *logrus.Entry

	reqCh  chan *request
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

func newWorker(name string, t Transport, debug bool) *worker {
	return &worker{
		name:      name,
		transport: t,
		debug:     debug,
		log:       logrus.WithField("modem", name),
		reqCh:     make(chan *request),
		stopCh:    make(chan struct{}),
	}
}

// start launches the reconnect/message loop goroutine.
func (w *worker) start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop()
}

// stop signals the loop to exit and waits for it to tear down the
// transport.
func (w *worker) stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	w.wg.Wait()
}

// call submits payload and blocks until a response is read or
// CallTimeout elapses.
func (w *worker) call(payload []byte) ([]byte, error) {
	req := &request{payload: payload, response: make(chan requestResult, 1)}
	deadline := time.After(CallTimeout)
	select {
	case w.reqCh <- req:
	case <-deadline:
		return nil, lorawan.ErrTimeout("request queue did not accept call")
	case <-w.stopCh:
		return nil, lorawan.ErrTransportFailed(nil)
	}
	select {
	case res := <-req.response:
		return res.data, res.err
	case <-deadline:
		return nil, lorawan.ErrTimeout("no response within CallTimeout")
	}
}

// loop is the outer reconnect loop; each iteration owns one connected
// transport lifetime.
func (w *worker) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		if err := w.transport.Connect(); err != nil {
			w.log.WithError(err).Error("could not connect to modem, retrying")
			select {
			case <-time.After(ConnectRetryDelay):
				continue
			case <-w.stopCh:
				return
			}
		}

		w.messageLoop()
		_ = w.transport.Close()
	}
}

// messageLoop is the inner loop: serve requests, inject heartbeats,
// restart the connection on any error.
func (w *worker) messageLoop() {
	lastHeartbeat := time.Now()
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if !w.transport.Alive() {
			w.log.Error("transport reports dead connection, restarting")
			return
		}

		select {
		case <-w.stopCh:
			return
		case req := <-w.reqCh:
			data, err := w.roundTrip(req.payload)
			req.response <- requestResult{data: data, err: err}
			if err != nil {
				w.log.WithError(err).Error("request failed, restarting connection")
				return
			}
			lastHeartbeat = time.Now()
		case <-ticker.C:
			if time.Since(lastHeartbeat) >= HeartbeatInterval {
				if err := w.heartbeat(); err != nil {
					w.log.WithError(err).Error("heartbeat failed, restarting connection")
					return
				}
				lastHeartbeat = time.Now()
			}
		}
	}
}

func (w *worker) roundTrip(payload []byte) ([]byte, error) {
	framed := frame(payload)
	if w.debug {
		logHexDump(w.log, w.name+" ->", framed)
	}
	if err := w.transport.Write(framed); err != nil {
		return nil, lorawan.ErrTransportFailed(err)
	}
	w.setReadDeadline(time.Now().Add(CallTimeout))
	data, err := readFrame(w.transport.Reader())
	if err != nil {
		return nil, err
	}
	if w.debug {
		logHexDump(w.log, w.name+" <-", data)
	}
	return data, nil
}

// readDeadliner is implemented by transports whose underlying connection
// supports a read deadline (currently TCP only); others are local
// processes where an unbounded blocking read is acceptable.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

func (w *worker) setReadDeadline(t time.Time) {
	if d, ok := w.transport.(readDeadliner); ok {
		_ = d.SetReadDeadline(t)
	}
}

func (w *worker) heartbeat() error {
	if w.debug {
		logHexDump(w.log, w.name+" -> (ping)", seqPing)
	}
	w.setReadDeadline(time.Now().Add(HeartbeatTimeout))
	if err := w.transport.Write(seqPing); err != nil {
		return lorawan.ErrTransportFailed(err)
	}
	got := make([]byte, 0, 2)
	for i := 0; i < 2; i++ {
		b, err := w.transport.Reader().ReadByte()
		if err != nil {
			return lorawan.ErrTransportFailed(err)
		}
		got = append(got, b)
	}
	if got[0] != seqPong[0] || got[1] != seqPong[1] {
		return lorawan.ErrTimeout("heartbeat: expected PONG")
	}
	w.log.Debug("heartbeat successful")
	return nil
}
