package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rajatjasiwal2001/portfolio/config"
)

const recvTimeout = 2 * time.Second

var errFakeClosed = errors.New("fake conn closed")

// fakeConn is an in-memory Conn. Tests push frames into in and read what the
// server wrote from out.
type fakeConn struct {
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 512),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.in:
		return websocket.TextMessage, b, nil
	case <-c.closed:
		return 0, nil, &websocket.CloseError{Code: websocket.CloseNormalClosure}
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	select {
	case <-c.closed:
		return errFakeClosed
	default:
	}
	if messageType != websocket.TextMessage {
		return nil
	}
	c.out <- append([]byte(nil), data...)
	return nil
}

func (c *fakeConn) SetReadLimit(int64) {}
func (c *fakeConn) SetReadDeadline(time.Time) error { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (c *fakeConn) SetPongHandler(func(string) error) {}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// send pushes one client frame.
func (c *fakeConn) send(t *testing.T, typ EventType, data interface{}) {
	t.Helper()
	frame := map[string]interface{}{"type": typ}
	if data != nil {
		frame["data"] = data
	}
	b, err := json.Marshal(frame)
	require.NoError(t, err)
	c.in <- b
}

// recv returns the next event written to the client.
func (c *fakeConn) recv(t *testing.T) WSMessage {
	t.Helper()
	select {
	case b := <-c.out:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(b, &msg))
		return msg
	case <-time.After(recvTimeout):
		t.Fatal("timed out waiting for server event")
		return WSMessage{}
	}
}

// recvType skips events until one of type typ arrives and decodes its data into v.
func (c *fakeConn) recvType(t *testing.T, typ EventType, v interface{}) {
	t.Helper()
	deadline := time.After(recvTimeout)
	for {
		select {
		case b := <-c.out:
			var msg WSMessage
			require.NoError(t, json.Unmarshal(b, &msg))
			if msg.Type != typ {
				continue
			}
			if v != nil {
				require.NoError(t, json.Unmarshal(msg.Data, v))
			}
			return
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// expectSilence fails if anything is written to the client within d.
func (c *fakeConn) expectSilence(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case b := <-c.out:
		t.Fatalf("unexpected server event: %s", b)
	case <-time.After(d):
	}
}

// fixedRand always picks the first entry and the shortest delay.
type fixedRand struct{}

func (fixedRand) Intn(int) int { return 0 }
func (fixedRand) Int63n(int64) int64 { return 0 }

// fakeClock is a settable clock safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() config.RealtimeConfig {
	return config.RealtimeConfig{
		AnnounceInterval: time.Hour,
		SweepInterval:    time.Hour,
		IdleTimeout:      5 * time.Minute,
		ChatLogCapacity:  100,
		ReplyMinDelay:    10 * time.Millisecond,
		ReplyMaxDelay:    20 * time.Millisecond,
		MaxMessageBytes:  65536,
	}
}

// startHub runs a hub until the test ends and returns its cancel func.
func startHub(t *testing.T, cfg config.RealtimeConfig, opts ...Option) (*Hub, context.CancelFunc) {
	t.Helper()
	opts = append([]Option{WithRandomizer(fixedRand{})}, opts...)
	h := NewHub(zap.NewNop(), cfg, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		waitCtx, waitCancel := context.WithTimeout(context.Background(), recvTimeout)
		defer waitCancel()
		_ = h.Wait(waitCtx)
	})
	return h, cancel
}

// join connects a fake client the way ServeWs does.
func join(t *testing.T, h *Hub) (*Session, *fakeConn) {
	t.Helper()
	fc := newFakeConn()
	s := NewSession(h, fc, "test-agent", "127.0.0.1")
	require.NoError(t, h.Register(s))
	go s.readPump()
	return s, fc
}

// joinDrained connects a client and consumes its connection_established and
// visitor_count events.
func joinDrained(t *testing.T, h *Hub) (*Session, *fakeConn) {
	t.Helper()
	s, fc := join(t, h)
	fc.recvType(t, EventConnectionEstablished, nil)
	fc.recvType(t, EventVisitorCount, nil)
	return s, fc
}

func stats(t *testing.T, h *Hub) Stats {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), recvTimeout)
	defer cancel()
	st, err := h.Stats(ctx)
	require.NoError(t, err)
	return st
}

// connected is safe to call from require.Eventually; -1 means the hub did not answer.
func connected(h *Hub) int {
	ctx, cancel := context.WithTimeout(context.Background(), recvTimeout)
	defer cancel()
	st, err := h.Stats(ctx)
	if err != nil {
		return -1
	}
	return st.Connected
}
