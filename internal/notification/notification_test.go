package notification

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zimage-studio/zimage-server/internal/mq"
	"go.uber.org/zap"
)

// fakeConn is a wsConn whose read side blocks until the connection is
// closed, mimicking an idle browser socket.
type fakeConn struct {
	mu      sync.Mutex
	written []envelope
	done    chan struct{}
	once    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{done: make(chan struct{})}
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, v.(envelope))
	return nil
}

func (f *fakeConn) Written() []envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]envelope, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	<-f.done
	return 0, nil, net.ErrClosed
}

func (f *fakeConn) SetReadDeadline(t time.Time) error     { return nil }
func (f *fakeConn) SetWriteDeadline(t time.Time) error    { return nil }
func (f *fakeConn) SetPongHandler(h func(string) error)   {}
func (f *fakeConn) RemoteAddr() net.Addr                  { return nil }

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.done) })
	return nil
}

func newBareClient(h *Hub) *Client {
	return &Client{
		hub:    h,
		conn:   newFakeConn(),
		send:   make(chan Notification, sendBuffer),
		logger: zap.NewNop(),
		done:   make(chan struct{}),
	}
}

func TestBroadcastNoClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	// Must not panic or block.
	h.Broadcast(Info("nobody listening"))
	assert.Equal(t, 0, h.ClientCount())
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := NewHub(zap.NewNop())
	a, b := newBareClient(h), newBareClient(h)
	h.Register(a)
	h.Register(b)

	h.Broadcast(Success("done", true))

	for _, c := range []*Client{a, b} {
		select {
		case n := <-c.send:
			assert.Equal(t, KindSuccess, n.Kind)
			assert.Equal(t, "done", n.Message)
			assert.True(t, n.Persistent)
		default:
			t.Fatal("client did not receive broadcast")
		}
	}
}

func TestSlowClientIsSkippedNotRemoved(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newBareClient(h)
	h.Register(c)

	for i := 0; i < sendBuffer; i++ {
		h.Broadcast(Info("fill"))
	}

	// Buffer is full: this one is dropped for c, but c stays registered.
	h.Broadcast(Info("overflow"))
	assert.Equal(t, 1, h.ClientCount())
	assert.Len(t, c.send, sendBuffer)
}

func TestUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop())
	c := newBareClient(h)
	h.Register(c)

	h.Unregister(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.ClientCount())
}

func TestServeDeliversEnvelope(t *testing.T) {
	h := NewHub(zap.NewNop())
	conn := newFakeConn()
	serve(h, conn, zap.NewNop())

	require.Equal(t, 1, h.ClientCount())
	h.Broadcast(Error("model load failed", true))

	require.Eventually(t, func() bool {
		return len(conn.Written()) == 1
	}, time.Second, 5*time.Millisecond)

	env := conn.Written()[0]
	assert.Equal(t, "notification", env.Type)
	assert.Equal(t, KindError, env.NotificationType)
	assert.Equal(t, "model load failed", env.Message)
	assert.True(t, env.Persistent)
}

func TestDisconnectUnregisters(t *testing.T) {
	h := NewHub(zap.NewNop())
	conn := newFakeConn()
	serve(h, conn, zap.NewNop())

	conn.Close()

	require.Eventually(t, func() bool {
		return h.ClientCount() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherRelaysPublishedNotifications(t *testing.T) {
	queue, err := mq.NewInMemoryMQ(8)
	require.NoError(t, err)
	defer queue.Close()

	h := NewHub(zap.NewNop())
	c := newBareClient(h)
	h.Register(c)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		errc <- RunDispatcher(ctx, queue, h, zap.NewNop())
	}()

	NewPublisher(queue, zap.NewNop()).Publish(Warning("low disk space"))

	select {
	case n := <-c.send:
		assert.Equal(t, KindWarning, n.Kind)
		assert.Equal(t, "low disk space", n.Message)
	case <-time.After(time.Second):
		t.Fatal("notification never reached the hub")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}
