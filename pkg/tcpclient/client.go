package tcpclient

import (
	"context"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrConnectionClosed = errors.New("connection is closed")
	ErrTimeout          = errors.New("operation timed out")
)

// TCPClient is a small pooled client for length-prefixed binary protocols.
// Frames are a big-endian uint32 payload size followed by the payload.
type TCPClient struct {
	address     string
	timeout     time.Duration
	connections chan net.Conn
	tlsConfig   *tls.Config
	logger      *zap.Logger
	mu          sync.Mutex
	closed      bool
}

type TCPClientOption func(*TCPClient)

func WithTLS(config *tls.Config) TCPClientOption {
	return func(c *TCPClient) {
		c.tlsConfig = config
	}
}

func WithLogger(logger *zap.Logger) TCPClientOption {
	return func(c *TCPClient) {
		c.logger = logger
	}
}

func NewTCPClient(address string, timeout time.Duration, poolSize int, opts ...TCPClientOption) (*TCPClient, error) {
	client := &TCPClient{
		address:     address,
		timeout:     timeout,
		connections: make(chan net.Conn, poolSize),
		logger:      zap.NewNop(),
	}

	for _, opt := range opts {
		opt(client)
	}

	for i := 0; i < poolSize; i++ {
		conn, err := client.dial()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize connection pool: %w", err)
		}
		client.connections <- conn
	}

	return client, nil
}

func (c *TCPClient) dial() (net.Conn, error) {
	dialer := &net.Dialer{Timeout: c.timeout}
	if c.tlsConfig != nil {
		return tls.DialWithDialer(dialer, "tcp", c.address, c.tlsConfig)
	}
	return dialer.Dial("tcp", c.address)
}

// Acquire checks a connection out of the pool. The caller must return it
// with Release, or Discard it after a protocol error.
func (c *TCPClient) Acquire(ctx context.Context) (net.Conn, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.mu.Unlock()

	select {
	case conn := <-c.connections:
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.timeout):
		return nil, ErrTimeout
	}
}

func (c *TCPClient) Release(conn net.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		conn.Close()
		return
	}
	c.connections <- conn
}

// Discard closes a connection that is in an unknown protocol state and
// replaces it with a fresh one so the pool does not shrink.
func (c *TCPClient) Discard(conn net.Conn) {
	if err := conn.Close(); err != nil {
		c.logger.Warn("Failed to close connection", zap.Error(err))
	}

	fresh, err := c.dial()
	if err != nil {
		c.logger.Warn("Failed to redial connection", zap.Error(err))
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		fresh.Close()
		return
	}
	c.connections <- fresh
}

// SendFrame writes one length-prefixed frame to conn.
func (c *TCPClient) SendFrame(ctx context.Context, conn net.Conn, payload []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	} else {
		conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))
	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("failed to write frame payload: %w", err)
	}

	return nil
}

// ReceiveFrame reads one length-prefixed frame from conn.
func (c *TCPClient) ReceiveFrame(ctx context.Context, conn net.Conn) ([]byte, error) {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(deadline)
	} else {
		conn.SetReadDeadline(time.Now().Add(c.timeout))
	}

	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	size := binary.BigEndian.Uint32(header)
	payload := make([]byte, size)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}

	return payload, nil
}

func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	close(c.connections)
	for conn := range c.connections {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close connection", zap.Error(err))
		}
	}

	return nil
}
