package server

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var (
	ErrPairingTimeout = errors.New("no peer joined the session in time")
)

// bridgedConn serializes writes; gorilla allows only one concurrent writer.
type bridgedConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *bridgedConn) write(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.WriteMessage(messageType, data)
}

type pendingPeer struct {
	conn   *bridgedConn
	joined chan *bridgedConn
}

// Bridge pairs the two live connections of a session and hands each handler
// its peer. The relay never inspects the frames that follow.
type Bridge struct {
	mu      sync.Mutex
	pending map[string]*pendingPeer
	timeout time.Duration
}

func NewBridge(timeout time.Duration) *Bridge {
	return &Bridge{
		pending: make(map[string]*pendingPeer),
		timeout: timeout,
	}
}

// Rendezvous blocks the first caller of a session id until the second arrives
// (or the timeout passes) and returns the peer connection to both.
func (b *Bridge) Rendezvous(sid string, conn *bridgedConn) (*bridgedConn, error) {
	b.mu.Lock()
	if p, ok := b.pending[sid]; ok {
		delete(b.pending, sid)
		b.mu.Unlock()
		p.joined <- conn
		return p.conn, nil
	}

	p := &pendingPeer{conn: conn, joined: make(chan *bridgedConn, 1)}
	b.pending[sid] = p
	b.mu.Unlock()

	select {
	case peer := <-p.joined:
		return peer, nil
	case <-time.After(b.timeout):
		b.mu.Lock()
		delete(b.pending, sid)
		b.mu.Unlock()
		// The peer may have joined in the instant before deregistration.
		select {
		case peer := <-p.joined:
			return peer, nil
		default:
		}
		return nil, ErrPairingTimeout
	}
}
