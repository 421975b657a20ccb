// Package bridge implements the request/response protocol with an embedding
// host application over a Unix socket.
package bridge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mohsinsiddi/w3burn/internal/log"
)

// Timeouts for the two host requests.
const (
	ConnectTimeout  = 10 * time.Second
	ProviderTimeout = 5 * time.Second
)

var (
	// ErrTimeout is returned when the host does not answer in time.
	ErrTimeout = errors.New("host did not respond in time")
	// ErrClosed is returned for requests on a closed bridge.
	ErrClosed = errors.New("bridge closed")
)

// Options configures a Bridge.
type Options struct {
	// Origin identifies this application to the host.
	Origin string
	// TrustedOrigin is the host origin requests are addressed to. Replies
	// from any other origin are dropped. Empty accepts any origin.
	TrustedOrigin string
	// Zero timeouts use ConnectTimeout and ProviderTimeout.
	ConnectTimeout  time.Duration
	ProviderTimeout time.Duration
	Logger          *log.Logger
}

type listener struct {
	accept func(Message) bool
	ch     chan Message
}

// Bridge multiplexes requests to the host over one connection.
type Bridge struct {
	conn io.ReadWriteCloser
	opts Options

	wmu sync.Mutex
	enc *json.Encoder

	mu        sync.Mutex
	listeners map[uint64]*listener
	nextID    uint64

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the host socket at path.
func Dial(ctx context.Context, path string, opts Options) (*Bridge, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("dialing host bridge: %w", err)
	}
	return New(conn, opts), nil
}

// New starts a bridge over conn.
func New(conn io.ReadWriteCloser, opts Options) *Bridge {
	b := &Bridge{
		conn:      conn,
		opts:      opts,
		enc:       json.NewEncoder(conn),
		listeners: make(map[uint64]*listener),
		done:      make(chan struct{}),
	}
	go b.readLoop()
	return b
}

// Request sends msg and waits for the first reply accepted by accept. The
// listener is removed on every return path and the result settles once.
func (b *Bridge) Request(ctx context.Context, msg Message, timeout time.Duration, accept func(Message) bool) (Message, error) {
	msg.ID = uuid.NewString()
	msg.Source = Source
	msg.Origin = b.opts.Origin
	msg.Target = b.opts.TrustedOrigin

	id := msg.ID
	l := &listener{
		accept: func(m Message) bool {
			return (m.ID == "" || m.ID == id) && accept(m)
		},
		ch: make(chan Message, 1),
	}
	key := b.register(l)
	defer b.deregister(key)

	if err := b.send(msg); err != nil {
		return Message{}, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-l.ch:
		return reply, nil
	case <-timer.C:
		return Message{}, ErrTimeout
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-b.done:
		return Message{}, ErrClosed
	}
}

// Connect asks the host to connect its wallet. It returns the account
// address and, when the host hands one over, a provider.
func (b *Bridge) Connect(ctx context.Context) (string, *ProviderInfo, error) {
	reply, err := b.Request(ctx, Message{Type: TypeConnectWallet}, orDefault(b.opts.ConnectTimeout, ConnectTimeout), func(m Message) bool {
		return m.Type == TypeWalletConnected || m.Type == TypeWalletError
	})
	if err != nil {
		return "", nil, err
	}
	if reply.Type == TypeWalletError {
		return "", nil, &HostError{Message: reply.Error}
	}
	return reply.Address, reply.Provider, nil
}

// RequestProvider asks the host for a wallet provider.
func (b *Bridge) RequestProvider(ctx context.Context) (*ProviderInfo, error) {
	reply, err := b.Request(ctx, Message{Type: TypeRequestProvider}, orDefault(b.opts.ProviderTimeout, ProviderTimeout), func(m Message) bool {
		return m.Type == TypeProviderResponse
	})
	if err != nil {
		return nil, err
	}
	if reply.Error != "" {
		return nil, &HostError{Message: reply.Error}
	}
	if reply.Provider == nil {
		return nil, &HostError{Message: "no provider in response"}
	}
	return reply.Provider, nil
}

// ListenerCount returns the number of requests awaiting a reply.
func (b *Bridge) ListenerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.listeners)
}

// Close shuts the connection down and fails pending requests.
func (b *Bridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.conn.Close()
	})
	return err
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

func (b *Bridge) register(l *listener) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	b.listeners[b.nextID] = l
	return b.nextID
}

func (b *Bridge) deregister(key uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.listeners, key)
}

func (b *Bridge) send(msg Message) error {
	b.wmu.Lock()
	defer b.wmu.Unlock()
	select {
	case <-b.done:
		return ErrClosed
	default:
	}
	if err := b.enc.Encode(msg); err != nil {
		return fmt.Errorf("sending %s: %w", msg.Type, err)
	}
	return nil
}

func (b *Bridge) readLoop() {
	defer b.Close() //nolint:errcheck
	sc := bufio.NewScanner(b.conn)
	for sc.Scan() {
		var m Message
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			b.opts.Logger.Debug("dropping malformed host message", "err", err)
			continue
		}
		if b.opts.TrustedOrigin != "" && m.Origin != b.opts.TrustedOrigin {
			b.opts.Logger.Warn("dropping message from untrusted origin", "origin", m.Origin, "type", m.Type)
			continue
		}
		b.dispatch(m)
	}
}

func (b *Bridge) dispatch(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, l := range b.listeners {
		if !l.accept(m) {
			continue
		}
		select {
		case l.ch <- m:
		default:
			// Already settled.
		}
	}
}
