// Package gossip implements the mesh-wide exchange of node summaries and
// per-station signal observations over UDP multicast, the transport
// spec.md §2 describes as "eventual consistency, per-host arrival order,
// drop allowed" — exactly what best-effort multicast with no
// retransmission provides.
package gossip

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/net/ipv4"
)

// frameDelimiter separates JSON envelopes on the wire; each Envelope is
// marshaled compactly (no embedded newlines) so this is an unambiguous
// frame boundary.
const frameDelimiter = '\n'

// ErrClosed is returned by Send once the transport has been closed.
var ErrClosed = errors.New("gossip: transport closed")

// Config configures a Transport's multicast group membership.
type Config struct {
	// Group is the multicast group address, e.g. 239.192.0.1.
	Group net.IP
	// Port is the UDP port shared by every member of the mesh.
	Port int
	// IfaceName is the network interface to join the group on. Empty
	// lets the kernel pick a default multicast-capable interface, which
	// is rarely what's wanted on a multi-homed AP.
	IfaceName string
}

// Handler receives decoded envelopes from Transport.Run. Implementations
// must not block: Run delivers one envelope at a time on its own
// goroutine and a slow handler stalls every subsequent message.
type Handler interface {
	HandleEnvelope(env Envelope, from *net.UDPAddr)
}

// Transport sends and receives newline-framed JSON envelopes over a UDP
// multicast group. It owns no steering-core state: decoded envelopes are
// handed to a Handler, mirroring netio.Receiver's Demuxer decoupling so
// Transport itself has no dependency on internal/steer (EngineAdapter is
// the steer-facing side).
type Transport struct {
	self InstanceID

	conn    *net.UDPConn
	pconn   *ipv4.PacketConn
	dst     *net.UDPAddr
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// Dial joins cfg's multicast group and returns a Transport ready to Send
// and Run. self identifies this process's outbound messages so peers (and
// this process's own Run loop, since multicast delivers to the sender
// too) can recognize and skip loopback.
func Dial(cfg Config, self InstanceID, logger *slog.Logger) (*Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Group == nil || cfg.Group.To4() == nil {
		return nil, fmt.Errorf("gossip: group must be an IPv4 multicast address, got %v", cfg.Group)
	}

	laddr := &net.UDPAddr{Port: cfg.Port}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, fmt.Errorf("gossip: listen udp4 :%d: %w", cfg.Port, err)
	}

	pconn := ipv4.NewPacketConn(conn)

	var iface *net.Interface
	if cfg.IfaceName != "" {
		iface, err = net.InterfaceByName(cfg.IfaceName)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("gossip: lookup interface %s: %w", cfg.IfaceName, err)
		}
	}

	group := &net.UDPAddr{IP: cfg.Group, Port: cfg.Port}
	if err := pconn.JoinGroup(iface, group); err != nil {
		conn.Close()
		return nil, fmt.Errorf("gossip: join group %s on %s: %w", cfg.Group, cfg.IfaceName, err)
	}

	return &Transport{
		self:   self,
		conn:   conn,
		pconn:  pconn,
		dst:    group,
		logger: logger.With(slog.String("component", "gossip.transport")),
	}, nil
}

// Send marshals msg onto the wire, stamping it as having come from this
// transport's InstanceID by prefixing the frame with it — see
// wireFrame for the exact layout.
func (t *Transport) Send(env Envelope) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.mu.Unlock()

	payload, err := wireFrame(t.self, env)
	if err != nil {
		return err
	}
	if _, err := t.conn.WriteToUDP(payload, t.dst); err != nil {
		return fmt.Errorf("gossip: send to %s: %w", t.dst, err)
	}
	return nil
}

// Run reads frames from the multicast group until ctx is cancelled,
// skipping this transport's own messages and delivering everything else
// to handler.HandleEnvelope. Read errors are logged but don't stop the
// loop, matching netio.Receiver's "only context cancellation terminates
// the loop" rule.
func (t *Transport) Run(ctx context.Context, handler Handler) error {
	go func() {
		<-ctx.Done()
		t.Close()
	}()

	buf := make([]byte, 64*1024)
	for {
		n, src, err := t.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			t.logger.Warn("recv error", "err", err)
			continue
		}
		t.handleDatagram(buf[:n], src, handler)
	}
}

func (t *Transport) handleDatagram(datagram []byte, src *net.UDPAddr, handler Handler) {
	sender, body, err := splitWireFrame(datagram)
	if err != nil {
		t.logger.Debug("malformed frame", "src", src, "err", err)
		return
	}
	if sender == t.self {
		return // our own multicast loopback
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		env, err := Decode(line)
		if err != nil {
			t.logger.Debug("malformed envelope", "src", src, "err", err)
			continue
		}
		handler.HandleEnvelope(env, src)
	}
}

// wireFrame prepends sender's 8-byte big-endian InstanceID to env's
// marshaled JSON plus a trailing newline, so a future batched Send can
// pack multiple envelopes into one datagram behind a single sender
// prefix.
func wireFrame(sender InstanceID, env Envelope) ([]byte, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("gossip: marshal envelope: %w", err)
	}
	out := make([]byte, 8, 8+len(body)+1)
	binary.BigEndian.PutUint64(out, uint64(sender))
	out = append(out, body...)
	out = append(out, frameDelimiter)
	return out, nil
}

// splitWireFrame separates a datagram's sender prefix from its envelope
// body.
func splitWireFrame(datagram []byte) (InstanceID, []byte, error) {
	if len(datagram) < 8 {
		return 0, nil, fmt.Errorf("gossip: short datagram (%d bytes)", len(datagram))
	}
	sender := InstanceID(binary.BigEndian.Uint64(datagram[:8]))
	return sender, datagram[8:], nil
}

// Close leaves the multicast group and closes the socket. Safe to call
// more than once.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.pconn.LeaveGroup(nil, t.dst); err != nil {
		t.logger.Warn("leave group failed", "group", t.dst, "err", err)
	}
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("gossip: close transport: %w", err)
	}
	return nil
}
