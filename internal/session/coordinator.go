package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nexmqtt/client/internal/exchange"
	"github.com/nexmqtt/client/internal/idpool"
	"github.com/nexmqtt/client/internal/transport"
	"github.com/nexmqtt/client/packet"
	"golang.org/x/sync/errgroup"
)

// Status is the coordinator's connection-lifecycle state (§4.7).
type Status int32

const (
	ToConnect Status = iota
	Connected
	ToDisconnect
	Disconnected
)

// errGracefulStop is the dispatch loop's internal signal that a
// DisconnectCmd/ForceCloseCmd was processed; it is never surfaced to callers.
var errGracefulStop = errors.New("session: graceful stop")

type entryKind int

const (
	entryPublishQoS1 entryKind = iota
	entryPublishQoS2
	entrySubscribe
	entryUnsubscribe
)

// inflightEntry is one unacknowledged client-originated exchange, exactly
// the §3 "outbound in-flight queue" record: enough to rebuild and
// retransmit the packet on reconnect without losing its QoS-2 phase.
type inflightEntry struct {
	kind     entryKind
	packetID uint16
	traceID  uint32

	msg    *packet.Message
	retain bool
	props  *packet.PublishProperties
	phase  exchange.Phase

	subs     []packet.Subscription
	subProps *packet.SubscribeProperties

	pubDone    chan error
	subDone    chan SubscribeResult
	unsubDone  chan UnsubscribeResult
}

// Coordinator is the session coordinator described by §4.7: the sole owner
// of the packet-id pool, connection status, and in-flight queue. One
// Coordinator exists per logical Client.
type Coordinator struct {
	cfg Config
	bus *bus

	ids    *idpool.Pool
	subIDs idpool.SubscriptionIDs

	mu       sync.Mutex
	waiters  map[uint16]chan packet.Packet
	rxQoS1   map[uint16]struct{}
	rxQoS2   map[uint16]*packet.PUBLISH
	inflight []*inflightEntry
	curWriter *frameWriter
	connCtx   context.Context

	status         atomic.Int32
	keepaliveEpoch atomic.Uint64
	traceSeq       atomic.Uint32
	forceStop      atomic.Bool
	everConnected  atomic.Bool
}

// New builds a Coordinator. Run must be called to actually connect.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		cfg:     cfg,
		bus:     newBus(),
		ids:     idpool.New(),
		waiters: make(map[uint16]chan packet.Packet),
		rxQoS1:  make(map[uint16]struct{}),
		rxQoS2:  make(map[uint16]*packet.PUBLISH),
	}
}

// Events returns the event stream (root mqtt.Client.Events()). It is one
// channel: each event is received by exactly one reader.
func (c *Coordinator) Events() <-chan Event { return c.bus.events }

// Submit enqueues a client command.
func (c *Coordinator) Submit(cmd Command) { c.bus.commands <- cmd }

// NextTraceID hands out a process-wide-unique (per Coordinator) trace id.
func (c *Coordinator) NextTraceID() uint32 { return c.traceSeq.Add(1) }

// NextSubscriptionID hands out the next v5 subscription identifier.
func (c *Coordinator) NextSubscriptionID() uint32 { return c.subIDs.Next() }

// Status reports the current connection-lifecycle state.
func (c *Coordinator) Status() Status { return Status(c.status.Load()) }

// Run drives the ToConnect -> Connected -> ToDisconnect -> Disconnected
// state machine (§4.7) until ctx is cancelled or the application asks to
// disconnect. It closes the event stream before returning.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.bus.events)
	for {
		c.status.Store(int32(ToConnect))
		err := c.connectAndServe(ctx)
		if c.forceStop.Load() {
			c.status.Store(int32(Disconnected))
			c.emit(Event{Kind: EventDisconnected})
			return nil
		}
		if err != nil {
			kind := EventConnectFail
			if c.everConnected.Load() {
				kind = EventConnectedErr
			}
			c.emit(Event{Kind: kind, Reason: err.Error()})
			c.cfg.logger().Printf("session: connection attempt failed: %v", err)
		}
		if !c.cfg.AutoReconnect {
			c.status.Store(int32(Disconnected))
			c.emit(Event{Kind: EventDisconnected})
			return nil
		}
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.Reconnects.Inc()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.reconnectDelay()):
		}
	}
}

// Disconnect asks for an ordered shutdown.
func (c *Coordinator) Disconnect(reason packet.ReasonCode) {
	c.Submit(DisconnectCmd{ReasonCode: reason})
}

// ForceClose asks for an immediate, unordered shutdown.
func (c *Coordinator) ForceClose() {
	c.Submit(ForceCloseCmd{})
}

func (c *Coordinator) connectAndServe(ctx context.Context) error {
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conn, err := transport.Dial(connCtx, c.cfg.URL, c.cfg.Transport)
	if err != nil {
		return fmt.Errorf("session: dial: %w", err)
	}
	defer conn.Close()

	reader := &frameReader{r: bufio.NewReader(conn), version: c.cfg.Version, bus: c.bus, logger: c.cfg.logger()}
	writer := newFrameWriter(conn)

	c.mu.Lock()
	c.curWriter = writer
	c.connCtx = connCtx
	c.mu.Unlock()

	group, gctx := errgroup.WithContext(connCtx)
	group.Go(writer.run)
	group.Go(func() error {
		if err := reader.run(); err != nil {
			select {
			case c.bus.fatal <- err:
			default:
			}
			return err
		}
		return nil
	})
	// Once the group's context ends, close the socket and the write queue
	// so the blocked reader and writer return and group.Wait can finish.
	group.Go(func() error {
		<-gctx.Done()
		_ = conn.Close()
		writer.close()
		return nil
	})

	if err := writer.write(c.buildConnect()); err != nil {
		cancel()
		_ = group.Wait()
		return fmt.Errorf("session: writing CONNECT: %w", err)
	}

	sessionPresent, err := c.awaitConnack(gctx)
	if err != nil {
		cancel()
		_ = group.Wait()
		return err
	}

	c.status.Store(int32(Connected))
	c.everConnected.Store(true)
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ActiveSessions.Set(1)
	}
	c.emit(Event{Kind: EventConnectSuccess, SessionPresent: sessionPresent})

	c.resumeInflight()
	c.noteActivity()

	group.Go(func() error { return c.dispatch(gctx) })

	err = group.Wait()
	c.status.Store(int32(ToDisconnect))
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ActiveSessions.Set(0)
	}
	if errors.Is(err, errGracefulStop) {
		c.forceStop.Store(true)
		return nil
	}
	return err
}

func (c *Coordinator) awaitConnack(ctx context.Context) (sessionPresent bool, err error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(10 * time.Second):
		return false, fmt.Errorf("session: timed out waiting for CONNACK")
	case pkt := <-c.bus.acks:
		connack, ok := pkt.(*packet.CONNACK)
		if !ok {
			return false, fmt.Errorf("session: expected CONNACK, got kind 0x%X", pkt.Kind())
		}
		if connack.ConnectReturnCode.Code != 0 {
			return false, connack.ConnectReturnCode
		}
		return connack.SessionPresent == 1, nil
	}
}

func (c *Coordinator) buildConnect() *packet.CONNECT {
	pkt := &packet.CONNECT{
		FixedHeader: &packet.FixedHeader{Version: c.cfg.Version, Kind: 0x1},
		ClientID:    c.cfg.ClientID,
		KeepAlive:   c.cfg.KeepAlive,
		CleanStart:  c.cfg.CleanStart,
		Username:    c.cfg.Username,
		Password:    c.cfg.Password,
		WillTopic:   c.cfg.WillTopic,
		WillPayload: c.cfg.WillPayload,
		WillQoS:     c.cfg.WillQoS,
		WillRetain:  c.cfg.WillRetain,
	}
	if c.cfg.Version == packet.VERSION500 {
		pkt.Props = c.cfg.ConnectProps
		pkt.WillProperties = c.cfg.WillProperties
	}
	return pkt
}

func (c *Coordinator) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-c.bus.fatal:
			return err
		case pkt := <-c.bus.acks:
			c.routeAck(pkt)
			c.noteActivity()
		case pub := <-c.bus.inbound:
			c.handleInboundPublish(pub)
			c.noteActivity()
		case cmd := <-c.bus.commands:
			if c.handleCommand(ctx, cmd) {
				return errGracefulStop
			}
		}
	}
}

func (c *Coordinator) handleCommand(ctx context.Context, cmd Command) (stop bool) {
	switch cmd := cmd.(type) {
	case ConnectCmd:
		return false
	case DisconnectCmd:
		_ = c.writer().write(&packet.DISCONNECT{FixedHeader: &packet.FixedHeader{Version: c.cfg.Version, Kind: 0xE}, ReasonCode: cmd.ReasonCode})
		return true
	case ForceCloseCmd:
		return true
	case PublishCmd:
		c.handlePublishCmd(ctx, cmd)
		return false
	case SubscribeCmd:
		c.handleSubscribeCmd(ctx, cmd)
		return false
	case UnsubscribeCmd:
		c.handleUnsubscribeCmd(ctx, cmd)
		return false
	default:
		return false
	}
}

func (c *Coordinator) handlePublishCmd(ctx context.Context, cmd PublishCmd) {
	if cmd.QoS == 0 {
		err := exchange.PublishQoS0(writerAdapter{c}, c.cfg.Version, cmd.Message, cmd.Retain, cmd.Props)
		if cmd.Done != nil {
			cmd.Done <- err
		}
		if err == nil {
			c.emit(Event{Kind: EventPublishSuccess, TraceID: cmd.TraceID})
		}
		return
	}

	pid, err := c.ids.Acquire()
	if err != nil {
		if cmd.Done != nil {
			cmd.Done <- err
		}
		return
	}
	kind := entryPublishQoS1
	if cmd.QoS == 2 {
		kind = entryPublishQoS2
	}
	e := &inflightEntry{
		kind: kind, packetID: pid, traceID: cmd.TraceID,
		msg: cmd.Message, retain: cmd.Retain, props: cmd.Props,
		pubDone: cmd.Done,
	}
	c.pushInflight(e)
	c.spawnEntry(ctx, e)
}

func (c *Coordinator) handleSubscribeCmd(ctx context.Context, cmd SubscribeCmd) {
	pid, err := c.ids.Acquire()
	if err != nil {
		if cmd.Done != nil {
			cmd.Done <- SubscribeResult{Err: err}
		}
		return
	}
	e := &inflightEntry{
		kind: entrySubscribe, packetID: pid, traceID: cmd.TraceID,
		subs: cmd.Subscriptions, subProps: cmd.Props, subDone: cmd.Done,
	}
	c.pushInflight(e)
	c.spawnEntry(ctx, e)
}

func (c *Coordinator) handleUnsubscribeCmd(ctx context.Context, cmd UnsubscribeCmd) {
	pid, err := c.ids.Acquire()
	if err != nil {
		if cmd.Done != nil {
			cmd.Done <- UnsubscribeResult{Err: err}
		}
		return
	}
	e := &inflightEntry{
		kind: entryUnsubscribe, packetID: pid, traceID: cmd.TraceID,
		subs: cmd.Subscriptions, unsubDone: cmd.Done,
	}
	c.pushInflight(e)
	c.spawnEntry(ctx, e)
}

func (c *Coordinator) spawnEntry(ctx context.Context, e *inflightEntry) {
	go func() {
		var err error
		var codes []packet.ReasonCode
		switch e.kind {
		case entryPublishQoS1:
			err = exchange.PublishQoS1(ctx, writerAdapter{c}, c, c.cfg.Version, e.packetID, e.msg, e.props)
		case entryPublishQoS2:
			err = exchange.PublishQoS2(ctx, writerAdapter{c}, c, c.cfg.Version, e.packetID, e.msg, e.props, e.phase, func(p exchange.Phase) {
				c.mu.Lock()
				e.phase = p
				c.mu.Unlock()
			})
		case entrySubscribe:
			codes, err = exchange.Subscribe(ctx, writerAdapter{c}, c, c.cfg.Version, e.packetID, e.subs, e.subProps)
			if err == nil && e.subDone != nil {
				e.subDone <- SubscribeResult{ReasonCodes: codes}
			}
		case entryUnsubscribe:
			codes, err = exchange.Unsubscribe(ctx, writerAdapter{c}, c, c.cfg.Version, e.packetID, e.subs)
			if err == nil && e.unsubDone != nil {
				e.unsubDone <- UnsubscribeResult{ReasonCodes: codes}
			}
		}
		c.completeEntry(e, codes, err)
	}()
}

func (c *Coordinator) completeEntry(e *inflightEntry, codes []packet.ReasonCode, err error) {
	if err != nil {
		// Cancelled by disconnect, or the write failed because the
		// connection just died: the entry stays in the in-flight queue so
		// reconnection resumes it (replaying a QoS-2 entry as PUBREL if it
		// had already reached that phase).
		return
	}
	c.ids.Release(e.packetID)
	c.removeInflight(e)
	switch e.kind {
	case entryPublishQoS1, entryPublishQoS2:
		if e.pubDone != nil {
			e.pubDone <- nil
		}
		c.emit(Event{Kind: EventPublishSuccess, TraceID: e.traceID})
	case entrySubscribe:
		c.emit(Event{Kind: EventSubscribeAck, TraceID: e.traceID, ReasonCodes: codes})
	case entryUnsubscribe:
		c.emit(Event{Kind: EventUnsubscribeAck, TraceID: e.traceID, ReasonCodes: codes})
	}
}

func (c *Coordinator) pushInflight(e *inflightEntry) {
	c.mu.Lock()
	c.inflight = append(c.inflight, e)
	c.mu.Unlock()
}

func (c *Coordinator) removeInflight(e *inflightEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, cur := range c.inflight {
		if cur == e {
			c.inflight = append(c.inflight[:i], c.inflight[i+1:]...)
			return
		}
	}
}

// resumeInflight re-spawns every still-open exchange in queue order against
// the freshly (re)connected writer, per §4.7's reconnect replay.
func (c *Coordinator) resumeInflight() {
	c.mu.Lock()
	entries := make([]*inflightEntry, len(c.inflight))
	copy(entries, c.inflight)
	ctx := c.connCtx
	c.mu.Unlock()
	for _, e := range entries {
		c.spawnEntry(ctx, e)
	}
}

func (c *Coordinator) writer() *frameWriter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curWriter
}

// Register implements exchange.Registry.
func (c *Coordinator) Register(id uint16) <-chan packet.Packet {
	ch := make(chan packet.Packet, 4)
	c.mu.Lock()
	c.waiters[id] = ch
	c.mu.Unlock()
	return ch
}

// Unregister implements exchange.Registry.
func (c *Coordinator) Unregister(id uint16) {
	c.mu.Lock()
	delete(c.waiters, id)
	c.mu.Unlock()
}

func (c *Coordinator) routeAck(pkt packet.Packet) {
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.PacketsReceived.Inc()
	}
	if rel, ok := pkt.(*packet.PUBREL); ok {
		c.handleRxPubrel(rel)
		return
	}
	if _, ok := pkt.(*packet.CONNACK); ok {
		c.cfg.logger().Printf("session: unexpected CONNACK on an already-connected session, ignored")
		return
	}
	pid := packetIDOf(pkt)
	c.mu.Lock()
	ch, ok := c.waiters[pid]
	c.mu.Unlock()
	if ok {
		select {
		case ch <- pkt:
		default:
		}
	}
}

func packetIDOf(pkt packet.Packet) uint16 {
	switch p := pkt.(type) {
	case *packet.PUBACK:
		return p.PacketID
	case *packet.PUBREC:
		return p.PacketID
	case *packet.PUBCOMP:
		return p.PacketID
	case *packet.SUBACK:
		return p.PacketID
	case *packet.UNSUBACK:
		return p.PacketID
	case *packet.PINGRESP:
		return exchange.PingID
	default:
		return 0
	}
}

// handleInboundPublish implements the receive-side QoS 0/1/2 state
// machines of §4.6. The QoS-2 payload is emitted once, at PUBREL time, as
// the spec's "Shared packet values" note requires: the stored *packet.PUBLISH
// pointer is reused, not copied, between the dedup map and the eventual event.
func (c *Coordinator) handleInboundPublish(p *packet.PUBLISH) {
	switch p.QoS {
	case 0:
		c.emitMessage(p)
	case 1:
		c.mu.Lock()
		_, dup := c.rxQoS1[p.PacketID]
		c.rxQoS1[p.PacketID] = struct{}{}
		c.mu.Unlock()
		_ = writerAdapter{c}.Write(&packet.PUBACK{FixedHeader: &packet.FixedHeader{Version: c.cfg.Version, Kind: 0x4}, PacketID: p.PacketID})
		if !dup {
			c.emitMessage(p)
		}
		c.mu.Lock()
		delete(c.rxQoS1, p.PacketID)
		c.mu.Unlock()
	case 2:
		c.mu.Lock()
		_, dup := c.rxQoS2[p.PacketID]
		if !dup {
			c.rxQoS2[p.PacketID] = p
		}
		c.mu.Unlock()
		_ = writerAdapter{c}.Write(&packet.PUBREC{FixedHeader: &packet.FixedHeader{Version: c.cfg.Version, Kind: 0x5}, PacketID: p.PacketID})
	}
}

func (c *Coordinator) handleRxPubrel(rel *packet.PUBREL) {
	c.mu.Lock()
	entry, ok := c.rxQoS2[rel.PacketID]
	if ok {
		delete(c.rxQoS2, rel.PacketID)
	}
	c.mu.Unlock()
	_ = writerAdapter{c}.Write(&packet.PUBCOMP{FixedHeader: &packet.FixedHeader{Version: c.cfg.Version, Kind: 0x7}, PacketID: rel.PacketID})
	if ok {
		c.emitMessage(entry)
	}
}

func (c *Coordinator) emitMessage(p *packet.PUBLISH) {
	c.emit(Event{Kind: EventPublish, Message: p.Message})
}

func (c *Coordinator) emit(e Event) {
	select {
	case c.bus.events <- e:
	default:
		c.cfg.logger().Printf("session: event stream full, dropping event kind %d", e.Kind)
	}
}

// noteActivity re-arms the keepalive epoch: per §4.7/§9, every successful
// non-PING exchange advances the epoch, and only a check whose captured
// epoch still matches the current value fires a PINGREQ.
func (c *Coordinator) noteActivity() {
	ka := c.cfg.keepAlive()
	if ka == 0 {
		return
	}
	epoch := c.keepaliveEpoch.Add(1)
	c.mu.Lock()
	ctx := c.connCtx
	c.mu.Unlock()
	if ctx == nil {
		return
	}
	time.AfterFunc(ka, func() { c.keepaliveCheck(ctx, epoch) })
}

func (c *Coordinator) keepaliveCheck(ctx context.Context, epoch uint64) {
	if c.keepaliveEpoch.Load() != epoch {
		return
	}
	if ctx.Err() != nil {
		return
	}
	go func() {
		if err := exchange.Ping(ctx, writerAdapter{c}, c, c.cfg.Version); err != nil {
			select {
			case c.bus.fatal <- fmt.Errorf("session: keepalive: %w", err):
			default:
			}
			return
		}
		c.noteActivity()
	}()
}

// writerAdapter satisfies exchange.Writer, updating metrics and the
// keepalive epoch on every successful wire write.
type writerAdapter struct{ c *Coordinator }

func (w writerAdapter) Write(pkt packet.Packet) error {
	fw := w.c.writer()
	if fw == nil {
		return fmt.Errorf("session: not connected")
	}
	err := fw.write(pkt)
	if err == nil {
		if w.c.cfg.Metrics != nil {
			w.c.cfg.Metrics.PacketsSent.Inc()
		}
		if pkt.Kind() != 0xC { // PINGREQ re-arms the epoch itself, on PINGRESP
			w.c.noteActivity()
		}
	}
	return err
}
