// Package mqtt implements an MQTT v3.1.1/v5.0 client: connect, publish,
// subscribe, and have the library handle QoS 1/2 acknowledgement, packet-id
// bookkeeping, keepalive, and reconnection.
package mqtt

import (
	"context"
	"fmt"

	"github.com/nexmqtt/client/internal/metrics"
	"github.com/nexmqtt/client/internal/session"
	"github.com/nexmqtt/client/packet"
)

// Logger is the sink Client logs connect/disconnect/error activity
// through; install one with WithLogger. The default logs via the standard
// library's log package, matching the teacher's plain log.Printf call sites.
type Logger = session.Logger

// Event is a notification the coordinator emits about the connection or an
// in-flight exchange: successful/failed connect, an inbound message,
// publish/subscribe/unsubscribe completion, or final disconnection.
type Event = session.Event

// EventKind enumerates Event.Kind.
type EventKind = session.EventKind

const (
	EventConnectSuccess   = session.EventConnectSuccess
	EventConnectFail      = session.EventConnectFail
	EventConnectedErr     = session.EventConnectedErr
	EventPublish          = session.EventPublish
	EventPublishSuccess   = session.EventPublishSuccess
	EventSubscribeAck     = session.EventSubscribeAck
	EventUnsubscribeAck   = session.EventUnsubscribeAck
	EventDisconnected     = session.EventDisconnected
)

// Client is one MQTT session coordinator: it owns a single logical
// connection (possibly reconnecting many times over its lifetime), the
// in-flight QoS 1/2 queue, and the packet-id pool. Create one with New,
// start it with Run, and use Publish/Subscribe/Unsubscribe concurrently
// from any goroutine while Run is active.
type Client struct {
	opts    ConnectionOptions
	coord   *session.Coordinator
	metrics *metrics.Collector
}

// New builds a Client from opts without connecting. Call Run to connect.
func New(opts ...Option) (*Client, error) {
	o := newOptions(opts...)
	u, err := o.parsedURL()
	if err != nil {
		return nil, fmt.Errorf("mqtt: parsing URL %q: %w", o.url, err)
	}

	m := o.metricsCollector()
	cfg := session.Config{
		ClientID:              o.clientID,
		URL:                   u,
		Version:               o.version,
		KeepAlive:             o.keepAlive,
		CleanStart:            o.cleanStart,
		Username:              o.username,
		Password:              o.password,
		WillTopic:             o.willTopic,
		WillPayload:           o.willPayload,
		WillQoS:               o.willQoS,
		WillRetain:            o.willRetain,
		WillProperties:        o.willProperties,
		ConnectProps:          o.connectProps,
		MaxIncomingPacketSize: o.maxIncomingPacketSize,
		AutoReconnect:         o.autoReconnect,
		ReconnectDelay:        o.reconnectDelay,
		Transport:             o.transportOptions(),
		Logger:                o.logger,
		Metrics:               m,
	}

	return &Client{opts: o, coord: session.New(cfg), metrics: m}, nil
}

// Dial builds a Client and runs it in a new goroutine, returning right
// away without waiting for the connection attempt. Use Events to observe
// when the connection actually succeeds.
func Dial(ctx context.Context, opts ...Option) (*Client, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	go func() { _ = c.coord.Run(ctx) }()
	return c, nil
}

// Run drives the connection lifecycle until ctx is cancelled or the
// application calls Disconnect/ForceClose. It blocks; call it from its own
// goroutine unless the caller wants to own the client's lifetime directly.
func (c *Client) Run(ctx context.Context) error {
	return c.coord.Run(ctx)
}

// ID returns the client identifier used on the wire.
func (c *Client) ID() string { return c.opts.clientID }

// Status reports the current connection-lifecycle state (§4.7).
func (c *Client) Status() session.Status { return c.coord.Status() }

// Events returns the stream of connection and exchange-completion events.
// It is closed once Run returns.
func (c *Client) Events() <-chan Event { return c.coord.Events() }

// Publish sends msg at the given QoS, blocking until the broker has
// acknowledged it (QoS 1/2) or the write has been handed to the transport
// (QoS 0). It is safe to call concurrently from multiple goroutines.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos uint8, retain bool) error {
	return c.PublishWithProperties(ctx, topic, payload, qos, retain, nil)
}

// PublishWithProperties is Publish plus v5 publish properties (message
// expiry, content type, user properties, and so on); props is ignored
// under v3.1.1.
func (c *Client) PublishWithProperties(ctx context.Context, topic string, payload []byte, qos uint8, retain bool, props *packet.PublishProperties) error {
	done := make(chan error, 1)
	cmd := session.PublishCmd{
		TraceID: c.coord.NextTraceID(),
		Message: &packet.Message{TopicName: topic, Content: payload},
		QoS:     qos,
		Retain:  retain,
		Props:   props,
		Done:    done,
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	c.coord.Submit(cmd)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// Subscribe registers one or more topic filters and blocks until SUBACK
// (or ctx is cancelled), returning the broker's per-filter reason codes.
func (c *Client) Subscribe(ctx context.Context, subs ...packet.Subscription) ([]packet.ReasonCode, error) {
	return c.SubscribeWithProperties(ctx, nil, subs...)
}

// SubscribeWithProperties is Subscribe plus v5 subscribe properties
// (subscription identifier, user properties).
func (c *Client) SubscribeWithProperties(ctx context.Context, props *packet.SubscribeProperties, subs ...packet.Subscription) ([]packet.ReasonCode, error) {
	done := make(chan session.SubscribeResult, 1)
	c.coord.Submit(session.SubscribeCmd{
		TraceID:       c.coord.NextTraceID(),
		Subscriptions: subs,
		Props:         props,
		Done:          done,
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.ReasonCodes, res.Err
	}
}

// Unsubscribe removes one or more topic filters and blocks until UNSUBACK.
func (c *Client) Unsubscribe(ctx context.Context, filters ...string) ([]packet.ReasonCode, error) {
	subs := make([]packet.Subscription, len(filters))
	for i, f := range filters {
		subs[i] = packet.Subscription{TopicFilter: f}
	}
	done := make(chan session.UnsubscribeResult, 1)
	c.coord.Submit(session.UnsubscribeCmd{
		TraceID:       c.coord.NextTraceID(),
		Subscriptions: subs,
		Done:          done,
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.ReasonCodes, res.Err
	}
}

// Disconnect asks for an ordered shutdown: the broker is sent DISCONNECT
// and Run returns once the socket closes. AutoReconnect, if set, does not
// fire after an explicit Disconnect.
func (c *Client) Disconnect(reason packet.ReasonCode) {
	c.coord.Disconnect(reason)
}

// ForceClose asks for an immediate shutdown without a DISCONNECT packet.
func (c *Client) ForceClose() {
	c.coord.ForceClose()
}

// Metrics returns the client's Prometheus collector, or nil if WithMetrics
// was not supplied to New/Dial.
func (c *Client) Metrics() *metrics.Collector {
	return c.metrics
}

// ConnectAndSubscribe dials, waits for the first successful connection,
// and subscribes to every filter passed to Subscription at construction
// time. It mirrors the teacher's client convenience helper of the same
// name, generalized to the new coordinator-backed connection lifecycle.
func ConnectAndSubscribe(ctx context.Context, opts ...Option) (*Client, error) {
	c, err := New(opts...)
	if err != nil {
		return nil, err
	}
	go func() { _ = c.coord.Run(ctx) }()

	for ev := range c.Events() {
		switch ev.Kind {
		case EventConnectSuccess:
			if len(c.opts.subscriptions) > 0 {
				if _, err := c.Subscribe(ctx, c.opts.subscriptions...); err != nil {
					return c, fmt.Errorf("mqtt: initial subscribe: %w", err)
				}
			}
			return c, nil
		case EventConnectFail:
			return c, fmt.Errorf("mqtt: %s", ev.Reason)
		}
	}
	return c, fmt.Errorf("mqtt: connection closed before CONNACK")
}

// OnMessage registers a handler invoked for every inbound PUBLISH. It is a
// convenience wrapper around Events for callers who don't need the other
// event kinds; it spawns one goroutine that runs until Events closes.
func (c *Client) OnMessage(handler func(*packet.Message)) {
	go func() {
		for ev := range c.Events() {
			if ev.Kind == EventPublish && ev.Message != nil {
				handler(ev.Message)
			}
		}
	}()
}
