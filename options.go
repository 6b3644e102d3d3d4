package mqtt

import (
	"fmt"
	"net/url"
	"time"

	"github.com/golang-io/requests"
	"github.com/nexmqtt/client/internal/metrics"
	"github.com/nexmqtt/client/internal/transport"
	"github.com/nexmqtt/client/packet"
)

// ConnectionOptions is the full connection configuration named in §3,
// built by applying a chain of Option functions over a sensible default.
// It is immutable once New/Dial has consumed it.
type ConnectionOptions struct {
	url      string
	clientID string
	version  byte

	keepAlive  uint16
	cleanStart bool

	username string
	password string

	willTopic      string
	willPayload    []byte
	willQoS        uint8
	willRetain     bool
	willProperties *packet.WillProperties

	connectProps *packet.ConnectProperties

	maxIncomingPacketSize uint32

	autoReconnect  bool
	reconnectDelay time.Duration

	tls *transport.TLSConfig

	dialTimeout      time.Duration
	handshakeTimeout time.Duration

	logger  Logger
	metrics bool

	subscriptions []packet.Subscription
}

// Option mutates a ConnectionOptions under construction. Functions named
// in this file are the only supported way to build one (cf. the teacher's
// functional-options pattern in the old Options/Option pair).
type Option func(*ConnectionOptions)

func newOptions(opts ...Option) ConnectionOptions {
	o := ConnectionOptions{
		url:            "mqtt://127.0.0.1:1883",
		clientID:       "mqtt-" + requests.GenId(),
		version:        packet.VERSION311,
		reconnectDelay: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// URL sets the broker address. Scheme selects transport: mqtt/tcp, mqtts/ssl/tls, ws, wss.
func URL(u string) Option {
	return func(o *ConnectionOptions) { o.url = u }
}

// ClientID overrides the generated default client identifier.
func ClientID(id string) Option {
	return func(o *ConnectionOptions) { o.clientID = id }
}

// Version selects the protocol level, either as packet.VERSION311/VERSION500
// or as the wire version strings "3.1.1"/"5.0.0".
func Version[T ~string | ~byte](version T) Option {
	return func(o *ConnectionOptions) {
		switch v := any(version).(type) {
		case byte:
			o.version = v
		case string:
			switch v {
			case "5.0.0":
				o.version = packet.VERSION500
			case "3.1.1":
				o.version = packet.VERSION311
			default:
				panic(fmt.Errorf("version = %s not support", v))
			}
		}
	}
}

// KeepAlive sets the keepalive interval in seconds; 0 disables PINGREQ.
func KeepAlive(seconds uint16) Option {
	return func(o *ConnectionOptions) { o.keepAlive = seconds }
}

// CleanStart sets the v5 Clean Start / v3.1.1 Clean Session flag.
func CleanStart(clean bool) Option {
	return func(o *ConnectionOptions) { o.cleanStart = clean }
}

// Credentials sets the CONNECT username/password.
func Credentials(username, password string) Option {
	return func(o *ConnectionOptions) {
		o.username = username
		o.password = password
	}
}

// Will sets the CONNECT last-will message.
func Will(topic string, payload []byte, qos uint8, retain bool) Option {
	return func(o *ConnectionOptions) {
		o.willTopic = topic
		o.willPayload = payload
		o.willQoS = qos
		o.willRetain = retain
	}
}

// WillProperties sets the v5 will-delay / message-expiry properties.
func WillProperties(props *packet.WillProperties) Option {
	return func(o *ConnectionOptions) { o.willProperties = props }
}

// ConnectProperties sets the v5 CONNECT properties block (session expiry,
// receive maximum, topic alias maximum, and so on).
func ConnectProperties(props *packet.ConnectProperties) Option {
	return func(o *ConnectionOptions) { o.connectProps = props }
}

// MaxIncomingPacketSize records the largest packet the client expects to
// accept; it is carried into the session config, and the frame reader does
// not check incoming packet sizes against it.
func MaxIncomingPacketSize(n uint32) Option {
	return func(o *ConnectionOptions) { o.maxIncomingPacketSize = n }
}

// AutoReconnect enables the session coordinator's reconnect loop (§4.7),
// retrying every delay after a dropped connection until ForceClose/Disconnect.
func AutoReconnect(delay time.Duration) Option {
	return func(o *ConnectionOptions) {
		o.autoReconnect = true
		o.reconnectDelay = delay
	}
}

// TLS configures the tls/ssl/mqtts transport.
func TLS(cfg transport.TLSConfig) Option {
	return func(o *ConnectionOptions) { o.tls = &cfg }
}

// DialTimeout bounds how long the initial TCP/TLS connect may take; the
// ws/wss transports do not use it.
func DialTimeout(d time.Duration) Option {
	return func(o *ConnectionOptions) { o.dialTimeout = d }
}

// Subscription pre-registers topic filters that ConnectAndSubscribe
// subscribes to once, after the first successful connect; they are not
// resubscribed on reconnect. Mirrors the teacher's ConnectAndSubscribe
// convenience helper.
func Subscription(subscription ...packet.Subscription) Option {
	return func(o *ConnectionOptions) { o.subscriptions = append(o.subscriptions, subscription...) }
}

// WithLogger installs an application logger; see Logger in this package.
func WithLogger(l Logger) Option {
	return func(o *ConnectionOptions) { o.logger = l }
}

// WithMetrics turns on the per-client Prometheus collector (§10 domain
// stack); retrieve it afterwards via Client.Metrics().
func WithMetrics() Option {
	return func(o *ConnectionOptions) { o.metrics = true }
}

func (o ConnectionOptions) parsedURL() (*url.URL, error) {
	return url.Parse(o.url)
}

func (o ConnectionOptions) transportOptions() transport.Options {
	return transport.Options{
		TLS:              o.tls,
		DialTimeout:       o.dialTimeout,
		HandshakeTimeout: o.handshakeTimeout,
	}
}

func (o ConnectionOptions) metricsCollector() *metrics.Collector {
	if !o.metrics {
		return nil
	}
	return metrics.New(o.clientID)
}
