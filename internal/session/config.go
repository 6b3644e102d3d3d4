package session

import (
	"net/url"
	"time"

	"github.com/nexmqtt/client/internal/metrics"
	"github.com/nexmqtt/client/internal/transport"
	"github.com/nexmqtt/client/packet"
)

// Config is the session coordinator's view of connection options (root
// package mqtt.ConnectionOptions is converted into this). Field-for-field
// it is §3's ConnectionOptions data model.
type Config struct {
	ClientID string
	URL      *url.URL
	Version  byte
	KeepAlive uint16

	CleanStart bool

	Username string
	Password string

	WillTopic      string
	WillPayload    []byte
	WillQoS        uint8
	WillRetain     bool
	WillProperties *packet.WillProperties

	ConnectProps *packet.ConnectProperties

	MaxIncomingPacketSize uint32

	AutoReconnect  bool
	ReconnectDelay time.Duration

	Transport transport.Options

	Logger  Logger
	Metrics *metrics.Collector
}

func (c Config) reconnectDelay() time.Duration {
	if c.ReconnectDelay > 0 {
		return c.ReconnectDelay
	}
	return 30 * time.Second
}

func (c Config) keepAlive() time.Duration {
	if c.KeepAlive == 0 {
		return 0
	}
	return time.Duration(c.KeepAlive) * time.Second
}

func (c Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return DefaultLogger
}
