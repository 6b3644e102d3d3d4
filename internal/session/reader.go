package session

import (
	"bufio"
	"fmt"

	"github.com/nexmqtt/client/packet"
)

// frameReader pulls whole packets off the transport and publishes them onto
// the bus, splitting acks/CONNACK/PINGRESP from broker-originated PUBLISH so
// the coordinator can route each to the right place. Grounded on the
// teacher's conn.go readRequest loop and packet.Unpack dispatch.
type frameReader struct {
	r       *bufio.Reader
	version byte
	bus     *bus
	logger  Logger
}

func (fr *frameReader) run() error {
	for {
		pkt, err := packet.Unpack(fr.version, fr.r)
		if err != nil {
			return fmt.Errorf("session: frame read: %w", err)
		}
		switch p := pkt.(type) {
		case *packet.CONNECT, *packet.PINGREQ:
			return fmt.Errorf("session: broker sent client-only packet kind 0x%X", pkt.Kind())
		case *packet.PUBLISH:
			fr.bus.inbound <- p
		default:
			fr.bus.acks <- pkt
		}
	}
}
