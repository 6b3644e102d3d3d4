package packet

import (
	"bytes"
	"io"
)

// PINGREQ carries no variable header or payload; it exists purely to keep
// the network connection alive and let the client detect a dead
// connection that TCP itself hasn't noticed yet. The client sends one
// whenever no other packet has gone out within the keep-alive interval,
// and must close the connection if PINGRESP doesn't arrive in time.
type PINGREQ struct {
	*FixedHeader `json:"FixedHeader,omitempty"`
}

func (pkt *PINGREQ) Kind() byte {
	return 0xC
}

func (pkt *PINGREQ) Pack(w io.Writer) error {
	return pkt.FixedHeader.Pack(w)
}

func (pkt *PINGREQ) Unpack(_ *bytes.Buffer) error {
	return nil
}
