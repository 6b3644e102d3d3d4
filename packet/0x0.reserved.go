package packet

import (
	"bytes"
	"io"
)

// RESERVED is returned whenever Unpack encounters a fixed-header kind with
// no known packet type, or when the fixed header itself fails to decode.
// Pack/Unpack are no-ops; callers only inspect its FixedHeader.
type RESERVED struct {
	*FixedHeader
}

func (pkt *RESERVED) Kind() byte            { return pkt.FixedHeader.Kind }
func (pkt *RESERVED) Pack(io.Writer) error  { return nil }
func (pkt *RESERVED) Unpack(*bytes.Buffer) error { return nil }
