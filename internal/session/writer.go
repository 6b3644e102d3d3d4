package session

import (
	"fmt"
	"io"

	"github.com/nexmqtt/client/packet"
)

// writeItem is one outbound packet plus an optional completion receipt,
// matching the teacher's frame-writer shape but generalized to every
// packet kind instead of just PUBLISH.
type writeItem struct {
	pkt  packet.Packet
	done chan error // optional; nil means fire-and-forget
}

// frameWriter drains a single-consumer queue to the transport in FIFO
// order, so two sequential calls from one client clone hit the wire in
// call order (§5 ordering guarantee).
type frameWriter struct {
	w     io.Writer
	queue chan writeItem
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{w: w, queue: make(chan writeItem, 256)}
}

func (fw *frameWriter) write(pkt packet.Packet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("session: write after close")
		}
	}()
	done := make(chan error, 1)
	fw.queue <- writeItem{pkt: pkt, done: done}
	return <-done
}

func (fw *frameWriter) writeAsync(pkt packet.Packet) {
	fw.queue <- writeItem{pkt: pkt}
}

func (fw *frameWriter) run() error {
	for item := range fw.queue {
		err := item.pkt.Pack(fw.w)
		if item.done != nil {
			item.done <- err
		}
		if err != nil {
			return fmt.Errorf("session: frame write: %w", err)
		}
	}
	return nil
}

func (fw *frameWriter) close() {
	close(fw.queue)
}
