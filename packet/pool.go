package packet

import (
	"bytes"
	"sync"
)

// bufferPool recycles the scratch buffers Pack/Unpack build packet bodies
// in, so a busy connection isn't allocating a fresh bytes.Buffer per packet.
var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func GetBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func PutBuffer(buf *bytes.Buffer) {
	buf.Reset()
	bufferPool.Put(buf)
}
