package transport

import "sync"

// maxDatagramSize covers jumbo-frame mDNS packets (RFC 6762 §17).
const maxDatagramSize = 9000

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, maxDatagramSize)
		return &buf
	},
}

func getBuffer() *[]byte {
	return bufferPool.Get().(*[]byte)
}

func putBuffer(buf *[]byte) {
	bufferPool.Put(buf)
}
