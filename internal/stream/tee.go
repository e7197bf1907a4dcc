// Package stream duplicates a byte stream to independent consumers.
package stream

import "io"

// Fork reads rc to completion and delivers every chunk to both returned
// channels, then closes them and rc. Each consumer receives its own copy
// of the data, so neither can corrupt the other's view.
//
// Channels are buffered; a consumer that stops receiving before its
// channel is drained will stall the pump once the buffer fills, so
// consumers must drain their channel to the end even after they lose
// interest in the data.
func Fork(rc io.ReadCloser, buffer int) (<-chan []byte, <-chan []byte) {
	if buffer < 1 {
		buffer = 1
	}
	a := make(chan []byte, buffer)
	b := make(chan []byte, buffer)

	go func() {
		defer close(a)
		defer close(b)
		defer rc.Close()

		buf := make([]byte, 4096)
		for {
			n, err := rc.Read(buf)
			if n > 0 {
				first := make([]byte, n)
				copy(first, buf[:n])
				second := make([]byte, n)
				copy(second, buf[:n])
				a <- first
				b <- second
			}
			if err != nil {
				return
			}
		}
	}()

	return a, b
}
