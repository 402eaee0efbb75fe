package iolib

import "io"

// WriteFull writes buf to w until every byte is sent or a write fails.
func WriteFull(w io.Writer, buf []byte) (uint, error) {
	total := uint(0)
	for total < uint(len(buf)) {
		n, err := w.Write(buf[total:])
		total += uint(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
