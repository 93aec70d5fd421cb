package httpserver

import (
	"io"
	"strconv"
)

func intParam(s string) (int, error) {
	return strconv.Atoi(s)
}

func copyStream(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, 64<<10)
	return io.CopyBuffer(dst, src, buf)
}
