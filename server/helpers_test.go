package server

import (
	"bytes"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/ImBIOS/may-minihttp/transport"

	"github.com/pkg/errors"
)

// syncBuffer lets concurrent connection goroutines share one log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestLogger() (*slog.Logger, *syncBuffer) {
	buf := &syncBuffer{}
	return slog.New(slog.NewTextHandler(buf, nil)), buf
}

type wireResponse struct {
	statusLine string
	headers    map[string]string
	body       string
}

func (w wireResponse) status() int {
	parts := strings.SplitN(w.statusLine, " ", 3)
	if len(parts) < 2 {
		return 0
	}
	code, _ := strconv.Atoi(parts[1])
	return code
}

// responseReader incrementally parses response frames off a test conn.
type responseReader struct {
	c   transport.Conn
	buf []byte
}

func (r *responseReader) next() (wireResponse, error) {
	for {
		if i := bytes.Index(r.buf, []byte("\r\n\r\n")); i >= 0 {
			return r.parse(i)
		}
		if err := r.fill(); err != nil {
			return wireResponse{}, err
		}
	}
}

func (r *responseReader) parse(headEnd int) (wireResponse, error) {
	lines := strings.Split(string(r.buf[:headEnd]), "\r\n")

	response := wireResponse{
		statusLine: lines[0],
		headers:    make(map[string]string),
	}
	for _, line := range lines[1:] {
		name, value, found := strings.Cut(line, ":")
		if !found {
			return wireResponse{}, errors.Errorf("malformed header line: %q", line)
		}
		response.headers[strings.ToLower(name)] = strings.TrimSpace(value)
	}

	bodyLen, err := strconv.Atoi(response.headers["content-length"])
	if err != nil {
		return wireResponse{}, errors.Wrap(err, "parsing content length")
	}

	total := headEnd + 4 + bodyLen
	for len(r.buf) < total {
		if err := r.fill(); err != nil {
			return wireResponse{}, err
		}
	}

	response.body = string(r.buf[headEnd+4 : total])
	r.buf = r.buf[total:]
	return response, nil
}

func (r *responseReader) fill() error {
	tmp := make([]byte, 1024)
	n, err := r.c.Read(tmp)
	r.buf = append(r.buf, tmp[:n]...)
	if n > 0 {
		return nil
	}
	return err
}

func request(target string) string {
	return "GET " + target + " HTTP/1.1\r\nHost: test\r\n\r\n"
}
