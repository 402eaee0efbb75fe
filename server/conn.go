package server

import (
	"bytes"
	"log/slog"

	"github.com/ImBIOS/may-minihttp/http"
	"github.com/ImBIOS/may-minihttp/lib/bytebuf"
	iolib "github.com/ImBIOS/may-minihttp/lib/io"
	"github.com/ImBIOS/may-minihttp/transport"

	"github.com/pkg/errors"
)

type conn struct {
	con transport.Conn

	handle HandleFunc

	dec *http.RequestDecoder
	enc *http.ResponseEncoder

	logger *slog.Logger

	opts Options
}

// start drives the connection until the peer disconnects or a fatal
// error occurs. It owns the connection and closes it on exit.
func (c *conn) start() {
	defer func() {
		c.logger.Debug("closing connection")
		if err := c.con.Close(); err != nil && !transport.IsBenignClose(err) {
			c.logger.Error("error when closing connection", "error", err)
		}
	}()

	var err error
	if c.opts.Pipeline.Enabled {
		err = c.servePipeline()
	} else {
		err = c.serve()
	}

	if err != nil && !transport.IsBenignClose(err) {
		c.logger.Error("abandoning connection", "error", err)
	}
}

// serve is the sequential loop: exactly one request is in flight at a
// time, so write order trivially equals arrival order.
func (c *conn) serve() error {
	acc := bytebuf.NewAccumulator(c.readBufOpts().unpack())
	rsp := bytes.NewBuffer(make([]byte, 0, responseBufCap))

	for {
		request, n, err := c.dec.Decode(acc.Bytes())
		if err != nil {
			return errors.Wrap(err, "decoding request")
		}

		if request == nil {
			// Need more data.
			if err := c.fill(acc); err != nil {
				return err
			}
			continue
		}

		acc.Discard(n)

		response := c.doHandle(request)

		c.enc.Encode(response, rsp)
		if _, err := iolib.WriteFull(c.con, rsp.Bytes()); err != nil {
			return errors.Wrap(err, "writing response")
		}
		rsp.Reset()
	}
}

// fill blocks for more request bytes. A clean peer close surfaces as a
// benign error so the loop exits silently.
func (c *conn) fill(acc *bytebuf.Accumulator) error {
	n, err := acc.Fill(c.con)
	if err != nil && n == 0 {
		return errors.Wrap(err, "reading request bytes")
	}
	return nil
}

func (c *conn) readBufOpts() BufferOptions {
	def := serveReadBuffer
	if c.opts.Pipeline.Enabled {
		def = pipelineReadBuffer
	}
	return c.opts.ReadBuffer.withDefaults(def)
}

func (o BufferOptions) unpack() (initialCap, lowWater, growth uint) {
	return o.InitialCap, o.LowWater, o.Growth
}
